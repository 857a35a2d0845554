// Package memory is an in-process SummaryWriter used in tests and when
// export is disabled.
package memory

import (
	"context"
	"sync"

	"budget/internal/core"
)

type Entry struct {
	Summary   core.PeriodSummary
	Breakdown []core.CategoryAmount
}

type Store struct {
	mu      sync.Mutex
	entries []Entry
}

func New() *Store {
	return &Store{}
}

// WriteSummary records the export. The latest entry per period wins on
// read; earlier entries are kept for inspection.
func (s *Store) WriteSummary(_ context.Context, summary core.PeriodSummary, breakdown []core.CategoryAmount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{
		Summary:   summary,
		Breakdown: append([]core.CategoryAmount(nil), breakdown...),
	})
	return nil
}

// Entries returns every recorded export in write order.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Latest returns the most recent export for p.
func (s *Store) Latest(p core.Period) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].Summary.Period == p {
			return s.entries[i], true
		}
	}
	return Entry{}, false
}

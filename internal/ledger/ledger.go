// Package ledger owns the authoritative in-memory transaction collection.
// Every mutation rewrites the full persisted collection before returning;
// queries and aggregates are answered from memory only.
package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
	applog "budget/internal/log"
)

// StorageKey is the persisted-state key holding the transaction list.
const StorageKey = "transactions"

// FilterAll disables a type or category filter.
const FilterAll = "all"

// Storage is the slice of the persistence adapter the ledger needs: an
// opaque key-value capability with JSON payloads.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// EventOp names the mutation that produced an Event.
type EventOp string

const (
	OpAdded   EventOp = "added"
	OpUpdated EventOp = "updated"
	OpRemoved EventOp = "removed"
)

// Event notifies subscribers that the collection changed. Period is the
// period of the affected record so consumers can invalidate selectively.
type Event struct {
	Op     EventOp     `json:"op"`
	ID     string      `json:"id"`
	Period core.Period `json:"period"`
}

// Filter narrows a period's transactions. Type and Category accept
// FilterAll (or empty) to match everything; Search is a case-insensitive
// substring match on description or category.
type Filter struct {
	Period   core.Period
	Search   string
	Type     string
	Category string
}

// Patch carries the fields of an update; nil fields are preserved.
type Patch struct {
	Description *string               `json:"description,omitempty"`
	Amount      *core.Money           `json:"amount,omitempty"`
	Type        *core.TransactionType `json:"type,omitempty"`
	Category    *string               `json:"category,omitempty"`
	Date        *core.Date            `json:"date,omitempty"`
	Recurrence  *core.Recurrence      `json:"recurrence,omitempty"`
}

// Store is the transaction store. The zero value is not usable; use New.
type Store struct {
	mu           sync.RWMutex
	kv           Storage
	transactions []core.Transaction
	subs         []func(Event)
	degraded     bool
}

func New(kv Storage) *Store {
	return &Store{kv: kv}
}

// Subscribe registers fn to run synchronously after every successful
// mutation. Subscriptions must be set up before the store is shared.
func (s *Store) Subscribe(fn func(Event)) {
	s.subs = append(s.subs, fn)
}

// Load reads the persisted collection. Missing or corrupt data
// initializes an empty collection; corruption is logged, never raised.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions = nil
	raw, ok, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		slog.WarnContext(ctx, "Reading persisted transactions failed, starting empty",
			applog.FieldError, err.Error(),
			applog.FieldStorageKey, StorageKey,
			applog.FieldComponent, applog.ComponentLedger)
		return
	}
	if !ok {
		return
	}

	var txs []core.Transaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		slog.WarnContext(ctx, "Persisted transactions are malformed, starting empty",
			applog.FieldError, err.Error(),
			applog.FieldStorageKey, StorageKey,
			applog.FieldComponent, applog.ComponentLedger)
		return
	}
	s.transactions = txs
	slog.InfoContext(ctx, "Transactions loaded",
		"count", len(txs),
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldOperation, applog.OpLoad)
}

// Add validates t, assigns a fresh id (and today's date when absent),
// appends, persists and returns the stored record.
func (s *Store) Add(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()
	if t.Date.IsZero() {
		t.Date = core.DateOf(time.Now())
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	s.transactions = append(s.transactions, t)
	s.persist(ctx)
	s.mu.Unlock()

	fields := applog.NewFields().
		WithTransaction(t.ID, t.Description, t.Amount.Cents).
		WithOperation(applog.OpAdd).
		WithComponent(applog.ComponentLedger)
	fields[applog.FieldCategory] = t.Category
	slog.InfoContext(ctx, "Transaction added", fields.ToSlice()...)

	s.notify(Event{Op: OpAdded, ID: t.ID, Period: core.PeriodOf(t.Date)})
	return t, nil
}

// Update merges patch into the record with the given id and persists.
// An unknown id is a logged no-op.
func (s *Store) Update(ctx context.Context, id string, patch Patch) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		slog.WarnContext(ctx, "Update for unknown transaction ignored",
			applog.FieldTxID, id,
			applog.FieldComponent, applog.ComponentLedger,
			applog.FieldOperation, applog.OpUpdate)
		return nil
	}

	merged := s.transactions[idx]
	if patch.Description != nil {
		merged.Description = *patch.Description
	}
	if patch.Amount != nil {
		merged.Amount = *patch.Amount
	}
	if patch.Type != nil {
		merged.Type = *patch.Type
	}
	if patch.Category != nil {
		merged.Category = *patch.Category
	}
	if patch.Date != nil {
		merged.Date = *patch.Date
	}
	if patch.Recurrence != nil {
		merged.Recurrence = patch.Recurrence
	}
	if err := merged.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}

	s.transactions[idx] = merged
	s.persist(ctx)
	s.mu.Unlock()

	s.notify(Event{Op: OpUpdated, ID: id, Period: core.PeriodOf(merged.Date)})
	return nil
}

// Remove deletes the record with the given id if present. The collection
// is persisted whether or not a match was found.
func (s *Store) Remove(ctx context.Context, id string) {
	s.mu.Lock()
	var removed core.Transaction
	found := false
	kept := s.transactions[:0]
	for _, t := range s.transactions {
		if t.ID == id {
			removed = t
			found = true
			continue
		}
		kept = append(kept, t)
	}
	s.transactions = kept
	s.persist(ctx)
	s.mu.Unlock()

	if found {
		s.notify(Event{Op: OpRemoved, ID: id, Period: core.PeriodOf(removed.Date)})
	}
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.transactions[idx], true
	}
	return core.Transaction{}, false
}

// All returns a copy of the full collection in insertion order.
func (s *Store) All() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Transaction(nil), s.transactions...)
}

// Query returns the subsequence of records matching f, preserving the
// collection's insertion order.
func (s *Store) Query(f Filter) []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := []core.Transaction{}
	for _, t := range s.transactions {
		if !f.Period.Contains(t.Date) {
			continue
		}
		if f.Type != "" && f.Type != FilterAll && string(t.Type) != f.Type {
			continue
		}
		if f.Category != "" && f.Category != FilterAll && t.Category != f.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Description), search) &&
			!strings.Contains(strings.ToLower(t.Category), search) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// TotalIncome sums income amounts for the period. Empty periods sum to 0.
func (s *Store) TotalIncome(p core.Period) core.Money {
	return s.total(p, core.TypeIncome)
}

// TotalExpenses sums expense amounts for the period. Empty periods sum to 0.
func (s *Store) TotalExpenses(p core.Period) core.Money {
	return s.total(p, core.TypeExpense)
}

func (s *Store) total(p core.Period, typ core.TransactionType) core.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum int64
	for _, t := range s.transactions {
		if t.Type == typ && p.Contains(t.Date) {
			sum += t.Amount.Cents
		}
	}
	return core.Money{Cents: sum}
}

// Summary computes the period overview in a single pass.
func (s *Store) Summary(p core.Period) core.PeriodSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := core.PeriodSummary{Period: p}
	for _, t := range s.transactions {
		if !p.Contains(t.Date) {
			continue
		}
		out.Transactions++
		switch t.Type {
		case core.TypeIncome:
			out.Income.Cents += t.Amount.Cents
		case core.TypeExpense:
			out.Expenses.Cents += t.Amount.Cents
		}
	}
	out.Balance.Cents = out.Income.Cents - out.Expenses.Cents
	return out
}

// Persisted reports whether the last write reached the backing store.
// False means the session is running in degraded, memory-only mode.
func (s *Store) Persisted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.degraded
}

// persist rewrites the full collection. Failures are logged and flip the
// store into degraded mode rather than failing the mutation; the
// in-memory collection stays authoritative. Callers hold mu.
func (s *Store) persist(ctx context.Context) {
	data, err := json.Marshal(s.transactions)
	if err != nil {
		slog.ErrorContext(ctx, "Encoding transactions failed",
			applog.FieldError, err.Error(),
			applog.FieldComponent, applog.ComponentLedger,
			applog.FieldOperation, applog.OpPersist)
		s.degraded = true
		return
	}
	if err := s.kv.Set(ctx, StorageKey, data); err != nil {
		slog.ErrorContext(ctx, "Persisting transactions failed, continuing in memory",
			applog.FieldError, err.Error(),
			applog.FieldStorageKey, StorageKey,
			applog.FieldComponent, applog.ComponentLedger,
			applog.FieldOperation, applog.OpPersist)
		s.degraded = true
		return
	}
	s.degraded = false
}

func (s *Store) notify(ev Event) {
	for _, fn := range s.subs {
		fn(ev)
	}
}

// indexOf returns the position of id, or -1. Callers hold mu.
func (s *Store) indexOf(id string) int {
	for i := range s.transactions {
		if s.transactions[i].ID == id {
			return i
		}
	}
	return -1
}

package goal

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
	applog "budget/internal/log"
)

// StorageKey is the persisted-state key holding the goal list.
const StorageKey = "budgetGoal"

// Storage is the slice of the persistence adapter the goal store needs.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Store owns the in-memory goal list and persists the whole list on every
// mutation. Mutations on unknown ids are silent no-ops.
type Store struct {
	mu       sync.RWMutex
	kv       Storage
	goals    []Goal
	degraded bool
}

func NewStore(kv Storage) *Store {
	return &Store{kv: kv}
}

// Load reads and normalizes the persisted goal list. Missing or corrupt
// data initializes an empty list; load never fails the caller.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.goals = nil
	raw, ok, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		slog.WarnContext(ctx, "Reading persisted goals failed, starting empty",
			applog.FieldError, err.Error(),
			applog.FieldStorageKey, StorageKey,
			applog.FieldComponent, applog.ComponentGoal)
		return
	}
	if !ok {
		return
	}

	goals, err := NormalizeStored(raw, time.Now())
	if err != nil {
		slog.WarnContext(ctx, "Persisted goals are malformed, starting empty",
			applog.FieldError, err.Error(),
			applog.FieldStorageKey, StorageKey,
			applog.FieldComponent, applog.ComponentGoal)
		return
	}
	s.goals = goals
	slog.InfoContext(ctx, "Goals loaded",
		"count", len(goals),
		applog.FieldComponent, applog.ComponentGoal,
		applog.FieldOperation, applog.OpLoad)
}

// Add validates g, assigns an id and creation time, scopes non-recurring
// goals missing a period to the current month, and persists.
func (s *Store) Add(ctx context.Context, g Goal) (Goal, error) {
	g.ID = uuid.NewString()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	if !g.Recurring && g.Month == 0 {
		p := core.CurrentPeriod(g.CreatedAt)
		g.Month, g.Year = p.Month, p.Year
	}
	if err := g.Validate(); err != nil {
		return Goal{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = append(s.goals, g)
	s.persist(ctx)
	return g, nil
}

// Update replaces the stored goal's definition, keeping id and creation
// time. Unknown ids are logged no-ops.
func (s *Store) Update(ctx context.Context, id string, g Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.goals {
		if s.goals[i].ID != id {
			continue
		}
		g.ID = id
		g.CreatedAt = s.goals[i].CreatedAt
		s.goals[i] = g
		s.persist(ctx)
		return nil
	}
	slog.WarnContext(ctx, "Update for unknown goal ignored",
		applog.FieldGoalID, id,
		applog.FieldComponent, applog.ComponentGoal,
		applog.FieldOperation, applog.OpUpdate)
	return nil
}

// Remove deletes the goal if present and persists either way.
func (s *Store) Remove(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.goals[:0]
	for _, g := range s.goals {
		if g.ID != id {
			kept = append(kept, g)
		}
	}
	s.goals = kept
	s.persist(ctx)
}

// List returns a copy of all goals in stored order.
func (s *Store) List() []Goal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Goal(nil), s.goals...)
}

// For returns the goals applicable to p in stored order.
func (s *Store) For(p core.Period) []Goal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Goal
	for _, g := range s.goals {
		if g.AppliesTo(p) {
			out = append(out, g)
		}
	}
	return out
}

// Persisted reports whether the last write reached the backing store.
func (s *Store) Persisted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.degraded
}

// persist writes the full list. Failures are logged and flip the store
// into degraded mode; in-memory state stays authoritative. Callers hold mu.
func (s *Store) persist(ctx context.Context) {
	data, err := json.Marshal(s.goals)
	if err != nil {
		slog.ErrorContext(ctx, "Encoding goals failed",
			applog.FieldError, err.Error(),
			applog.FieldComponent, applog.ComponentGoal,
			applog.FieldOperation, applog.OpPersist)
		s.degraded = true
		return
	}
	if err := s.kv.Set(ctx, StorageKey, data); err != nil {
		slog.ErrorContext(ctx, "Persisting goals failed, continuing in memory",
			applog.FieldError, err.Error(),
			applog.FieldStorageKey, StorageKey,
			applog.FieldComponent, applog.ComponentGoal,
			applog.FieldOperation, applog.OpPersist)
		s.degraded = true
		return
	}
	s.degraded = false
}

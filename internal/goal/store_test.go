package goal

import (
	"context"
	"errors"
	"testing"

	"budget/internal/core"
)

type fakeKV struct {
	data    map[string][]byte
	sets    int
	failSet bool
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string][]byte{}}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value []byte) error {
	f.sets++
	if f.failSet {
		return errors.New("backing store unavailable")
	}
	f.data[key] = value
	return nil
}

func TestStoreAddScopesAndPersists(t *testing.T) {
	kv := newFakeKV()
	s := NewStore(kv)
	s.Load(context.Background())

	got, err := s.Add(context.Background(), Goal{Type: ExpenseBelow, Amount: cents(20000)})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got.ID == "" || got.CreatedAt.IsZero() {
		t.Errorf("expected assigned id and creation time: %+v", got)
	}
	if got.Month == 0 || got.Year == 0 {
		t.Errorf("non-recurring goal must be scoped to a period: %+v", got)
	}
	if kv.sets != 1 {
		t.Errorf("expected one persist, got %d", kv.sets)
	}

	if _, err := s.Add(context.Background(), Goal{Type: "bogus"}); err == nil {
		t.Fatalf("expected validation error")
	}
	if len(s.List()) != 1 {
		t.Errorf("invalid add must not mutate state")
	}
}

func TestStoreUpdatePreservesIdentity(t *testing.T) {
	s := NewStore(newFakeKV())
	ctx := context.Background()
	added, err := s.Add(ctx, Goal{Type: BalanceAbove, Amount: cents(10000)})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := s.Update(ctx, added.ID, Goal{Type: SavingsPercent, Percentage: 15, Recurring: true}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got := s.List()[0]
	if got.ID != added.ID || !got.CreatedAt.Equal(added.CreatedAt) {
		t.Errorf("id or creation time not preserved: %+v", got)
	}
	if got.Type != SavingsPercent || got.Percentage != 15 || !got.Recurring {
		t.Errorf("definition not replaced: %+v", got)
	}

	// Unknown id does not error and does not change anything.
	if err := s.Update(ctx, "missing", Goal{Type: BalanceAbove, Amount: cents(1), Recurring: true}); err != nil {
		t.Fatalf("unknown-id Update: %v", err)
	}
	if len(s.List()) != 1 || s.List()[0].Type != SavingsPercent {
		t.Errorf("unknown-id update changed state")
	}
}

func TestStoreRemovePersistsRegardless(t *testing.T) {
	kv := newFakeKV()
	s := NewStore(kv)
	ctx := context.Background()
	added, err := s.Add(ctx, Goal{Type: SavingsFixed, Amount: cents(5000), Recurring: true})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	sets := kv.sets
	s.Remove(ctx, added.ID)
	if len(s.List()) != 0 {
		t.Errorf("goal not removed")
	}
	s.Remove(ctx, "missing")
	if kv.sets != sets+2 {
		t.Errorf("remove must persist whether or not it matched, got %d sets", kv.sets-sets)
	}
}

func TestStoreForFiltersByPeriod(t *testing.T) {
	s := NewStore(newFakeKV())
	ctx := context.Background()
	if _, err := s.Add(ctx, Goal{Type: BalanceAbove, Amount: cents(100), Month: 3, Year: 2024}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add(ctx, Goal{Type: ExpenseBelow, Amount: cents(100), Recurring: true}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if got := s.For(core.Period{Month: 3, Year: 2024}); len(got) != 2 {
		t.Errorf("3/2024: got %d goals, want 2", len(got))
	}
	if got := s.For(core.Period{Month: 4, Year: 2024}); len(got) != 1 || !got[0].Recurring {
		t.Errorf("4/2024: want only the recurring goal, got %+v", got)
	}
}

func TestStoreLoadRoundTrip(t *testing.T) {
	kv := newFakeKV()
	s := NewStore(kv)
	ctx := context.Background()
	added, err := s.Add(ctx, Goal{Type: CategoryBudget, Category: "food", Amount: cents(30000), Recurring: true})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	reopened := NewStore(kv)
	reopened.Load(ctx)
	got := reopened.List()
	if len(got) != 1 || got[0].ID != added.ID || got[0].Category != "food" {
		t.Errorf("reloaded goals differ: %+v", got)
	}
}

func TestStoreLoadCorruptStartsEmpty(t *testing.T) {
	kv := newFakeKV()
	kv.data[StorageKey] = []byte(`{"type":`)
	s := NewStore(kv)
	s.Load(context.Background())
	if len(s.List()) != 0 {
		t.Fatalf("corrupt data must yield empty list")
	}
}

func TestStorePersistFailureDegrades(t *testing.T) {
	kv := newFakeKV()
	s := NewStore(kv)
	kv.failSet = true
	added, err := s.Add(context.Background(), Goal{Type: SavingsFixed, Amount: cents(100), Recurring: true})
	if err != nil {
		t.Fatalf("Add must not fail on persistence error, got %v", err)
	}
	if s.Persisted() {
		t.Errorf("expected degraded mode")
	}
	if got := s.List(); len(got) != 1 || got[0].ID != added.ID {
		t.Errorf("in-memory state must stay authoritative")
	}
}

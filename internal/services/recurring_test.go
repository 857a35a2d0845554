package services

import (
	"context"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/ledger"
)

type memKV struct {
	data map[string][]byte
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	m.data[key] = value
	return nil
}

func newStore() *ledger.Store {
	return ledger.New(&memKV{data: map[string][]byte{}})
}

func TestProcessDueMaterializesTemplate(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	tmpl, err := store.Add(ctx, core.Transaction{
		Description: "rent",
		Amount:      core.Money{Cents: 90000},
		Type:        core.TypeExpense,
		Category:    "housing",
		Date:        core.NewDate(2024, 2, 1),
		Recurrence:  &core.Recurrence{Every: core.Monthly},
	})
	if err != nil {
		t.Fatalf("Add template: %v", err)
	}

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	processed, err := NewRecurringProcessor(store).ProcessDue(ctx, now)
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}

	all := store.All()
	if len(all) != 2 {
		t.Fatalf("got %d transactions, want template plus occurrence", len(all))
	}

	// The occurrence is a plain transaction dated now.
	occ := all[1]
	if occ.Recurrence != nil {
		t.Errorf("occurrence must not recur itself")
	}
	if occ.Description != "rent" || occ.Amount.Cents != 90000 || occ.Category != "housing" {
		t.Errorf("occurrence fields wrong: %+v", occ)
	}
	if occ.Date.Day() != 1 || occ.Date.Month() != 3 {
		t.Errorf("occurrence date = %v, want processing date", occ.Date)
	}

	// The template keeps its own date and period; only its last-run
	// stamp moves, so a second pass is a no-op.
	got, _ := store.Get(tmpl.ID)
	if got.Date.Month() != 2 || got.Date.Day() != 1 {
		t.Errorf("template date moved: %v", got.Date)
	}
	if got.Recurrence == nil || got.Recurrence.LastRun == nil || got.Recurrence.LastRun.Month() != 3 {
		t.Errorf("template last run not stamped: %+v", got.Recurrence)
	}
	processed, err = NewRecurringProcessor(store).ProcessDue(ctx, now)
	if err != nil {
		t.Fatalf("second ProcessDue: %v", err)
	}
	if processed != 0 {
		t.Errorf("second pass processed = %d, want 0", processed)
	}
	if len(store.All()) != 2 {
		t.Errorf("second pass duplicated the occurrence")
	}

	// Each record counts exactly once in the period of its date.
	feb := store.TotalExpenses(core.Period{Month: 2, Year: 2024})
	march := store.TotalExpenses(core.Period{Month: 3, Year: 2024})
	if feb.Cents != 90000 {
		t.Errorf("february expenses = %d, want 90000", feb.Cents)
	}
	if march.Cents != 90000 {
		t.Errorf("march expenses = %d, want 90000", march.Cents)
	}
}

func TestProcessDueSkipsNotDue(t *testing.T) {
	store := newStore()
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	today := core.DateOf(now)
	if _, err := store.Add(ctx, core.Transaction{
		Description: "coffee subscription",
		Amount:      core.Money{Cents: 1500},
		Type:        core.TypeExpense,
		Category:    "food",
		Date:        core.NewDate(2024, 3, 1),
		Recurrence:  &core.Recurrence{Every: core.Daily, LastRun: &today},
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := store.Add(ctx, core.Transaction{
		Description: "groceries",
		Amount:      core.Money{Cents: 5000},
		Type:        core.TypeExpense,
		Category:    "food",
		Date:        core.NewDate(2024, 3, 9), // one-off, no recurrence
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	processed, err := NewRecurringProcessor(store).ProcessDue(ctx, now)
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if processed != 0 {
		t.Errorf("processed = %d, want 0", processed)
	}
	if len(store.All()) != 2 {
		t.Errorf("collection changed with nothing due")
	}
}

func TestProcessDueIntervalTemplate(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	if _, err := store.Add(ctx, core.Transaction{
		Description: "allowance",
		Amount:      core.Money{Cents: 2000},
		Type:        core.TypeIncome,
		Category:    "family",
		Date:        core.NewDate(2024, 3, 1),
		Recurrence:  &core.Recurrence{IntervalDays: 14},
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	early := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	processed, err := NewRecurringProcessor(store).ProcessDue(ctx, early)
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if processed != 0 {
		t.Errorf("before interval elapsed: processed = %d, want 0", processed)
	}

	later := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	processed, err = NewRecurringProcessor(store).ProcessDue(ctx, later)
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if processed != 1 {
		t.Errorf("after interval elapsed: processed = %d, want 1", processed)
	}
}

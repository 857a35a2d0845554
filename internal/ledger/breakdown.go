package ledger

import (
	"sort"

	"budget/internal/core"
)

// Breakdown ranks the period's expense spending by category. Records with
// no category land in the "other" bucket. Entries are sorted by amount
// descending; ties keep first-encountered category order. Percentages are
// shares of the period's total expenses, 0 for every entry when that
// total is 0.
func (s *Store) Breakdown(p core.Period) []core.CategoryAmount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[string]int64)
	order := make(map[string]int)
	var total int64
	for _, t := range s.transactions {
		if t.Type != core.TypeExpense || !p.Contains(t.Date) {
			continue
		}
		cat := t.Category
		if cat == "" {
			cat = core.CategoryOther
		}
		if _, seen := sums[cat]; !seen {
			order[cat] = len(order)
		}
		sums[cat] += t.Amount.Cents
		total += t.Amount.Cents
	}

	out := make([]core.CategoryAmount, 0, len(sums))
	for cat, cents := range sums {
		out = append(out, core.CategoryAmount{
			Category: cat,
			Amount:   core.Money{Cents: cents},
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return order[out[i].Category] < order[out[j].Category]
	})

	if total > 0 {
		for i := range out {
			out[i].Percentage = float64(out[i].Amount.Cents) / float64(total) * 100
		}
	}
	return out
}

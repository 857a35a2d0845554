package goal

import (
	"math"
	"time"

	"budget/internal/core"
)

// Aggregates are the period totals the evaluator works from. Breakdown is
// the ranked expense-by-category list for the same period.
type Aggregates struct {
	Income    core.Money
	Expenses  core.Money
	Breakdown []core.CategoryAmount
}

// Balance is income minus expenses, possibly negative.
func (a Aggregates) Balance() core.Money {
	return core.Money{Cents: a.Income.Cents - a.Expenses.Cents}
}

// Progress is the evaluation result for one goal against one period.
type Progress struct {
	GoalID        string     `json:"goal_id"`
	Type          Type       `json:"type"`
	Title         string     `json:"title"`
	Current       core.Money `json:"current_amount"`
	Target        core.Money `json:"target_amount"`
	Percentage    float64    `json:"percentage"`
	OnTrack       bool       `json:"on_track"`
	LowerIsBetter bool       `json:"lower_is_better"`
}

// Evaluate computes a goal's progress from the period aggregates. It is a
// pure function: identical inputs yield identical output. now only
// matters for period-target projections.
func Evaluate(g Goal, p core.Period, agg Aggregates, now time.Time) Progress {
	pr := Progress{
		GoalID:        g.ID,
		Type:          g.Type,
		Title:         g.Title(),
		LowerIsBetter: g.LowerIsBetter(),
	}
	balance := agg.Balance()

	switch g.Type {
	case BalanceAbove:
		pr.Current = balance
		pr.Target = g.Amount
		pr.Percentage = ratioPercent(balance.Cents, g.Amount.Cents)
		pr.OnTrack = balance.Cents >= g.Amount.Cents

	case ExpenseBelow:
		pr.Current = agg.Expenses
		pr.Target = g.Amount
		pr.Percentage = ratioPercent(agg.Expenses.Cents, g.Amount.Cents)
		pr.OnTrack = agg.Expenses.Cents <= g.Amount.Cents

	case CategoryBudget:
		// A category absent from the breakdown means no spend yet.
		var spent core.Money
		for _, ca := range agg.Breakdown {
			if ca.Category == g.Category {
				spent = ca.Amount
				break
			}
		}
		pr.Current = spent
		pr.Target = g.Amount
		pr.Percentage = ratioPercent(spent.Cents, g.Amount.Cents)
		pr.OnTrack = spent.Cents <= g.Amount.Cents

	case SavingsPercent:
		saved := savings(agg)
		pr.Current = saved
		pr.Target = core.Money{Cents: int64(math.Round(float64(agg.Income.Cents) * g.Percentage / 100))}
		if g.Percentage <= 0 {
			// Hand-edited documents bypass Validate; report 0% rather
			// than dividing by the rate.
			break
		}
		rate := 0.0
		if agg.Income.Cents > 0 {
			rate = float64(saved.Cents) / float64(agg.Income.Cents) * 100
		}
		pr.Percentage = clampPercent(rate / g.Percentage * 100)
		pr.OnTrack = rate >= g.Percentage

	case SavingsFixed:
		saved := savings(agg)
		pr.Current = saved
		pr.Target = g.Amount
		pr.Percentage = ratioPercent(saved.Cents, g.Amount.Cents)
		pr.OnTrack = saved.Cents >= g.Amount.Cents

	case PeriodTarget:
		projected := projectBalance(balance, p, g.Days, now)
		pr.Current = balance
		pr.Target = g.Difference
		abs := g.Difference.Cents
		if abs < 0 {
			abs = -abs
		}
		// For decrease goals the bar measures how much of the intended
		// drop the projection covers, and on track means the balance is
		// falling at least as fast as the target requires.
		if g.Difference.Cents >= 0 {
			pr.Percentage = ratioPercent(projected.Cents, abs)
			pr.OnTrack = projected.Cents >= g.Difference.Cents
		} else {
			pr.Percentage = ratioPercent(-projected.Cents, abs)
			pr.OnTrack = projected.Cents <= g.Difference.Cents
		}
	}

	return pr
}

// EvaluateAll evaluates every goal applicable to p, in stored order.
func EvaluateAll(goals []Goal, p core.Period, agg Aggregates, now time.Time) []Progress {
	out := make([]Progress, 0, len(goals))
	for _, g := range goals {
		if !g.AppliesTo(p) {
			continue
		}
		out = append(out, Evaluate(g, p, agg, now))
	}
	return out
}

// projectBalance extrapolates the period balance over the goal horizon at
// the current daily rate. Zero days passed means rate zero, not a panic.
func projectBalance(balance core.Money, p core.Period, horizonDays int, now time.Time) core.Money {
	daysPassed := p.DaysPassed(now)
	daysRemaining := horizonDays - daysPassed
	if daysRemaining < 0 {
		daysRemaining = 0
	}
	rate := 0.0
	if daysPassed > 0 {
		rate = float64(balance.Cents) / float64(daysPassed)
	}
	return core.Money{Cents: balance.Cents + int64(math.Round(rate*float64(daysRemaining)))}
}

func savings(agg Aggregates) core.Money {
	s := agg.Income.Cents - agg.Expenses.Cents
	if s < 0 {
		s = 0
	}
	return core.Money{Cents: s}
}

// ratioPercent is clamp(current/target*100, 0, 100), with a zero or
// negative target defensively treated as 0%.
func ratioPercent(current, target int64) float64 {
	if target <= 0 {
		return 0
	}
	return clampPercent(float64(current) / float64(target) * 100)
}

func clampPercent(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

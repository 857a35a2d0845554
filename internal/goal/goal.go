// Package goal defines budget goals and computes progress against a
// period's aggregates.
package goal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"budget/internal/core"
)

// Type discriminates the goal variants. Each variant only reads the
// fields its Validate method requires; everything else stays zero.
type Type string

const (
	BalanceAbove   Type = "balance-above"
	ExpenseBelow   Type = "expense-below"
	CategoryBudget Type = "category-budget"
	SavingsPercent Type = "savings-percentage"
	SavingsFixed   Type = "savings-fixed"
	PeriodTarget   Type = "period-target"
)

var (
	ErrInvalidGoalType   = errors.New("invalid goal type")
	ErrInvalidPercentage = errors.New("percentage must be in (0,100]")
	ErrMissingCategory   = errors.New("category required for category-budget goal")
	ErrInvalidDays       = errors.New("days must be positive")
	ErrZeroDifference    = errors.New("target difference cannot be zero")
)

// Goal is a budget goal. Amount carries the target for the fixed-amount
// variants, Percentage the target rate for savings-percentage, and
// Days/Difference the horizon and signed target for period-target.
type Goal struct {
	ID         string     `json:"id"`
	Type       Type       `json:"type"`
	Amount     core.Money `json:"amount"`
	Percentage float64    `json:"percentage,omitempty"`
	Category   string     `json:"category,omitempty"`
	Days       int        `json:"days,omitempty"`
	Difference core.Money `json:"difference"`
	Recurring  bool       `json:"recurring"`
	Month      int        `json:"month,omitempty"`
	Year       int        `json:"year,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (g Goal) Validate() error {
	switch g.Type {
	case BalanceAbove, ExpenseBelow, SavingsFixed:
		if err := g.Amount.Validate(); err != nil {
			return err
		}
	case CategoryBudget:
		if strings.TrimSpace(g.Category) == "" {
			return ErrMissingCategory
		}
		if err := g.Amount.Validate(); err != nil {
			return err
		}
	case SavingsPercent:
		if g.Percentage <= 0 || g.Percentage > 100 {
			return ErrInvalidPercentage
		}
	case PeriodTarget:
		if g.Days <= 0 {
			return ErrInvalidDays
		}
		if g.Difference.Cents == 0 {
			return ErrZeroDifference
		}
	default:
		return ErrInvalidGoalType
	}
	if !g.Recurring {
		p := core.Period{Month: g.Month, Year: g.Year}
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// AppliesTo reports whether the goal should be evaluated for p. Recurring
// goals apply to every period; others only to the period they were
// created for.
func (g Goal) AppliesTo(p core.Period) bool {
	if g.Recurring {
		return true
	}
	return g.Month == p.Month && g.Year == p.Year
}

// Title is the display string shown next to the goal's progress bar.
func (g Goal) Title() string {
	switch g.Type {
	case BalanceAbove:
		return fmt.Sprintf("Balance above %s", g.Amount)
	case ExpenseBelow:
		return fmt.Sprintf("Keep expenses below %s", g.Amount)
	case CategoryBudget:
		return fmt.Sprintf("Keep %s spending under %s", g.Category, g.Amount)
	case SavingsPercent:
		return fmt.Sprintf("Save %.0f%% of income", g.Percentage)
	case SavingsFixed:
		return fmt.Sprintf("Save %s", g.Amount)
	case PeriodTarget:
		verb := "Increase"
		abs := g.Difference
		if abs.Cents < 0 {
			verb = "Decrease"
			abs.Cents = -abs.Cents
		}
		return fmt.Sprintf("%s balance by %s in %d days", verb, abs, g.Days)
	}
	return string(g.Type)
}

// LowerIsBetter reports whether progress toward 100% is bad news: the
// percentage formula is not inverted, only the status classification.
func (g Goal) LowerIsBetter() bool {
	switch g.Type {
	case ExpenseBelow, CategoryBudget:
		return true
	case PeriodTarget:
		return g.Difference.Cents < 0
	}
	return false
}

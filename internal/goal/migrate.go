package goal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
)

// Older releases persisted the "budgetGoal" key in two shapes this code
// no longer writes: a single goal object instead of an array, and the
// original type names "positive", "negative" and "period". NormalizeStored
// is the one place that understands both; everything downstream only ever
// sees a slice of current-shape goals.
func NormalizeStored(raw []byte, now time.Time) ([]Goal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var items []json.RawMessage
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode goal list: %w", err)
		}
	} else {
		// Legacy single-object form becomes a one-element list.
		items = []json.RawMessage{raw}
	}

	goals := make([]Goal, 0, len(items))
	for i, item := range items {
		g, err := normalizeOne(item, now)
		if err != nil {
			return nil, fmt.Errorf("decode goal %d: %w", i, err)
		}
		goals = append(goals, g)
	}
	return goals, nil
}

func normalizeOne(raw json.RawMessage, now time.Time) (Goal, error) {
	var g Goal
	if err := json.Unmarshal(raw, &g); err != nil {
		return Goal{}, err
	}

	switch g.Type {
	case "positive":
		g.Type = BalanceAbove
	case "negative":
		g.Type = ExpenseBelow
	case "period":
		g.Type = PeriodTarget
		if g.Difference.Cents == 0 {
			// The earliest period goals only carried an amount.
			g.Difference = g.Amount
		}
	}

	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	if !g.Recurring && g.Month == 0 {
		// Legacy goals were implicitly scoped to the month they were set in.
		p := core.CurrentPeriod(g.CreatedAt)
		g.Month, g.Year = p.Month, p.Year
	}
	return g, nil
}

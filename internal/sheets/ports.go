// Package sheets defines the outbound port for summary export.
package sheets

import (
	"context"

	"budget/internal/core"
)

// SummaryWriter receives a period's recomputed overview whenever the
// ledger changes.
type SummaryWriter interface {
	WriteSummary(ctx context.Context, summary core.PeriodSummary, breakdown []core.CategoryAmount) error
}

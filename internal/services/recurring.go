package services

import (
	"context"
	"log/slog"
	"time"

	"budget/internal/core"
	"budget/internal/ledger"
	applog "budget/internal/log"
)

// RecurringProcessor materializes due recurring templates into concrete
// transactions. Every materialization produces a plain copy dated now
// and stamps the template's recurrence with the run date; the template
// itself keeps its date, so it stays counted in its original period.
type RecurringProcessor struct {
	store *ledger.Store
}

func NewRecurringProcessor(store *ledger.Store) *RecurringProcessor {
	return &RecurringProcessor{store: store}
}

// ProcessDue walks every recurring template and materializes the ones
// that are due. Failures on individual templates are logged and
// skipped; the count of materialized transactions is returned.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	var templates []core.Transaction
	for _, t := range p.store.All() {
		if t.Recurrence != nil {
			templates = append(templates, t)
		}
	}

	slog.InfoContext(ctx, "Processing recurring templates",
		"total_active", len(templates),
		"processing_date", now.Format("2006-01-02"),
		applog.FieldComponent, applog.ComponentRecurring)

	processed := 0
	for _, tmpl := range templates {
		checker, err := CheckerFor(*tmpl.Recurrence)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping template with unknown recurrence",
				applog.FieldTxID, tmpl.ID,
				applog.FieldError, err.Error(),
				applog.FieldComponent, applog.ComponentRecurring)
			continue
		}
		// A template that never ran anchors on its own date.
		lastRun := tmpl.Date.Time
		if tmpl.Recurrence.LastRun != nil {
			lastRun = tmpl.Recurrence.LastRun.Time
		}
		if !checker.IsDue(lastRun, now, tmpl.Date) {
			continue
		}

		// The occurrence carries no recurrence of its own.
		occurrence := core.Transaction{
			Description: tmpl.Description,
			Amount:      tmpl.Amount,
			Type:        tmpl.Type,
			Category:    tmpl.Category,
			Date:        core.DateOf(now),
		}
		added, err := p.store.Add(ctx, occurrence)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to materialize recurring template",
				applog.FieldTxID, tmpl.ID,
				applog.FieldTxDesc, tmpl.Description,
				applog.FieldError, err.Error(),
				applog.FieldComponent, applog.ComponentRecurring)
			continue
		}

		// Stamp the template's last-run marker. The occurrence already
		// exists, so a failure here only risks a duplicate on the next
		// pass.
		stamp := core.DateOf(now)
		marked := *tmpl.Recurrence
		marked.LastRun = &stamp
		if err := p.store.Update(ctx, tmpl.ID, ledger.Patch{Recurrence: &marked}); err != nil {
			slog.ErrorContext(ctx, "Failed to stamp recurring template",
				applog.FieldTxID, tmpl.ID,
				applog.FieldError, err.Error(),
				applog.FieldComponent, applog.ComponentRecurring)
		}

		processed++
		slog.InfoContext(ctx, "Materialized recurring transaction",
			applog.FieldTxID, added.ID,
			applog.FieldTxDesc, added.Description,
			applog.FieldAmountCents, added.Amount.Cents,
			applog.FieldComponent, applog.ComponentRecurring)
	}

	slog.InfoContext(ctx, "Recurring processing complete",
		"processed", processed,
		"total_checked", len(templates),
		applog.FieldComponent, applog.ComponentRecurring)

	return processed, nil
}

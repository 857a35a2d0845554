// Package worker recomputes and exports period summaries in response to
// ledger change notifications.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	amqpclient "budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/ledger"
	applog "budget/internal/log"
	"budget/internal/sheets"
)

// Exporter reacts to change messages by reloading the persisted
// collection and writing the affected period's summary to the export
// target. It runs in its own process and never trusts message payloads
// beyond the period they name.
type Exporter struct {
	kv     ledger.Storage
	writer sheets.SummaryWriter
}

func NewExporter(kv ledger.Storage, writer sheets.SummaryWriter) *Exporter {
	return &Exporter{kv: kv, writer: writer}
}

// HandleChange is the AMQP consumer handler. Errors requeue the message.
func (e *Exporter) HandleChange(ctx context.Context, msg *amqpclient.ChangeMessage) error {
	p := core.Period{Month: msg.Month, Year: msg.Year}
	if err := p.Validate(); err != nil {
		// A bad period never becomes processable; drop by succeeding.
		fields := applog.NewFields().
			WithPeriod(msg.Month, msg.Year).
			WithError(err).
			WithComponent(applog.ComponentWorker)
		slog.WarnContext(ctx, "Dropping change message with invalid period",
			fields.ToSlice()...)
		return nil
	}

	store := ledger.New(e.kv)
	store.Load(ctx)

	summary := store.Summary(p)
	breakdown := store.Breakdown(p)

	if err := e.writer.WriteSummary(ctx, summary, breakdown); err != nil {
		return fmt.Errorf("write summary for %s: %w", p.Key(), err)
	}

	slog.InfoContext(ctx, "Period summary exported",
		applog.FieldPeriod, p.Key(),
		"op", msg.Op,
		applog.FieldTxID, msg.ID,
		applog.FieldAmountCents, summary.Balance.Cents,
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldOperation, applog.OpExport)

	return nil
}

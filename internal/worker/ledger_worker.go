package worker

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

// SnapshotSource reads the persisted ledger.
type SnapshotSource interface {
	Load(ctx context.Context) (core.FinanceData, error)
}

// LedgerSyncWorker mirrors ledger events into the transactions sheet.
type LedgerSyncWorker struct {
	snapshots SnapshotSource
	exporter  sheets.TransactionExporter
	logger    *log.Logger
}

func NewLedgerSyncWorker(snapshots SnapshotSource, exporter sheets.TransactionExporter, logger *log.Logger) *LedgerSyncWorker {
	if logger == nil {
		logger = log.FromSlog(nil, log.ComponentWorker)
	}
	return &LedgerSyncWorker{
		snapshots: snapshots,
		exporter:  exporter,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent applies one event to the sheet. A returned error makes the
// consumer requeue the message.
func (w *LedgerSyncWorker) HandleEvent(ctx context.Context, evt *amqp.LedgerEvent) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		log.FieldEventType, string(evt.Type),
		log.FieldEventID, evt.ID)

	switch evt.Type {
	case amqp.EventTransactionAdded:
		if evt.Transaction == nil {
			return fmt.Errorf("event %s: missing transaction", evt.ID)
		}
		tx, err := evt.Transaction.CoreTransaction()
		if err != nil {
			return fmt.Errorf("decode transaction: %w", err)
		}
		ref, err := w.exporter.AppendTransaction(ctx, tx, evt.Currency)
		if err != nil {
			return fmt.Errorf("append to sheets: %w", err)
		}
		w.logger.InfoContext(ctx, "Successfully exported transaction",
			log.FieldTxID, tx.ID,
			log.FieldTxType, tx.Type.String(),
			log.FieldAmount, tx.Amount.String(),
			"sheets_ref", ref)
	case amqp.EventDataReset:
		if err := w.exporter.ClearTransactions(ctx); err != nil {
			return fmt.Errorf("clear sheets: %w", err)
		}
		w.logger.InfoContext(ctx, "Sheet cleared after reset")
	default:
		w.logger.DebugContext(ctx, "Event needs no export", log.FieldEventType, string(evt.Type))
	}
	return nil
}

// StartupSync rewrites the sheet from the persisted snapshot so rows missed
// while the worker was down are recovered.
func (w *LedgerSyncWorker) StartupSync(ctx context.Context) error {
	data, err := w.snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot for startup sync: %w", err)
	}
	if err := w.exporter.ReplaceTransactions(ctx, data); err != nil {
		return fmt.Errorf("replace sheet rows: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed",
		"transactions", len(data.Transactions),
		log.FieldCurrency, data.Currency)
	return nil
}

// PeriodicResync repeats StartupSync every interval until ctx is done.
// Failures are logged and retried on the next tick.
func (w *LedgerSyncWorker) PeriodicResync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.StartupSync(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic resync failed", log.FieldError, err)
			}
		}
	}
}

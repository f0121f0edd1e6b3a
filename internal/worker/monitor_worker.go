package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finwatch/internal/amqp"
	"finwatch/internal/core"
)

// TransactionLoader reads the transaction an event refers to.
type TransactionLoader interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
}

// TransactionChecker runs the per-transaction anomaly rules.
type TransactionChecker interface {
	CheckTransaction(ctx context.Context, tx core.Transaction) ([]core.Notification, error)
}

// MonitorWorker consumes transaction events and runs the anomaly checks
// outside the request path.
type MonitorWorker struct {
	store    TransactionLoader
	detector TransactionChecker
}

func NewMonitorWorker(store TransactionLoader, detector TransactionChecker) *MonitorWorker {
	return &MonitorWorker{store: store, detector: detector}
}

// HandleTransactionEvent processes one event. A returned error makes the
// consumer requeue the message, so only failures to load the transaction are
// returned: a failed rule is logged, and retrying would duplicate the alerts
// of the rules that succeeded.
func (w *MonitorWorker) HandleTransactionEvent(ctx context.Context, msg *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"transaction_id", msg.TransactionID,
		"user_id", msg.UserID)

	tx, err := w.store.GetTransaction(ctx, msg.TransactionID)
	if errors.Is(err, core.ErrNotFound) {
		slog.InfoContext(ctx, "Transaction no longer exists, skipping", "transaction_id", msg.TransactionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}

	if msg.UserID != "" && tx.UserID != msg.UserID {
		slog.WarnContext(ctx, "Transaction event user mismatch, skipping",
			"transaction_id", tx.ID,
			"event_user_id", msg.UserID)
		return nil
	}

	// The transaction may have changed since the event was published; the
	// detector ignores anything that is no longer a completed expense.
	alerts, err := w.detector.CheckTransaction(ctx, tx)
	if err != nil {
		slog.ErrorContext(ctx, "Anomaly checks partially failed",
			"transaction_id", tx.ID,
			"error", err)
	}

	slog.InfoContext(ctx, "Transaction event processed",
		"transaction_id", tx.ID,
		"alerts", len(alerts))
	return nil
}

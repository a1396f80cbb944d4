// Package worker runs the background jobs of an instance: applying change
// notifications from other instances and checking the ledger for transfers
// left half written.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"capigastos/internal/amqp"
	"capigastos/internal/core"
	"capigastos/internal/ledger"
	"capigastos/internal/log"
	"capigastos/internal/sheets"
)

// Ledger is the part of services.LedgerService the worker drives.
type Ledger interface {
	Invalidate(tables ...sheets.Table)
	Accounts(ctx context.Context) ([]core.Account, error)
	OrphanTransfers(ctx context.Context) ([]ledger.Transfer, error)
}

// ChangeConsumer delivers change notifications until ctx is done.
type ChangeConsumer interface {
	ConsumeChanges(ctx context.Context, handler func(*amqp.ChangeMessage) error) error
}

// ChangeWorker keeps the local caches in step with writes made elsewhere.
type ChangeWorker struct {
	ledger  Ledger
	logger  *log.Logger
	applied int64
}

func NewChangeWorker(l Ledger, logger *log.Logger) *ChangeWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ChangeWorker{ledger: l, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleChangeMessage drops the cached snapshot of the table another
// instance wrote to.
func (w *ChangeWorker) HandleChangeMessage(msg *amqp.ChangeMessage) error {
	if msg == nil || !msg.Table.IsValid() {
		return fmt.Errorf("%w: %v", sheets.ErrUnknownTable, msg)
	}
	w.ledger.Invalidate(msg.Table)
	atomic.AddInt64(&w.applied, 1)
	w.logger.Debug("Invalidated table after remote write",
		log.FieldTable, msg.Table.String(),
		log.FieldOperation, msg.Operation,
		"origin", msg.Origin,
		"lag", time.Since(msg.Timestamp).Round(time.Millisecond).String())
	return nil
}

// Applied returns how many notifications were applied.
func (w *ChangeWorker) Applied() int64 {
	return atomic.LoadInt64(&w.applied)
}

// Run consumes notifications until ctx is done.
func (w *ChangeWorker) Run(ctx context.Context, consumer ChangeConsumer) error {
	err := consumer.ConsumeChanges(ctx, w.HandleChangeMessage)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// StartupCheck warms the reference cache and reports transfers missing a
// leg, which can be completed with RepairTransfer. It returns the orphans.
func (w *ChangeWorker) StartupCheck(ctx context.Context) ([]ledger.Transfer, error) {
	if _, err := w.ledger.Accounts(ctx); err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	orphans, err := w.ledger.OrphanTransfers(ctx)
	if err != nil {
		return nil, fmt.Errorf("find orphan transfers: %w", err)
	}
	if len(orphans) == 0 {
		w.logger.InfoContext(ctx, "No orphan transfers found on startup")
		return nil, nil
	}
	for _, t := range orphans {
		leg, _ := t.MissingLeg()
		w.logger.WarnContext(ctx, "Transfer is missing a leg",
			log.FieldOperation, log.OpStartup,
			log.FieldTransferID, t.ID,
			log.FieldAccount, leg.Account,
			log.FieldKind, string(leg.Kind))
	}
	return orphans, nil
}

// PeriodicCheck runs StartupCheck every interval until ctx is done.
func (w *ChangeWorker) PeriodicCheck(ctx context.Context, interval time.Duration) {
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
			if _, err := w.StartupCheck(ctx); err != nil {
				w.logger.LogError(ctx, "Periodic ledger check failed", err, log.OpStartup, nil)
			}
		}
	}
}

package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"leaderboard/internal/amqp"
	"leaderboard/internal/core"
	"leaderboard/internal/observability"
	"leaderboard/internal/sheets"
	"leaderboard/internal/storage"
)

// Export triggers, used as the metrics label.
const (
	TriggerNotification = "notification"
	TriggerResync       = "resync"
	TriggerStartup      = "startup"
)

// SyncWorker exports the persisted leaderboard to a StandingsWriter.
// Every export reloads the ledger, so notifications only need to say that
// something changed.
type SyncWorker struct {
	gateway  storage.Gateway
	registry *core.Registry
	writer   sheets.StandingsWriter
	now      func() time.Time

	// exports are serialised so an older snapshot never overwrites a newer one
	mu sync.Mutex
}

func NewSyncWorker(gateway storage.Gateway, registry *core.Registry, writer sheets.StandingsWriter) *SyncWorker {
	if registry == nil {
		registry = core.DefaultRegistry()
	}
	return &SyncWorker{
		gateway:  gateway,
		registry: registry,
		writer:   writer,
		now:      time.Now,
	}
}

// HandleLedgerChanged processes a single ledger change notification from AMQP
func (w *SyncWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "Processing ledger change",
		"message_id", msg.ID,
		"operation", msg.Operation,
		"member", msg.Member,
		"week", msg.Week)

	if err := w.export(ctx, TriggerNotification); err != nil {
		return fmt.Errorf("export after %s: %w", msg.Operation, err)
	}
	return nil
}

// Resync exports the current ledger. This is the fallback for lost
// notifications.
func (w *SyncWorker) Resync(ctx context.Context) error {
	return w.export(ctx, TriggerResync)
}

// StartupSync exports once when the worker starts, covering any changes
// made while it was down.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	if err := w.export(ctx, TriggerStartup); err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	return nil
}

func (w *SyncWorker) export(ctx context.Context, trigger string) (err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	started := w.now()
	defer func() { observability.RecordSync(trigger, err, started) }()

	l, err := w.gateway.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	snapshot := sheets.BuildSnapshot(w.registry, l, started)
	if err := w.writer.WriteStandings(ctx, snapshot); err != nil {
		return fmt.Errorf("write standings: %w", err)
	}

	slog.InfoContext(ctx, "Standings exported",
		"trigger", trigger,
		"members", len(snapshot.Standings),
		"active_weeks", len(snapshot.Weeks),
		"total_points", snapshot.Summary.TotalPoints,
		"duration", time.Since(started))
	return nil
}

package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ResyncConfig holds configuration for the periodic resync
type ResyncConfig struct {
	// Interval between exports (default: 5m)
	Interval time.Duration

	// Immediate runs one export as soon as the loop starts
	Immediate bool
}

// DefaultResyncConfig returns sensible defaults
func DefaultResyncConfig() ResyncConfig {
	return ResyncConfig{
		Interval: 5 * time.Minute,
	}
}

// Resyncer is the export the loop triggers on every tick.
type Resyncer interface {
	Resync(ctx context.Context) error
}

var ErrAlreadyRunning = errors.New("resync loop is already running")

// ResyncLoop periodically re-exports the ledger so the spreadsheet converges
// even when notifications are lost.
type ResyncLoop struct {
	target Resyncer
	config ResyncConfig

	mu      sync.Mutex
	running bool
	ticks   int
}

func NewResyncLoop(target Resyncer, config ResyncConfig) *ResyncLoop {
	if config.Interval <= 0 {
		config.Interval = DefaultResyncConfig().Interval
	}
	return &ResyncLoop{
		target: target,
		config: config,
	}
}

// Run blocks until ctx is cancelled. Failed exports are logged and retried on
// the next tick.
func (l *ResyncLoop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	ticker := time.NewTicker(l.config.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Resync loop started", "interval", l.config.Interval)

	if l.config.Immediate {
		l.tick(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Resync loop stopped")
			return nil
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *ResyncLoop) tick(ctx context.Context) {
	l.mu.Lock()
	l.ticks++
	l.mu.Unlock()

	if err := l.target.Resync(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.ErrorContext(ctx, "Periodic resync failed", "error", err)
	}
}

// IsRunning returns whether the loop is currently running
func (l *ResyncLoop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Ticks returns how many exports the loop has triggered.
func (l *ResyncLoop) Ticks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticks
}

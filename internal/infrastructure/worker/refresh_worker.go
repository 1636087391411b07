package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/workdeck/spending/internal/application/reference"
)

// SnapshotLoader produces a fresh Workdeck snapshot
type SnapshotLoader interface {
	Load(ctx context.Context) *reference.Snapshot
}

// SnapshotSink installs a snapshot, normally the spending store
type SnapshotSink interface {
	Hydrate(ctx context.Context, snap *reference.Snapshot)
}

// RefreshStats describes the refresh history of a RefreshWorker
type RefreshStats struct {
	Runs          int
	LastRun       time.Time
	LastFailed    []string
	FailedSources int
}

// RefreshWorker periodically reloads reference data and upstream expense
// history from Workdeck and hydrates the store with it
type RefreshWorker struct {
	interval time.Duration
	loader   SnapshotLoader
	sink     SnapshotSink
	logger   *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
	stats     RefreshStats
}

// NewRefreshWorker creates a refresh worker. interval must be positive.
func NewRefreshWorker(interval time.Duration, loader SnapshotLoader, sink SnapshotSink, logger *zap.Logger) *RefreshWorker {
	return &RefreshWorker{
		interval: interval,
		loader:   loader,
		sink:     sink,
		logger:   logger,
	}
}

// Start begins the refresh loop. The first refresh happens one interval
// after Start; the initial load is the container's job.
func (w *RefreshWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", w.interval)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return fmt.Errorf("refresh worker already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("RefreshWorker started", zap.Duration("interval", w.interval))
	go w.loop(loopCtx, w.done)
	return nil
}

// Stop terminates the loop and waits for an in-flight refresh to finish
func (w *RefreshWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	stats := w.Stats()
	w.logger.Info("RefreshWorker stopped", zap.Int("runs", stats.Runs))
	return nil
}

// Name returns the worker name for identification
func (w *RefreshWorker) Name() string {
	return "RefreshWorker"
}

// Refresh runs one load-and-hydrate cycle. A snapshot with failed sources is
// dropped so the store keeps the last complete data.
func (w *RefreshWorker) Refresh(ctx context.Context) {
	snap := w.loader.Load(ctx)
	if ctx.Err() != nil {
		w.logger.Info("Refresh abandoned", zap.Error(ctx.Err()))
		return
	}

	w.mu.Lock()
	w.stats.Runs++
	w.stats.LastRun = time.Now()
	w.stats.LastFailed = append([]string(nil), snap.Failed...)
	w.stats.FailedSources += len(snap.Failed)
	w.mu.Unlock()

	if len(snap.Failed) > 0 {
		w.logger.Warn("Refresh skipped, sources failed", zap.Strings("sources", snap.Failed))
		return
	}
	w.sink.Hydrate(ctx, snap)
	w.logger.Debug("Refresh completed", zap.Int("history", len(snap.History)))
}

// Stats returns a copy of the refresh statistics
func (w *RefreshWorker) Stats() RefreshStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.stats
	out.LastFailed = append([]string(nil), w.stats.LastFailed...)
	return out
}

func (w *RefreshWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Refresh(ctx)
		}
	}
}

package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPollInterval is used when the watcher interval is not positive.
const DefaultPollInterval = 5 * time.Second

// Watcher reconciles the active session on a fixed interval so expiry and end
// requests are honored even when no CLI command runs.
type Watcher struct {
	manager  *Manager
	interval time.Duration
	logger   zerolog.Logger
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewWatcher creates a watcher for manager.
func NewWatcher(manager *Manager, interval time.Duration, logger zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{
		manager:  manager,
		interval: interval,
		logger:   logger.With().Str("component", "session-watcher").Logger(),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins polling in the background.
func (w *Watcher) Start() {
	go w.run()
	w.logger.Info().Dur("interval", w.interval).Msg("Session watcher started")
}

// Stop ends polling and waits for an in-flight reconcile to return.
func (w *Watcher) Stop() {
	close(w.stopChan)
	<-w.doneChan
	w.logger.Info().Msg("Session watcher stopped")
}

func (w *Watcher) run() {
	defer close(w.doneChan)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-w.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) tick(ctx context.Context) {
	rec, err := w.manager.Reconcile(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("Failed to reconcile session")
		}
		return
	}
	if rec != nil {
		w.logger.Debug().Str("session_id", rec.ID).Str("outcome", string(rec.Outcome)).Msg("Reconciled session")
	}
}

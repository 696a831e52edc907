// Package watcher turns page change signals into rescans.
package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/blockedby/chat-observer/internal/logger"
)

// Rescanner re-examines every latest message group on the page.
// It must be safe to call concurrently; overlapping calls are resolved
// by the implementation.
type Rescanner interface {
	Rescan(ctx context.Context) error
}

// Watcher drives a Rescanner from a stream of change signals.
type Watcher struct {
	signals      <-chan struct{}
	target       Rescanner
	initialDelay time.Duration
	log          *logger.Logger

	wg sync.WaitGroup
}

// New creates a Watcher. initialDelay is the pause before the eager scan
// that catches content rendered before monitoring started.
func New(signals <-chan struct{}, target Rescanner, initialDelay time.Duration, log *logger.Logger) *Watcher {
	return &Watcher{
		signals:      signals,
		target:       target,
		initialDelay: initialDelay,
		log:          log,
	}
}

// Run blocks until ctx is done or the signal channel closes, then waits
// for in-flight rescans to return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.wg.Wait()

	eager := time.NewTimer(w.initialDelay)
	defer eager.Stop()

	w.log.Info().Dur("initial_delay", w.initialDelay).Msg("watcher started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("watcher stopped")
			return nil
		case <-eager.C:
			w.log.Debug().Msg("eager rescan")
			w.fire(ctx)
		case _, ok := <-w.signals:
			if !ok {
				w.log.Warn().Msg("change signal stream closed")
				return nil
			}
			w.fire(ctx)
		}
	}
}

// fire starts a rescan without blocking the signal loop, so a long
// resolution never delays delivery of the next signal.
func (w *Watcher) fire(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.target.Rescan(ctx); err != nil && ctx.Err() == nil {
			w.log.Debug().Err(err).Msg("rescan not run")
		}
	}()
}

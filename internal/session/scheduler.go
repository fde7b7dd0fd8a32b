package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/blog-edge/internal/api"
	"github.com/sakif/blog-edge/internal/tokenstore"
)

// AutoRefresh proactively renews the access token on a recurring timer so
// the session never interrupts the user with an expired credential.
//
// The tick interval is max(lifetime − lead, minInterval): refresh one
// minute before expiry, but never more often than once a minute. Start
// always stops any previous timer first, so repeated Start calls leave
// exactly one timer armed. A tick with no token present does nothing (the
// timer keeps running — the session may log back in). After maxFailures
// consecutive failed refreshes the scheduler gives up and invokes
// onExhausted instead of retrying a dead refresh token forever.
type AutoRefresh struct {
	store     *tokenstore.Store
	refresher api.Refresher
	logger    *slog.Logger

	// onExhausted runs after maxFailures consecutive refresh failures.
	// The controller hooks this to force a logout. May be nil.
	onExhausted func()

	lead        time.Duration
	minInterval time.Duration
	maxFailures int

	mu   sync.Mutex
	stop chan struct{} // nil when not running
}

// NewAutoRefresh creates a stopped scheduler.
func NewAutoRefresh(store *tokenstore.Store, refresher api.Refresher, logger *slog.Logger, onExhausted func()) *AutoRefresh {
	return &AutoRefresh{
		store:       store,
		refresher:   refresher,
		logger:      logger,
		onExhausted: onExhausted,
		lead:        time.Minute,
		minInterval: time.Minute,
		maxFailures: 3,
	}
}

// Start arms the timer from the stored expiry. Calling Start while running
// replaces the existing timer — at most one is ever active. Without a
// stored expiry there is nothing to schedule against, so Start stops any
// running timer and returns.
func (a *AutoRefresh) Start() {
	a.Stop()

	expiry, ok := a.store.ExpiresAtTime()
	if !ok {
		a.logger.Error("auto-refresh: no expiration time stored")
		return
	}

	interval := time.Until(expiry) - a.lead
	if interval < a.minInterval {
		interval = a.minInterval
	}

	a.mu.Lock()
	stop := make(chan struct{})
	a.stop = stop
	a.mu.Unlock()

	go a.run(interval, stop)
}

func (a *AutoRefresh) run(interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if a.store.Token() == "" {
				continue
			}
			if _, err := a.refresher.Refresh(context.Background()); err != nil {
				failures++
				a.logger.Error("auto-refresh: refresh failed",
					slog.Int("consecutiveFailures", failures),
					slog.String("error", err.Error()),
				)
				if failures >= a.maxFailures {
					a.logger.Error("auto-refresh: giving up after repeated failures")
					a.mu.Lock()
					if a.stop == stop {
						a.stop = nil
					}
					a.mu.Unlock()
					if a.onExhausted != nil {
						a.onExhausted()
					}
					return
				}
				continue
			}
			failures = 0
		}
	}
}

// Stop cancels the timer. Safe to call when not running, and safe to call
// repeatedly.
func (a *AutoRefresh) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stop != nil {
		close(a.stop)
		a.stop = nil
	}
}

// Running reports whether a timer is currently armed.
func (a *AutoRefresh) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stop != nil
}

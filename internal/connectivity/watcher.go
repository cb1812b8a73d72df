// Package connectivity tracks whether the uplink to the hosted backend is
// usable. The flag is advisory: a probe can pass moments before a real
// request fails, so callers treat Online as a hint and the request outcome
// as the truth.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Prober checks reachability of the hosted backend.
type Prober interface {
	Ping(ctx context.Context) error
}

// Watcher probes the uplink on an interval and publishes transitions. It
// starts offline; the first probe runs immediately when Run begins, so the
// relay knows its real state at startup.
type Watcher struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	clock    clockwork.Clock

	online atomic.Bool

	mu   sync.Mutex
	subs []chan bool
}

// NewWatcher creates a watcher that probes via prober every interval, with
// timeout applied per probe.
func NewWatcher(prober Prober, interval, timeout time.Duration, logger *slog.Logger) *Watcher {
	return &Watcher{
		prober:   prober,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		clock:    clockwork.NewRealClock(),
	}
}

// Online returns the advisory uplink state.
func (w *Watcher) Online() bool {
	return w.online.Load()
}

// Subscribe returns a channel that receives the new state after each
// transition. The channel holds one pending signal and drops the rest; a
// subscriber that lags coalesces transitions and reads the current truth
// from Online.
func (w *Watcher) Subscribe() <-chan bool {
	ch := make(chan bool, 1)
	w.mu.Lock()
	w.subs = append(w.subs, ch)
	w.mu.Unlock()
	return ch
}

// Recheck probes the uplink now, updates the advisory state, and returns it.
// Callers that just watched a request fail use this to decide whether the
// failure means "backend rejected it" or "we are offline".
func (w *Watcher) Recheck(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	err := w.prober.Ping(probeCtx)
	online := err == nil
	w.setOnline(online, err)
	return online
}

// Run probes at the configured interval until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("connectivity watcher started", "interval", w.interval, "probe_timeout", w.timeout)
	w.Recheck(ctx)

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("connectivity watcher stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			w.Recheck(ctx)
		}
	}
}

func (w *Watcher) setOnline(online bool, cause error) {
	was := w.online.Swap(online)
	if was == online {
		return
	}

	if online {
		w.logger.Info("uplink online")
	} else {
		w.logger.Warn("uplink offline", "error", cause)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- online:
		default:
		}
	}
}

package syncqueue

import (
	"context"
	"log/slog"
	"time"
)

// Runner drives the synchronizer: a periodic pass plus an on-demand
// trigger for connectivity-regain events. When Catalog is set it also
// mirrors the server catalog, once at startup and then on its own
// cadence.
type Runner struct {
	Sync     *Synchronizer
	Interval time.Duration
	Timeout  time.Duration
	Log      *slog.Logger

	Catalog         *Refresher
	CatalogInterval time.Duration

	trigger chan struct{}
}

// NewRunner creates a Runner around sync.
func NewRunner(sync *Synchronizer, interval, timeout time.Duration, log *slog.Logger) *Runner {
	return &Runner{
		Sync:     sync,
		Interval: interval,
		Timeout:  timeout,
		Log:      log,
		trigger:  make(chan struct{}, 1),
	}
}

// TriggerNow requests an immediate drain pass. Safe to call from any
// goroutine; coalesces with an already pending trigger.
func (r *Runner) TriggerNow() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled, draining the queue on every tick
// and on every trigger.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	var catalogTicks <-chan time.Time
	if r.Catalog != nil {
		// Warm the mirror before the first drain so the terminal
		// has a catalog even if it never regains connectivity.
		r.refreshCatalog(ctx)

		interval := r.CatalogInterval
		if interval <= 0 {
			interval = r.Interval
		}
		catalogTicker := time.NewTicker(interval)
		defer catalogTicker.Stop()
		catalogTicks = catalogTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-catalogTicks:
			r.refreshCatalog(ctx)
			continue
		case <-ticker.C:
		case <-r.trigger:
		}
		r.pass(ctx)
	}
}

func (r *Runner) refreshCatalog(ctx context.Context) {
	refreshCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		refreshCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	if err := r.Catalog.Refresh(refreshCtx); err != nil {
		r.Log.Warn("catalog refresh failed, keeping cached copy", "err", err)
	}
}

func (r *Runner) pass(ctx context.Context) {
	passCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		passCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	if _, err := r.Sync.Drain(passCtx); err != nil {
		r.Log.Error("sync pass aborted on local storage fault", "err", err)
	}
}

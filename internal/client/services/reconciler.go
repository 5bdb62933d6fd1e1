package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adiwira/kuliner-nusantara/internal/client/api"
	"github.com/adiwira/kuliner-nusantara/internal/logging"
)

// pingTimeout bounds a single connectivity probe.
const pingTimeout = 3 * time.Second

// Drainer is the queue side of the reconciler; StoryService satisfies it.
type Drainer interface {
	Drain(ctx context.Context) error
}

// Reconciler tracks the runtime's connectivity belief and triggers a queue
// drain whenever the connection is plausibly restored. It is a two-state
// machine: a drain runs or it does not, and restoration signals arriving
// while one runs are dropped rather than stacked.
type Reconciler struct {
	client  api.Client
	drainer Drainer
	logger  logging.Logger

	online  atomic.Bool
	drainMu sync.Mutex
}

func NewReconciler(client api.Client, drainer Drainer, logger logging.Logger) *Reconciler {
	return &Reconciler{client: client, drainer: drainer, logger: logger}
}

// Online reports the current connectivity belief. It starts false and is
// updated by Watch probes.
func (r *Reconciler) Online() bool {
	return r.online.Load()
}

// OnOnline starts one drain pass unless one is already running. It returns
// whether a new pass was started; the pass itself runs asynchronously so the
// signal source is never blocked.
func (r *Reconciler) OnOnline(ctx context.Context) bool {
	if !r.drainMu.TryLock() {
		r.logger.Debug(ctx, "drain already in progress, signal ignored")
		return false
	}

	go func() {
		defer r.drainMu.Unlock()
		if err := r.drainer.Drain(ctx); err != nil {
			r.logger.Error(ctx, "drain failed", "error", err)
		}
	}()
	return true
}

// Watch probes the server on the given interval, keeping the Online flag
// current and firing OnOnline on every offline-to-online transition. The
// first probe runs immediately, so starting up with connectivity drains any
// queue left over from the previous run.
func (r *Reconciler) Watch(ctx context.Context, interval time.Duration) {
	r.probe(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reconciler) probe(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := r.client.Ping(pingCtx)
	cancel()

	if err != nil {
		if r.online.Swap(false) {
			r.logger.Info(ctx, "connection lost, switching to offline mode")
		}
		return
	}

	if !r.online.Swap(true) {
		r.logger.Info(ctx, "connection restored, switching to online mode")
		r.OnOnline(ctx)
	}
}

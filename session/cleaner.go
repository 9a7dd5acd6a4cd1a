package session

import (
	"context"
	"log/slog"
	"time"
)

// DefaultCleanInterval is how often the cleaner looks for an expired session.
const DefaultCleanInterval = time.Minute

// Cleaner periodically drops the active session once it has expired, so an
// abandoned login does not linger until the next validation attempt.
type Cleaner struct {
	store    *Store
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCleaner creates a cleaner for store. A non-positive interval selects
// DefaultCleanInterval.
func NewCleaner(store *Store, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = DefaultCleanInterval
	}
	return &Cleaner{
		store:    store,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (sc *Cleaner) Start(ctx context.Context) {
	ctx, sc.cancel = context.WithCancel(ctx)
	go func() {
		defer close(sc.done)
		ticker := time.NewTicker(sc.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sc.cleanup()
			}
		}
	}()
}

// Stop signals the cleanup loop to stop and waits for it.
func (sc *Cleaner) Stop() {
	if sc.cancel != nil {
		sc.cancel()
	}
	<-sc.done
}

func (sc *Cleaner) cleanup() {
	if sc.store.TTL() <= 0 {
		return // no TTL configured, nothing to clean
	}
	if sc.store.ExpireStale() {
		slog.Info("expired session cleaned up")
	}
}

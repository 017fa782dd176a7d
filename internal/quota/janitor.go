package quota

import (
	"context"
	"log/slog"
	"time"
)

// Janitor periodically deletes expired quota records, standing in for the
// TTL-based expiry a document store would do natively.
type Janitor struct {
	store    *PGStore
	interval time.Duration
}

func NewJanitor(store *PGStore, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Janitor{store: store, interval: interval}
}

// Run sweeps on a ticker until ctx is canceled. Sweep failures are logged and
// retried on the next tick; stale rows are harmless (day keys never repeat).
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := j.store.Sweep(ctx)
			if err != nil {
				slog.Warn("quota janitor sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("quota janitor removed expired records", "count", n)
			}
		}
	}
}

// Package expiry removes blocklist entries once their expiry has passed.
package expiry

import (
	"context"
	"time"

	"github.com/modmail-dev/modmail/internal/database/dbretry"
	"github.com/modmail-dev/modmail/pkg/utils"
	"go.uber.org/zap"
)

// DefaultInterval is used when no sweep interval is configured.
const DefaultInterval = 60 * time.Second

// Purger deletes expired blocklist entries.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Worker periodically purges expired blocks. Reads already ignore expired
// rows, so a late sweep never changes what callers observe.
type Worker struct {
	purger   Purger
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// New creates a new expiry worker. A non-positive interval falls back to DefaultInterval.
func New(purger Purger, interval time.Duration, logger *zap.Logger) *Worker {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Worker{
		purger:   purger,
		interval: interval,
		now:      time.Now,
		logger:   logger.Named("expiry_worker"),
	}
}

// Start runs sweeps until the context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Expiry worker started", zap.Duration("interval", w.interval))

	for {
		if _, err := w.Sweep(ctx); err != nil && !utils.ContextGuard(ctx) {
			w.logger.Error("Failed to purge expired blocks", zap.Error(err))
		}

		if !utils.IntervalSleep(ctx, w.interval, w.logger, "expiry worker") {
			return nil
		}
	}
}

// Sweep performs a single purge pass and returns the number of entries removed.
func (w *Worker) Sweep(ctx context.Context) (int64, error) {
	now := w.now().UTC()

	removed, err := dbretry.Operation(ctx, func(ctx context.Context) (int64, error) {
		return w.purger.PurgeExpired(ctx, now)
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		w.logger.Info("Purged expired blocks", zap.Int64("count", removed))
	} else {
		w.logger.Debug("No expired blocks to purge")
	}

	return removed, nil
}

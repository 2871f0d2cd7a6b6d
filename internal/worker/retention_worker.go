package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// HistoryPruner deletes analysis history older than a cutoff.
type HistoryPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionWorker periodically prunes old card analysis history.
type RetentionWorker struct {
	pruner    HistoryPruner
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

// NewRetentionWorker constructs a RetentionWorker.
func NewRetentionWorker(pruner HistoryPruner, retention, interval time.Duration) *RetentionWorker {
	return &RetentionWorker{
		pruner:    pruner,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

// Start runs one pass immediately, then every interval until ctx is canceled.
func (w *RetentionWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Dur("retention", w.retention).Msg("Starting retention worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.run(ctx)
	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Retention worker stopped")
			return
		}
	}
}

func (w *RetentionWorker) run(ctx context.Context) {
	cutoff := w.now().Add(-w.retention)
	n, err := w.pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Failed to prune analysis history")
		return
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("Pruned analysis history")
	}
}

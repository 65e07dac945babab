package reporter

import (
	"context"
	"log/slog"
	"maps"
	"time"
)

// StatusSource reports the number of monitors per status.
type StatusSource interface {
	StatusCounts() map[string]int
}

// Publisher receives every sample. *metrics.Collector satisfies it.
type Publisher interface {
	SetMonitorCounts(counts map[string]int)
}

type Reporter struct {
	source    StatusSource
	publisher Publisher
	interval  time.Duration
	logger    *slog.Logger

	last map[string]int
}

func New(source StatusSource, publisher Publisher, interval time.Duration, logger *slog.Logger) *Reporter {
	return &Reporter{
		source:    source,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
	}
}

// Run samples immediately and then on every tick until ctx is done.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sample(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Status reporter stopped")
			return nil

		case <-ticker.C:
			r.sample(ctx)
		}
	}
}

func (r *Reporter) sample(ctx context.Context) {
	counts := r.source.StatusCounts()

	if r.publisher != nil {
		r.publisher.SetMonitorCounts(counts)
	}

	if maps.Equal(counts, r.last) {
		return
	}
	r.last = counts

	attrs := make([]any, 0, len(counts))
	for status, n := range counts {
		attrs = append(attrs, slog.Int(status, n))
	}
	r.logger.InfoContext(ctx, "Monitor status changed", attrs...)
}

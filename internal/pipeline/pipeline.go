// Package pipeline publishes every day's snapshot to a downstream sink so
// renderers can replay the whole outbreak without the source files.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/county-choropleth/internal/domain"
	"github.com/couchcryptid/county-choropleth/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// SnapshotSource builds day snapshots over a known day range.
type SnapshotSource interface {
	BuildSnapshot(day int) domain.Snapshot
	DayRange() (first, last int)
}

// BatchLoader writes multiple snapshots to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, snaps []domain.Snapshot) error
}

// Publisher walks the observed day range and loads snapshots in batches.
type Publisher struct {
	source    SnapshotSource
	loader    BatchLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	batchSize int
}

// New creates a Publisher with the given source, sink and observability.
func New(src SnapshotSource, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Publisher {
	return &Publisher{
		source:    src,
		loader:    l,
		logger:    logger,
		metrics:   metrics,
		batchSize: max(batchSize, 1),
	}
}

// CheckReadiness returns nil once every day has been published.
func (p *Publisher) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("snapshots have not been published yet")
	}
	return nil
}

// Ready reports whether the last Run published every day.
func (p *Publisher) Ready() bool {
	return p.ready.Load()
}

// Run publishes every day from the first to the last observed day. Load
// failures are retried with backoff until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	first, last := p.source.DayRange()
	p.logger.Info("publisher started", "first_day", first, "last_day", last, "batch_size", p.batchSize)
	p.metrics.PublisherRunning.Set(1)
	defer p.metrics.PublisherRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for start := first; start <= last; start += p.batchSize {
		end := min(start+p.batchSize-1, last)
		batch := p.buildBatch(start, end)

		for {
			if ctx.Err() != nil {
				p.logger.Info("publisher stopping", "reason", ctx.Err(), "next_day", start)
				return nil
			}
			err := p.loader.LoadBatch(ctx, batch)
			if err == nil {
				break
			}
			p.metrics.PublishErrors.Inc()
			p.logger.Error("load batch failed", "error", err, "first_day", start, "last_day", end)
			if !retry.SleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
		}

		backoff = 200 * time.Millisecond
		p.metrics.SnapshotsPublished.Add(float64(len(batch)))
		p.metrics.PublishBatchSize.Observe(float64(len(batch)))
		p.logger.Debug("batch published", "first_day", start, "last_day", end)
	}

	p.ready.Store(true)
	p.logger.Info("publisher finished", "days", last-first+1)
	return nil
}

func (p *Publisher) buildBatch(start, end int) []domain.Snapshot {
	batch := make([]domain.Snapshot, 0, end-start+1)
	for day := start; day <= end; day++ {
		t0 := time.Now()
		snap := p.source.BuildSnapshot(day)
		p.metrics.SnapshotBuildDuration.Observe(time.Since(t0).Seconds())
		p.metrics.SnapshotsBuilt.Inc()
		if snap.Empty() {
			p.metrics.SnapshotEmptyJoins.Inc()
			p.logger.Debug("empty join", "day", day)
		}
		batch = append(batch, snap)
	}
	return batch
}

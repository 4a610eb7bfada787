// Package pipeline orchestrates the streaming extract-transform-aggregate
// loop and exposes readiness for the HTTP server.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-damage-aggregator/internal/domain"
	"github.com/couchcryptid/storm-damage-aggregator/internal/observability"
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a raw event into a cleaned record.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.Record, error)
}

// BatchPublisher writes cleaned records to the sink topic. Optional: a nil
// publisher disables republishing.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, records []domain.Record) error
}

// Aggregator folds cleaned records into the running per-category aggregates.
type Aggregator interface {
	AddBatch(records []domain.Record)
	Categories() int
}

// Pipeline orchestrates the extract-transform-aggregate loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	publisher   BatchPublisher
	aggregator  Aggregator
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability. Pass a nil
// publisher to aggregate without republishing cleaned records.
func New(
	e BatchExtractor,
	t Transformer,
	p BatchPublisher,
	a Aggregator,
	logger *slog.Logger,
	metrics *observability.Metrics,
	batchSize int,
) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		publisher:   p,
		aggregator:  a,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once the pipeline has aggregated at least one
// record, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not aggregated any records yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize, "publish", p.publisher != nil)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during Kafka outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-transform-aggregate cycle. Returns false if
// the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.RecordsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	aggregated, ok := p.transformAndAggregate(ctx, rawBatch, backoff, maxBackoff)
	if !ok {
		return false
	}

	if aggregated > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// transformAndAggregate transforms each event in the batch, publishes the
// successes when a publisher is configured, folds them into the running
// aggregates, and commits offsets. Aggregation happens after publishing so a
// publish retry cannot double-count records. Returns the number of records
// aggregated and false if the pipeline should stop.
func (p *Pipeline) transformAndAggregate(ctx context.Context, rawBatch []domain.RawEvent, backoff *time.Duration, maxBackoff time.Duration) (int, bool) {
	records := make([]domain.Record, 0, len(rawBatch))
	successfulRaws := make([]domain.RawEvent, 0, len(rawBatch))

	for _, raw := range rawBatch {
		rec, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("transform failed, skipping record",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		records = append(records, rec)
		successfulRaws = append(successfulRaws, raw)
	}

	if len(records) == 0 {
		return 0, true
	}

	if p.publisher != nil {
		if err := p.publisher.PublishBatch(ctx, records); err != nil {
			p.logger.Error("publish batch failed", "error", err, "batch_size", len(records))
			return 0, p.backoffOrStop(ctx, backoff, maxBackoff)
		}
		p.metrics.RecordsPublished.Add(float64(len(records)))
	}

	p.aggregator.AddBatch(records)
	p.metrics.Categories.Set(float64(p.aggregator.Categories()))

	for _, raw := range successfulRaws {
		p.commitOffset(ctx, raw)
	}

	return len(records), true
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

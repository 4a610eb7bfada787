package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/storm-damage-aggregator/internal/aggregate"
	"github.com/couchcryptid/storm-damage-aggregator/internal/domain"
	"github.com/couchcryptid/storm-damage-aggregator/internal/observability"
	"github.com/couchcryptid/storm-damage-aggregator/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// Block until context cancelled to simulate waiting for messages.
		<-ctx.Done()
		return nil, nil
	}
	return m.batches[i], nil
}

type mockPublisher struct {
	published []domain.Record
	err       error
}

func (m *mockPublisher) PublishBatch(_ context.Context, records []domain.Record) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, records...)
	return nil
}

func rawEvent(value string) domain.RawEvent {
	return domain.RawEvent{Key: []byte("key"), Value: []byte(value), Topic: "raw-storm-records"}
}

const tornadoJSON = `{"EVTYPE":"tornado","FATALITIES":"1","INJURIES":"10","PROPDMG":"1.5","PROPDMGEXP":"K","CROPDMG":"2.0","CROPDMGEXP":"m"}`

func newTestPipeline(ext pipeline.BatchExtractor, pub pipeline.BatchPublisher) (*pipeline.Pipeline, *aggregate.Accumulator, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	acc := aggregate.NewAccumulator()
	tfm := pipeline.NewTransformer(metrics, slog.Default())
	p := pipeline.New(ext, tfm, pub, acc, slog.Default(), metrics, 50)
	return p, acc, metrics
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawEvent{{rawEvent(tornadoJSON)}}}
	pub := &mockPublisher{}
	p, acc, _ := newTestPipeline(ext, pub)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)

	require.Len(t, pub.published, 1)
	assert.Equal(t, "TORNADO", pub.published[0].EventType)

	summary, err := acc.Snapshot("total_damage")
	require.NoError(t, err)
	require.Len(t, summary.Rows, 1)
	assert.Equal(t, 2001500.0, summary.Rows[0].Total)

	assert.NoError(t, p.CheckReadiness(ctx))
}

func TestPipeline_Run_NilPublisher(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawEvent{{rawEvent(tornadoJSON)}}}
	p, acc, _ := newTestPipeline(ext, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 1, acc.Records())
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no batches, will block
	p, acc, _ := newTestPipeline(ext, &mockPublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 0, acc.Records())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_PoisonPillSkippedAndCommitted(t *testing.T) {
	var committed atomic.Int64
	poison := rawEvent("not-json{{{")
	poison.Commit = func(context.Context) error {
		committed.Add(1)
		return nil
	}
	good := rawEvent(tornadoJSON)
	good.Commit = func(context.Context) error {
		committed.Add(1)
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{poison, good}}}
	pub := &mockPublisher{}
	p, acc, _ := newTestPipeline(ext, pub)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))

	assert.Len(t, pub.published, 1, "only the valid record is published")
	assert.Equal(t, 1, acc.Records())
	assert.Equal(t, int64(2), committed.Load(), "poison pill offset is committed too")
}

func TestPipeline_Run_PublishFailureDoesNotAggregate(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawEvent{{rawEvent(tornadoJSON)}}}
	pub := &mockPublisher{err: errors.New("broker down")}
	p, acc, _ := newTestPipeline(ext, pub)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 0, acc.Records(), "failed publishes must not be double-counted later")
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestRecordTransformer_Transform(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	tfm := pipeline.NewTransformer(metrics, slog.Default())

	rec, err := tfm.Transform(context.Background(), rawEvent(tornadoJSON))
	require.NoError(t, err)
	assert.Equal(t, "TORNADO", rec.EventType)
	assert.Equal(t, 11.0, rec.Casualties())
	require.NotNil(t, rec.TotalDamage)
	assert.Equal(t, 2001500.0, *rec.TotalDamage)
	assert.Equal(t, []byte(tornadoJSON), rec.RawPayload)
}

func TestRecordTransformer_Transform_InvalidJSON(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	tfm := pipeline.NewTransformer(metrics, slog.Default())

	_, err := tfm.Transform(context.Background(), rawEvent("not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse raw event")
}

func TestRecordTransformer_Transform_JunkExpCode(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	tfm := pipeline.NewTransformer(metrics, slog.Default())

	rec, err := tfm.Transform(context.Background(), rawEvent(
		`{"EVTYPE":"HAIL","PROPDMG":"10","PROPDMGEXP":"?","CROPDMG":"1","CROPDMGEXP":"K"}`,
	))
	require.NoError(t, err, "junk exponent codes are data noise, not errors")
	assert.Nil(t, rec.PropertyDamage)
	require.NotNil(t, rec.CropDamage)
	assert.Equal(t, 1000.0, *rec.CropDamage)
}

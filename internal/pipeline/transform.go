package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/storm-damage-aggregator/internal/domain"
	"github.com/couchcryptid/storm-damage-aggregator/internal/observability"
)

// RecordTransformer implements Transformer using the domain cleaning
// functions, counting data-quality anomalies as it goes.
type RecordTransformer struct {
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewTransformer creates a RecordTransformer.
func NewTransformer(metrics *observability.Metrics, logger *slog.Logger) *RecordTransformer {
	return &RecordTransformer{
		metrics: metrics,
		logger:  logger,
	}
}

func (t *RecordTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.Record, error) {
	row, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.Record{}, err
	}

	t.countInvalidCodes(row)

	rec := domain.CleanRecord(row)
	rec.RawPayload = raw.Value
	return rec, nil
}

// countInvalidCodes tracks exponent codes outside the allow-list. They are
// not errors (the magnitude just resolves as missing), but their rate is the
// main data-quality signal for this feed.
func (t *RecordTransformer) countInvalidCodes(row domain.RawRow) {
	if domain.NormalizeExpCode(row.PropDamageExp) == nil {
		t.metrics.InvalidExpCodes.WithLabelValues("property").Inc()
	}
	if domain.NormalizeExpCode(row.CropDamageExp) == nil {
		t.metrics.InvalidExpCodes.WithLabelValues("crop").Inc()
	}
}

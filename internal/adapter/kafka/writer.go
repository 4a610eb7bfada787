package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-damage-aggregator/internal/config"
	"github.com/couchcryptid/storm-damage-aggregator/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes cleaned records to the sink topic.
// It implements pipeline.BatchPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishBatch serializes and publishes multiple cleaned records in a single
// WriteMessages call.
func (w *Writer) PublishBatch(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a cleaned record into a Kafka message. The
// normalized event type keys the message so one category's records land on
// one partition.
func serializeToMessage(rec domain.Record) (kafkago.Message, error) {
	data, err := domain.SerializeRecord(rec)
	if err != nil {
		return kafkago.Message{}, err
	}
	return kafkago.Message{
		Key:   []byte(rec.EventType),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(rec.EventType)},
			{Key: "processed_at", Value: []byte(rec.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}

package kafka

import (
	"testing"
	"time"

	"github.com/couchcryptid/storm-damage-aggregator/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("key-1"),
		Value:     []byte(`{"EVTYPE":"TORNADO"}`),
		Topic:     "raw-storm-records",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("ncdc")},
		},
	}

	r := &Reader{}
	raw := r.mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("key-1"), raw.Key)
	assert.JSONEq(t, `{"EVTYPE":"TORNADO"}`, string(raw.Value))
	assert.Equal(t, "raw-storm-records", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "ncdc", raw.Headers["source"])
	assert.NotNil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	damage := 2001500.0
	rec := domain.Record{
		EventType:   "TORNADO",
		Fatalities:  1,
		Injuries:    10,
		TotalDamage: &damage,
		ProcessedAt: now,
	}

	msg, err := serializeToMessage(rec)
	require.NoError(t, err)

	assert.Equal(t, []byte("TORNADO"), msg.Key)
	assert.Contains(t, string(msg.Value), `"event_type":"TORNADO"`)
	assert.Contains(t, string(msg.Value), `"total_damage":2001500`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("TORNADO"), msg.Headers[0].Value)
	assert.Equal(t, "processed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

package aggregate_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/couchcryptid/storm-damage-aggregator/internal/aggregate"
	"github.com/couchcryptid/storm-damage-aggregator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_MatchesSummarize(t *testing.T) {
	records := []domain.Record{
		record("TORNADO", 2, 20, floatPtr(1500)),
		record("FLOOD", 0, 1, floatPtr(300)),
		record("TORNADO", 1, 4, floatPtr(500)),
		record("TORNADO", 0, 0, nil),
		record("DROUGHT", 0, 0, nil),
	}

	acc := aggregate.NewAccumulator()
	acc.AddBatch(records)

	for _, measure := range aggregate.MeasureNames() {
		batch, err := aggregate.Summarize(records, nil, measure)
		require.NoError(t, err)
		streaming, err := acc.Snapshot(measure)
		require.NoError(t, err)
		assert.Equal(t, batch, streaming, "measure %s", measure)
	}
}

func TestAccumulator_UnknownMeasure(t *testing.T) {
	acc := aggregate.NewAccumulator()
	_, err := acc.Snapshot("barometric_pressure")
	assert.ErrorIs(t, err, aggregate.ErrUnknownMeasure)
}

func TestAccumulator_Counters(t *testing.T) {
	acc := aggregate.NewAccumulator()
	assert.Equal(t, 0, acc.Categories())
	assert.Equal(t, 0, acc.Records())

	acc.Add(record("HAIL", 0, 0, floatPtr(10)))
	acc.Add(record("HAIL", 0, 0, nil))
	acc.Add(record("FLOOD", 0, 0, nil))

	assert.Equal(t, 2, acc.Categories())
	assert.Equal(t, 3, acc.Records())
}

func TestAccumulator_ConcurrentAddAndSnapshot(t *testing.T) {
	acc := aggregate.NewAccumulator()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				acc.Add(record(fmt.Sprintf("TYPE-%d", w), 1, 0, floatPtr(float64(i))))
				if i%10 == 0 {
					_, err := acc.Snapshot("fatalities")
					assert.NoError(t, err)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 4, acc.Categories())
	assert.Equal(t, 400, acc.Records())

	summary, err := acc.Snapshot("fatalities")
	require.NoError(t, err)
	require.Len(t, summary.Rows, 4)
	for _, row := range summary.Rows {
		assert.Equal(t, 100.0, row.Total)
	}
}

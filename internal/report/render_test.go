package report

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/couchcryptid/storm-damage-aggregator/internal/aggregate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSummary() aggregate.Summary {
	return aggregate.Summary{
		Measure: "total_damage",
		Rows: []aggregate.Row{
			{EventType: "TORNADO", Count: 3, Present: 3, Total: 3000, Mean: 1000},
			{EventType: "FLOOD", Count: 2, Present: 2, Total: 5000, Mean: 2500},
			{EventType: "HAIL", Count: 4, Present: 2, Total: 100.5, Mean: 50.25},
		},
	}
}

func TestWriteText_RanksByTotal(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, WriteText(&buf, testSummary(), "total", 0))

	out := buf.String()
	assert.Contains(t, out, "TOTAL_DAMAGE by total")

	floodAt := strings.Index(out, "FLOOD")
	tornadoAt := strings.Index(out, "TORNADO")
	hailAt := strings.Index(out, "HAIL")
	require.Positive(t, floodAt)
	assert.Less(t, floodAt, tornadoAt)
	assert.Less(t, tornadoAt, hailAt)
}

func TestWriteText_LimitTruncates(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, WriteText(&buf, testSummary(), "total", 1))

	out := buf.String()
	assert.Contains(t, out, "FLOOD")
	assert.NotContains(t, out, "TORNADO")
	assert.NotContains(t, out, "HAIL")
}

func TestWriteText_UnknownOrder(t *testing.T) {
	var buf strings.Builder
	err := WriteText(&buf, testSummary(), "median", 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "median")
}

func TestWriteCSV_RanksByMean(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, WriteCSV(&buf, testSummary(), "mean", 0))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"rank", "event_type", "count", "present", "total", "mean"}, rows[0])
	assert.Equal(t, []string{"1", "FLOOD", "2", "2", "5000", "2500"}, rows[1])
	assert.Equal(t, []string{"2", "TORNADO", "3", "3", "3000", "1000"}, rows[2])
	assert.Equal(t, []string{"3", "HAIL", "4", "2", "100.5", "50.25"}, rows[3])
}

func TestFormatStat(t *testing.T) {
	assert.Equal(t, "2001500", formatStat(2001500))
	assert.Equal(t, "50.25", formatStat(50.25))
	assert.Equal(t, "0", formatStat(0))
}

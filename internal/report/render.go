// Package report renders ranked aggregate tables for the batch CLI. Output
// is a plain two-axis table (or CSV for piping into other tools); charting
// is left to downstream consumers.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/storm-damage-aggregator/internal/aggregate"
)

// rankedRows picks the requested view and truncates it.
func rankedRows(summary aggregate.Summary, by string, limit int) ([]aggregate.Row, error) {
	var rows []aggregate.Row
	switch by {
	case "total":
		rows = summary.ByTotal()
	case "mean":
		rows = summary.ByMean()
	default:
		return nil, fmt.Errorf("unknown ranking order %q (want total or mean)", by)
	}
	if limit > 0 {
		rows = aggregate.Top(rows, limit)
	}
	return rows, nil
}

// WriteText writes a ranked table in a fixed-width layout.
func WriteText(w io.Writer, summary aggregate.Summary, by string, limit int) error {
	rows, err := rankedRows(summary, by, limit)
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s by %s", strings.ToUpper(summary.Measure), by)
	fmt.Fprintf(w, "%s\n%s\n", title, strings.Repeat("─", len(title)))
	fmt.Fprintf(w, "%4s  %-32s %8s %16s %16s\n", "RANK", "EVENT TYPE", "COUNT", "TOTAL", "MEAN")
	for i, row := range rows {
		fmt.Fprintf(w, "%4d  %-32s %8d %16s %16s\n",
			i+1, row.EventType, row.Count, formatStat(row.Total), formatStat(row.Mean))
	}
	fmt.Fprintln(w)
	return nil
}

// WriteCSV writes a ranked table as CSV with a header row.
func WriteCSV(w io.Writer, summary aggregate.Summary, by string, limit int) error {
	rows, err := rankedRows(summary, by, limit)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"rank", "event_type", "count", "present", "total", "mean"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range rows {
		record := []string{
			strconv.Itoa(i + 1),
			row.EventType,
			strconv.Itoa(row.Count),
			strconv.Itoa(row.Present),
			formatStat(row.Total),
			formatStat(row.Mean),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatStat renders a statistic with minimal digits: whole numbers without
// a decimal point, fractions with however many digits they need.
func formatStat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

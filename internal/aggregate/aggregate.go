// Package aggregate groups cleaned storm records by event type and computes
// ranked summary tables. All transformations are pure; the streaming
// Accumulator in this package produces the same tables incrementally.
package aggregate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/couchcryptid/storm-damage-aggregator/internal/domain"
)

// ErrUnknownMeasure is returned when a caller asks for a measure that does
// not exist in the record schema. This is a configuration error and callers
// are expected to fail, not to fall back to zero-filled output.
var ErrUnknownMeasure = errors.New("unknown measure")

// Filter selects the subset of records an aggregation runs over.
// A nil Filter keeps every record.
type Filter func(domain.Record) bool

// measures maps a measure name to its accessor. Accessors return nil when
// the value is missing for a record; missing values are skipped by sums and
// means, never coerced to zero.
var measures = map[string]func(domain.Record) *float64{
	"fatalities": func(r domain.Record) *float64 { v := r.Fatalities; return &v },
	"injuries":   func(r domain.Record) *float64 { v := r.Injuries; return &v },
	"casualties": func(r domain.Record) *float64 { v := r.Casualties(); return &v },
	"property_damage": func(r domain.Record) *float64 { return r.PropertyDamage },
	"crop_damage":     func(r domain.Record) *float64 { return r.CropDamage },
	"total_damage":    func(r domain.Record) *float64 { return r.TotalDamage },
}

// measureOrder fixes the order MeasureNames reports, so CLI help and metrics
// labels stay stable.
var measureOrder = []string{
	"fatalities", "injuries", "casualties",
	"property_damage", "crop_damage", "total_damage",
}

// MeasureNames returns the names of all aggregatable measures.
func MeasureNames() []string {
	names := make([]string, len(measureOrder))
	copy(names, measureOrder)
	return names
}

// measureAccessor resolves a measure name, wrapping ErrUnknownMeasure with
// the offending name.
func measureAccessor(name string) (func(domain.Record) *float64, error) {
	fn, ok := measures[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMeasure, name)
	}
	return fn, nil
}

// Row is the aggregate for one event type. Count is the number of filtered
// records in the group; Present is how many of them carried a value for the
// measure. Total and Mean are computed over present values only.
type Row struct {
	EventType string  `json:"event_type"`
	Count     int     `json:"count"`
	Present   int     `json:"present"`
	Total     float64 `json:"total"`
	Mean      float64 `json:"mean"`
}

// Summary holds the per-event-type aggregates for one measure. Rows are in
// first-seen input order; ranked views are derived, not stored.
type Summary struct {
	Measure string `json:"measure"`
	Rows    []Row  `json:"rows"`
}

// ByTotal returns the rows sorted descending by total. Ties keep first-seen
// order.
func (s Summary) ByTotal() []Row {
	return rankBy(s.Rows, func(r Row) float64 { return r.Total })
}

// ByMean returns the rows sorted descending by mean. Ties keep first-seen
// order.
func (s Summary) ByMean() []Row {
	return rankBy(s.Rows, func(r Row) float64 { return r.Mean })
}

func rankBy(rows []Row, stat func(Row) float64) []Row {
	ranked := make([]Row, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool {
		return stat(ranked[i]) > stat(ranked[j])
	})
	return ranked
}

// Top truncates a ranked view to its first n rows. Truncation is the
// caller's concern; Summarize always returns the full table.
func Top(rows []Row, n int) []Row {
	if n < 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}

// Summarize groups the filtered records by event type and computes count,
// total, and mean of the named measure per group. Groups where every record
// is missing the measure are omitted entirely. The input slice is not
// modified.
func Summarize(records []domain.Record, filter Filter, measure string) (Summary, error) {
	value, err := measureAccessor(measure)
	if err != nil {
		return Summary{}, err
	}

	type group struct {
		count   int
		present int
		total   float64
	}
	groups := make(map[string]*group)
	var order []string

	for _, rec := range records {
		if filter != nil && !filter(rec) {
			continue
		}
		g, ok := groups[rec.EventType]
		if !ok {
			g = &group{}
			groups[rec.EventType] = g
			order = append(order, rec.EventType)
		}
		g.count++
		if v := value(rec); v != nil {
			g.present++
			g.total += *v
		}
	}

	summary := Summary{Measure: measure}
	for _, eventType := range order {
		g := groups[eventType]
		if g.present == 0 {
			continue
		}
		summary.Rows = append(summary.Rows, Row{
			EventType: eventType,
			Count:     g.count,
			Present:   g.present,
			Total:     g.total,
			Mean:      g.total / float64(g.present),
		})
	}
	return summary, nil
}

package aggregate

import (
	"sync"

	"github.com/couchcryptid/storm-damage-aggregator/internal/domain"
)

// Accumulator maintains running per-event-type aggregates for every measure.
// It is the streaming counterpart of Summarize: after adding the same
// records, Snapshot returns the same Summary. Safe for concurrent use; the
// pipeline writes while the HTTP rankings handler reads.
type Accumulator struct {
	mu     sync.RWMutex
	order  []string
	groups map[string]*groupStats
}

type groupStats struct {
	count   int
	present map[string]int
	totals  map[string]float64
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{groups: make(map[string]*groupStats)}
}

// Add folds one cleaned record into the running aggregates.
func (a *Accumulator) Add(rec domain.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()

	g, ok := a.groups[rec.EventType]
	if !ok {
		g = &groupStats{
			present: make(map[string]int, len(measures)),
			totals:  make(map[string]float64, len(measures)),
		}
		a.groups[rec.EventType] = g
		a.order = append(a.order, rec.EventType)
	}
	g.count++
	for name, value := range measures {
		if v := value(rec); v != nil {
			g.present[name]++
			g.totals[name] += *v
		}
	}
}

// AddBatch folds multiple records under a single lock acquisition.
func (a *Accumulator) AddBatch(recs []domain.Record) {
	for _, rec := range recs {
		a.Add(rec)
	}
}

// Snapshot returns the current Summary for the named measure. Event types
// appear in first-seen arrival order; groups with no present value for the
// measure are omitted, matching Summarize.
func (a *Accumulator) Snapshot(measure string) (Summary, error) {
	if _, err := measureAccessor(measure); err != nil {
		return Summary{}, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	summary := Summary{Measure: measure}
	for _, eventType := range a.order {
		g := a.groups[eventType]
		present := g.present[measure]
		if present == 0 {
			continue
		}
		total := g.totals[measure]
		summary.Rows = append(summary.Rows, Row{
			EventType: eventType,
			Count:     g.count,
			Present:   present,
			Total:     total,
			Mean:      total / float64(present),
		})
	}
	return summary, nil
}

// Categories reports how many distinct event types have been seen.
func (a *Accumulator) Categories() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.order)
}

// Records reports how many records have been folded in.
func (a *Accumulator) Records() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := 0
	for _, g := range a.groups {
		n += g.count
	}
	return n
}

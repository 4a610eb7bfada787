package domain

import (
	"context"
	"time"
)

// RawRow represents one Storm Events database row as the flat JSON produced
// by the collector. All values arrive as strings, exactly as they appear in
// the source CSV.
type RawRow struct {
	EventType     string `json:"EVTYPE"`
	Fatalities    string `json:"FATALITIES"`
	Injuries      string `json:"INJURIES"`
	PropDamage    string `json:"PROPDMG"`
	PropDamageExp string `json:"PROPDMGEXP"`
	CropDamage    string `json:"CROPDMG"`
	CropDamageExp string `json:"CROPDMGEXP"`
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Record is the cleaned representation after label normalization and damage
// magnitude resolution. Damage fields are nil when the source encoding was
// missing or invalid; casualty counts are always present.
type Record struct {
	EventType      string   `json:"event_type"`
	Fatalities     float64  `json:"fatalities"`
	Injuries       float64  `json:"injuries"`
	PropertyDamage *float64 `json:"property_damage,omitempty"`
	CropDamage     *float64 `json:"crop_damage,omitempty"`
	TotalDamage    *float64 `json:"total_damage,omitempty"`

	RawPayload  []byte    `json:"-"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Casualties returns the combined fatality and injury count. Both inputs are
// always present, so the result is too.
func (r Record) Casualties() float64 {
	return r.Fatalities + r.Injuries
}

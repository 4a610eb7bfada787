package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// damageExpCodes is the ordered allow-list of damage exponent markers. The
// index of a code is its base-1000 rank: "" = 10^0, K = 10^3, M = 10^6,
// B = 10^9.
var damageExpCodes = []string{"", "K", "M", "B"}

// ParseRawEvent deserializes a RawEvent's value into a RawRow.
// It expects the flat CSV-style JSON produced by the collector service.
func ParseRawEvent(raw RawEvent) (RawRow, error) {
	var row RawRow
	if err := json.Unmarshal(raw.Value, &row); err != nil {
		return RawRow{}, fmt.Errorf("parse raw event: %w", err)
	}
	return row, nil
}

// CleanRecord normalizes a raw row and resolves its damage magnitudes.
// Property and crop damage are resolved independently, each from its own
// (amount, exponent code) pair; the combined total is missing unless both
// sides resolved. The input row is not modified.
func CleanRecord(row RawRow) Record {
	property := ResolveMagnitude(parseAmount(row.PropDamage), NormalizeExpCode(row.PropDamageExp))
	crop := ResolveMagnitude(parseAmount(row.CropDamage), NormalizeExpCode(row.CropDamageExp))

	return Record{
		EventType:      NormalizeEventType(row.EventType),
		Fatalities:     parseCountOrZero(row.Fatalities),
		Injuries:       parseCountOrZero(row.Injuries),
		PropertyDamage: property,
		CropDamage:     crop,
		TotalDamage:    CombineDamage(property, crop),
		ProcessedAt:    clock.Now(),
	}
}

// NormalizeEventType folds an event-type label to uppercase. No trimming,
// spelling correction, or synonym merging happens here; inconsistent source
// spellings stay distinct categories. Idempotent.
func NormalizeEventType(label string) string {
	return strings.ToUpper(label)
}

// NormalizeExpCode uppercases an exponent code and validates it against the
// allow-list. Returns nil for anything outside {"", "K", "M", "B"} — junk
// codes mean a missing magnitude, never a default multiplier. The returned
// pointer refers to a copy; the raw value is left alone.
func NormalizeExpCode(code string) *string {
	upper := strings.ToUpper(code)
	for _, valid := range damageExpCodes {
		if upper == valid {
			return &upper
		}
	}
	return nil
}

// ExpMultiplier maps a normalized exponent code to its power-of-ten
// multiplier. The second return is false for codes outside the allow-list.
func ExpMultiplier(code string) (float64, bool) {
	for rank, valid := range damageExpCodes {
		if code == valid {
			return math.Pow(1000, float64(rank)), true
		}
	}
	return 0, false
}

// ResolveMagnitude converts an (amount, exponent code) pair into an absolute
// damage figure. The result is missing (nil) when the amount is missing, the
// code is missing, or the code is not in the allow-list.
func ResolveMagnitude(amount *float64, code *string) *float64 {
	if amount == nil || code == nil {
		return nil
	}
	multiplier, ok := ExpMultiplier(*code)
	if !ok {
		return nil
	}
	v := *amount * multiplier
	return &v
}

// CombineDamage sums two resolved magnitudes. Missing on either side makes
// the combination missing; partial damage figures are never silently treated
// as zero.
func CombineDamage(property, crop *float64) *float64 {
	if property == nil || crop == nil {
		return nil
	}
	v := *property + *crop
	return &v
}

// SerializeRecord marshals a cleaned record for the sink topic.
func SerializeRecord(rec Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("serialize record: %w", err)
	}
	return data, nil
}

// parseCountOrZero parses a casualty count, returning 0 on failure. Counts
// are defined as never missing, so unparseable values collapse to zero
// rather than propagating as missing.
func parseCountOrZero(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// parseAmount parses a damage amount, returning nil when the value is empty,
// non-numeric, or negative. Damage amounts are mantissas and must be
// non-negative; anything else is encoding garbage and becomes missing.
func parseAmount(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

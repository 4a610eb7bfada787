// Package domain models NOAA Storm Events database records and the cleaning
// rules applied to them before aggregation.
//
// # Data Source
//
// Records originate from the NOAA NCDC Storm Events database (the bulk CSV
// export, e.g. StormData.csv.bz2). Each row describes one observed weather
// event. The columns this service consumes:
//
//	EVTYPE      free-text event classification, e.g. "TORNADO", "Thunderstorm Wind"
//	FATALITIES  death count for the event
//	INJURIES    injury count for the event
//	PROPDMG     property damage amount (3-significant-figure mantissa)
//	PROPDMGEXP  property damage exponent code (see below)
//	CROPDMG     crop damage amount
//	CROPDMGEXP  crop damage exponent code
//
// In streaming mode the upstream collector publishes each row as flat JSON
// (string values, original column names) to the Kafka source topic; in batch
// mode the CSV adapter produces the same flat rows directly.
//
// # Event Type Labels
//
// EVTYPE is free text and inconsistently capitalized in the source ("Tornado",
// "TORNADO", "tornado" all occur). Cleaning folds labels to uppercase and does
// nothing else: no trimming, no spelling correction, no synonym merging.
// Near-duplicate spellings ("TSTM WIND" vs "THUNDERSTORM WIND") therefore
// remain distinct categories. That is a documented property of the dataset,
// not something this service tries to repair.
//
// # Damage Magnitude Encoding
//
// Damage figures are split across two columns: a numeric amount and a
// single-letter base-1000 exponent code.
//
//	""  → ×1              (units)
//	"K" → ×1,000          (thousands)
//	"M" → ×1,000,000      (millions)
//	"B" → ×1,000,000,000  (billions)
//
// Codes are matched case-insensitively. The source data also contains junk
// codes ("+", "-", "?", digits 0-8, "h"/"H"); none of them have a documented
// meaning, so any code outside the allow-list resolves to a missing magnitude
// rather than a guessed multiplier. A missing amount likewise yields a missing
// magnitude. Missing propagates: sums and means skip missing values, and the
// combined property+crop figure is missing unless both sides resolved.
//
// Missing is modeled as a nil *float64, never as a sentinel value, so it can
// not be accidentally coerced to zero in downstream arithmetic.
package domain

// Package csvfile loads Storm Events database CSV exports for one-shot batch
// reports. It is the batch counterpart of the Kafka source: both produce the
// same flat raw rows for the cleaning pipeline.
package csvfile

import (
	"compress/bzip2"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/storm-damage-aggregator/internal/domain"
)

// requiredColumns are the header names the loader must find. A missing
// column is a configuration error, reported before any row is read.
var requiredColumns = []string{
	"EVTYPE",
	"FATALITIES",
	"INJURIES",
	"PROPDMG",
	"PROPDMGEXP",
	"CROPDMG",
	"CROPDMGEXP",
}

// Load reads every row of a Storm Events CSV export into raw rows. Files
// ending in .bz2 or .gz are decompressed transparently (the NOAA bulk export
// ships as StormData.csv.bz2). Column order does not matter and extra
// columns are ignored.
func Load(path string, logger *slog.Logger) ([]domain.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	src, err := decompressed(path, f)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(src)

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []domain.RawRow
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, rawRow(fields, cols))
	}

	logger.Info("csv loaded", "path", path, "rows", len(rows))
	return rows, nil
}

// columnIndex maps required column names to their position in the header.
type columnIndex map[string]int

func mapColumns(header []string) (columnIndex, error) {
	cols := make(columnIndex, len(header))
	for i, name := range header {
		if i == 0 {
			// Excel-style exports prepend a UTF-8 BOM to the first header cell.
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		cols[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// rawRow extracts the consumed columns from one CSV row. Values are passed
// through verbatim; all normalization happens in the domain layer.
func rawRow(fields []string, cols columnIndex) domain.RawRow {
	field := func(name string) string {
		i := cols[name]
		if i >= len(fields) {
			return ""
		}
		return fields[i]
	}
	return domain.RawRow{
		EventType:     field("EVTYPE"),
		Fatalities:    field("FATALITIES"),
		Injuries:      field("INJURIES"),
		PropDamage:    field("PROPDMG"),
		PropDamageExp: field("PROPDMGEXP"),
		CropDamage:    field("CROPDMG"),
		CropDamageExp: field("CROPDMGEXP"),
	}
}

func decompressed(path string, f *os.File) (io.Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bz2":
		return bzip2.NewReader(f), nil
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return zr, nil
	default:
		return f, nil
	}
}

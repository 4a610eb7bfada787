// Command report runs the batch analysis over a Storm Events CSV file and
// prints ranked tables of harm by event type. It accepts plain, gzip, or
// bzip2 compressed input.
//
// Usage:
//
//	go run ./cmd/report \
//	  -input data/StormData.csv.bz2 \
//	  -measures casualties,total_damage \
//	  -by both -top 10 -format table
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/storm-damage-aggregator/internal/adapter/csvfile"
	"github.com/couchcryptid/storm-damage-aggregator/internal/aggregate"
	"github.com/couchcryptid/storm-damage-aggregator/internal/domain"
	"github.com/couchcryptid/storm-damage-aggregator/internal/report"
)

func main() {
	input := flag.String("input", "", "path to Storm Events CSV (.csv, .csv.gz, .csv.bz2)")
	measures := flag.String("measures", "casualties,total_damage",
		"comma-separated measures to rank ("+strings.Join(aggregate.MeasureNames(), ", ")+")")
	by := flag.String("by", "both", "ranking order: total, mean, or both")
	top := flag.Int("top", 10, "rows per table, 0 for all")
	format := flag.String("format", "table", "output format: table or csv")
	filter := flag.String("filter", "all", "record subset: all, casualties, damage")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if code := run(os.Stdout, logger, *input, *measures, *by, *top, *format, *filter); code != 0 {
		os.Exit(code)
	}
}

func run(out io.Writer, logger *slog.Logger, input, measures, by string, top int, format, filter string) int {
	orders, err := rankingOrders(by)
	if err != nil {
		logger.Error("invalid -by flag", "error", err)
		return 1
	}

	render, err := renderer(format)
	if err != nil {
		logger.Error("invalid -format flag", "error", err)
		return 1
	}

	keep, err := recordFilter(filter)
	if err != nil {
		logger.Error("invalid -filter flag", "error", err)
		return 1
	}

	rows, err := csvfile.Load(input, logger)
	if err != nil {
		logger.Error("failed to load input", "path", input, "error", err)
		return 1
	}

	records := make([]domain.Record, len(rows))
	for i := range rows {
		records[i] = domain.CleanRecord(rows[i])
	}
	logger.Info("records cleaned", "count", len(records))

	for _, measure := range strings.Split(measures, ",") {
		measure = strings.TrimSpace(measure)
		if measure == "" {
			continue
		}
		summary, err := aggregate.Summarize(records, keep, measure)
		if err != nil {
			logger.Error("aggregation failed", "measure", measure, "error", err)
			return 1
		}
		for _, order := range orders {
			if err := render(out, summary, order, top); err != nil {
				logger.Error("rendering failed", "measure", measure, "by", order, "error", err)
				return 1
			}
		}
	}
	return 0
}

func rankingOrders(by string) ([]string, error) {
	switch by {
	case "total", "mean":
		return []string{by}, nil
	case "both":
		return []string{"total", "mean"}, nil
	default:
		return nil, fmt.Errorf("unknown ranking order %q (want total, mean, or both)", by)
	}
}

type renderFunc func(w io.Writer, summary aggregate.Summary, by string, limit int) error

func renderer(format string) (renderFunc, error) {
	switch format {
	case "table":
		return report.WriteText, nil
	case "csv":
		return report.WriteCSV, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want table or csv)", format)
	}
}

func recordFilter(name string) (aggregate.Filter, error) {
	switch name {
	case "all":
		return nil, nil
	case "casualties":
		return func(r domain.Record) bool { return r.Casualties() > 0 }, nil
	case "damage":
		return func(r domain.Record) bool {
			return r.TotalDamage != nil && *r.TotalDamage > 0
		}, nil
	default:
		return nil, fmt.Errorf("unknown filter %q (want all, casualties, or damage)", name)
	}
}

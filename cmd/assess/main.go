// Command assess fetches a station's latest data once and prints its
// air-quality assessment: readings, weather, per-pollutant scores, the
// governing score, and the category.
//
// Usage:
//
//	go run ./cmd/assess                              # fetch using STATION_* env vars
//	go run ./cmd/assess -file latest.json            # assess a saved Envista payload
//	go run ./cmd/assess -file - -json < latest.json  # read stdin, print the event as JSON
//
// The exit status is 1 when the data cannot be fetched or assessed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/adapter/station"
	"github.com/couchcryptid/air-quality-etl/internal/config"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
	"github.com/couchcryptid/air-quality-etl/internal/pipeline"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	file       string
	stationID  int
	asJSON     bool
	indexTable string
	selector   string
	debug      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("assess", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.file, "file", "", "assess a saved Envista payload instead of fetching (- reads stdin)")
	fs.IntVar(&opts.stationID, "station", 375, "station ID reported for -file payloads")
	fs.BoolVar(&opts.asJSON, "json", false, "print the assessment event as JSON")
	fs.StringVar(&opts.indexTable, "index-table", "", "TOML index table replacing the default")
	fs.StringVar(&opts.selector, "selector", "", "governing score selector: second_smallest or minimum")
	fs.BoolVar(&opts.debug, "debug", false, "log per-pollutant scores to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	level := slog.LevelWarn
	if opts.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen}))

	snap, assessor, err := load(ctx, opts, stdin, logger)
	if err != nil {
		fmt.Fprintf(stderr, "assess: %v\n", err)
		return 1
	}

	event, err := pipeline.NewTransformer(assessor, logger).Transform(ctx, snap)
	if err != nil {
		fmt.Fprintf(stderr, "assess: %v\n", err)
		return 1
	}

	if opts.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(event); err != nil {
			fmt.Fprintf(stderr, "assess: %v\n", err)
			return 1
		}
		return 0
	}

	printReport(stdout, snap, event)
	return 0
}

// load returns the snapshot to assess and the assessor configured from flags,
// falling back to the environment when fetching.
func load(ctx context.Context, opts options, stdin io.Reader, logger *slog.Logger) (domain.StationSnapshot, *domain.Assessor, error) {
	if opts.file != "" {
		snap, err := readSnapshot(opts.file, stdin)
		if err != nil {
			return domain.StationSnapshot{}, nil, err
		}
		snap.StationID = opts.stationID

		assessor, err := buildAssessor(opts.indexTable, opts.selector, domain.DefaultIndexTable, "")
		return snap, assessor, err
	}

	cfg, err := config.Load()
	if err != nil {
		return domain.StationSnapshot{}, nil, err
	}
	assessor, err := buildAssessor(opts.indexTable, opts.selector, cfg.IndexTable, cfg.ScoreSelector)
	if err != nil {
		return domain.StationSnapshot{}, nil, err
	}

	client := station.NewClient(cfg, observability.NewMetricsFor(prometheus.NewRegistry()), logger)
	snap, err := client.FetchLatest(ctx)
	if err != nil {
		return domain.StationSnapshot{}, nil, err
	}
	return snap, assessor, nil
}

func readSnapshot(path string, stdin io.Reader) (domain.StationSnapshot, error) {
	var body []byte
	var err error
	if path == "-" {
		body, err = io.ReadAll(stdin)
	} else {
		body, err = os.ReadFile(path)
	}
	if err != nil {
		return domain.StationSnapshot{}, fmt.Errorf("read payload: %w", err)
	}
	return station.ParseLatest(body)
}

func buildAssessor(tablePath, selectorName string, table domain.IndexTable, defaultSelector string) (*domain.Assessor, error) {
	if tablePath != "" {
		t, err := config.LoadIndexTable(tablePath)
		if err != nil {
			return nil, err
		}
		table = t
	}
	if selectorName == "" {
		selectorName = defaultSelector
	}
	selector, err := domain.SelectorByName(selectorName)
	if err != nil {
		return nil, err
	}
	return domain.NewAssessor(domain.WithIndexTable(table), domain.WithSelector(selector)), nil
}

func printReport(w io.Writer, snap domain.StationSnapshot, event domain.AssessmentEvent) {
	fmt.Fprintf(w, "Station %d, measured %s\n\n", event.StationID, snap.MeasuredAt.Format(time.RFC3339))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POLLUTANT\tCONCENTRATION\tINDEX\tSCORE")
	for _, s := range event.Pollutants {
		fmt.Fprintf(tw, "%s\t%g\t%.2f\t%.2f\n", s.Pollutant, s.Concentration, s.Index, s.Score)
	}
	tw.Flush()

	if weather := formatWeather(event.Weather); weather != "" {
		fmt.Fprintf(w, "\nWeather: %s\n", weather)
	}

	fmt.Fprintf(w, "\nGoverning score: %.2f\n", event.Score)
	fmt.Fprintf(w, "Category: %s (%s)\n", event.Description, event.Color)
}

func formatWeather(w domain.Weather) string {
	var out string
	add := func(name string, v *float64, unit string) {
		if v == nil {
			return
		}
		if out != "" {
			out += ", "
		}
		out += fmt.Sprintf("%s %g%s", name, *v, unit)
	}
	add("rain", w.Rain, " mm")
	add("temperature", w.Temperature, " °C")
	add("humidity", w.Humidity, "%")
	return out
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"datamod/internal/analytics"
	"datamod/internal/config"
	"datamod/internal/dataprocessing"
	"datamod/internal/dataset"
	"datamod/internal/exporter"
	"datamod/internal/infrastructure"
	"datamod/internal/services"
	"datamod/internal/units"
	"datamod/internal/validation"
)

// errUsage marks command line mistakes, which exit with status 2
var errUsage = errors.New("usage")

// options holds the parsed command line
type options struct {
	configFile  string
	in          string
	out         string
	format      string
	columns     []string
	rows        string
	op          string
	value       *float64
	formula     string
	from        string
	to          string
	filter      string
	cutoff      float64
	cutoffHigh  float64
	sampleRate  float64
	decimals    *int
	chart       string
	chartColumn string
	chartFormat string
	timestamp   *bool
	logLevel    string
}

// report is printed to stdout as JSON
type report struct {
	Dataset services.SessionInfo        `json:"dataset"`
	Record  *dataset.ModificationRecord `json:"record,omitempty"`
	Stats   []analytics.Comparison      `json:"stats"`
	Saved   string                      `json:"saved,omitempty"`
	Chart   *services.ChartResult       `json:"chart,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	default:
		slog.Error("datamod failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet(config.AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	var columns string
	var decimals int
	var value float64
	var timestamp bool
	fs.StringVar(&o.configFile, "config", "", "config file (defaults to datamod.yaml or configs/datamod.yaml)")
	fs.StringVar(&o.in, "in", "", "input file (.csv, .txt, .xlsx or .xls)")
	fs.StringVar(&o.out, "out", "", "output file; relative paths are written to the exports directory")
	fs.StringVar(&o.format, "format", "", "output format when -out has no extension (xlsx or csv)")
	fs.StringVar(&columns, "columns", "", "comma separated columns to modify (default all)")
	fs.StringVar(&o.rows, "rows", "", "zero-based inclusive row range start:end (default all)")
	fs.StringVar(&o.op, "op", "", "operation: multiply, divide, add, subtract, formula, round, convert or filter")
	fs.Float64Var(&value, "value", 0, "operand for arithmetic operations, p in formulas")
	fs.StringVar(&o.formula, "formula", "", "formula over x, p and row, e.g. \"x * 2 + 1\"")
	fs.StringVar(&o.from, "from", "", "source time unit for convert")
	fs.StringVar(&o.to, "to", "", "target time unit for convert")
	fs.StringVar(&o.filter, "filter", "", "filter type: lowpass, highpass, bandpass or bandstop")
	fs.Float64Var(&o.cutoff, "cutoff", 0, "filter cutoff in Hz, the low corner for band filters")
	fs.Float64Var(&o.cutoffHigh, "cutoff-high", 0, "upper corner in Hz for band filters")
	fs.Float64Var(&o.sampleRate, "sample-rate", 0, "rows per second of the filtered data")
	fs.IntVar(&decimals, "decimals", 0, "decimal places for round (default from defaults.json)")
	fs.StringVar(&o.chart, "chart", "", "chart output file (.png or .pdf)")
	fs.StringVar(&o.chartColumn, "chart-column", "", "column to chart (default the first selected column)")
	fs.StringVar(&o.chartFormat, "chart-format", "", "chart format when -chart has no extension (png or pdf)")
	fs.BoolVar(&timestamp, "timestamp", false, "append a timestamp to output file names")
	fs.StringVar(&o.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	if o.in == "" {
		return nil, fmt.Errorf("%w: -in is required", errUsage)
	}

	// unset flags keep the configured defaults
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "value":
			o.value = &value
		case "decimals":
			o.decimals = &decimals
		case "timestamp":
			o.timestamp = &timestamp
		}
	})

	for _, c := range strings.Split(columns, ",") {
		if c = strings.TrimSpace(c); c != "" {
			o.columns = append(o.columns, c)
		}
	}
	return o, nil
}

// operation builds the requested operation, or nil when -op is empty
func (o *options) operation() (*dataprocessing.Operation, error) {
	if o.op == "" {
		return nil, nil
	}
	kind, err := dataprocessing.ParseKind(o.op)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	return &dataprocessing.Operation{
		Kind:     kind,
		Value:    o.value,
		Formula:  o.formula,
		Decimals: o.decimals,
		FromUnit: o.from,
		ToUnit:   o.to,

		Filter:     o.filter,
		Cutoff:     o.cutoff,
		CutoffHigh: o.cutoffHigh,
		SampleRate: o.sampleRate,
	}, nil
}

// run loads -in, applies at most one operation, saves and charts as asked
// and writes the report to stdout. Logs go to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	op, err := opts.operation()
	if err != nil {
		return err
	}

	var cfg *config.Config
	if opts.configFile != "" {
		cfg, err = config.LoadFrom(opts.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger := infrastructure.NewLogger(stderr, level)
	ctx = infrastructure.EnsureTraceID(ctx)

	session, err := newSession(cfg, logger)
	if err != nil {
		return err
	}

	info, err := session.Open(ctx, opts.in)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "dataset loaded",
		slog.String("path", info.Path),
		slog.Int("rows", info.Rows),
		slog.Int("columns", len(info.Columns)))

	sel := dataset.Selection{Columns: opts.columns, Rows: dataset.RowRange{Start: 0, End: info.Rows - 1}}
	if len(sel.Columns) == 0 {
		sel.Columns = info.Columns
	}
	if opts.rows != "" {
		if sel.Rows, err = dataset.ParseRowRange(opts.rows); err != nil {
			return err
		}
	}

	out := report{}
	if op != nil {
		result, err := session.Apply(ctx, sel, *op)
		if err != nil {
			return err
		}
		out.Record = &result.Record
		out.Stats = result.Comparisons
	} else {
		for _, column := range sel.Columns {
			comparison, err := session.Stats(ctx, column, sel.Rows)
			if err != nil {
				return err
			}
			out.Stats = append(out.Stats, comparison)
		}
	}

	if opts.out != "" {
		out.Saved, err = session.Save(ctx, opts.out, exporter.SaveOptions{
			Format:    opts.format,
			Timestamp: opts.timestamp,
		})
		if err != nil {
			return err
		}
	}

	if opts.chart != "" {
		column := opts.chartColumn
		if column == "" {
			column = sel.Columns[0]
		}
		chart, err := session.ExportChart(ctx, opts.chart, column, sel.Rows, exporter.ChartOptions{
			Format:    opts.chartFormat,
			Timestamp: opts.timestamp,
		})
		if err != nil {
			return err
		}
		out.Chart = &chart
	}

	if out.Dataset, err = session.Info(ctx); err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// newSession wires a session service the same way the server does, minus
// the event feed and telemetry
func newSession(cfg *config.Config, logger *slog.Logger) (*services.SessionService, error) {
	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	converter, err := units.Load(paths.UnitsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load unit factors: %w", err)
	}

	defaults := cfg.Defaults
	validator := validation.NewFileValidator(logger, validation.LimitsFromDefaults(defaults))

	return services.NewSessionService(services.SessionDeps{
		Loader:       dataprocessing.NewLoader(validator, logger),
		Processor:    dataprocessing.NewProcessor(converter, defaults.DefaultDecimalPlaces, logger),
		Exporter:     exporter.NewExporter(paths, defaults, validator, logger),
		Logger:       logger,
		HistoryDepth: defaults.HistoryDepth,
	}), nil
}

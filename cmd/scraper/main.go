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
	"syscall"
	"time"

	"ccasscli/internal/config"
	"ccasscli/internal/exporter"
	"ccasscli/internal/infrastructure"
	"ccasscli/internal/operations"
	"ccasscli/internal/reconciler"
	"ccasscli/internal/scraper"
	"ccasscli/internal/store"
	"ccasscli/pkg/contracts/domain"
)

// options select what to pull and where the result goes
type options struct {
	code        int
	start       string
	end         string
	date        string
	checkExists bool
	format      string
	outDir      string
	headless    bool
	remoteURL   string
}

// result is printed to stdout as JSON
type result struct {
	StockCode int                              `json:"stock_code"`
	Start     string                           `json:"start"`
	End       string                           `json:"end"`
	Report    *reconciler.Report               `json:"report"`
	Rows      []domain.ShareholdingObservation `json:"rows"`
	File      string                           `json:"file,omitempty"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	opts, err := parseOptions(os.Args[1:], cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	cfg.Scraper.Headless = opts.headless
	cfg.Scraper.RemoteURL = opts.remoteURL

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := run(ctx, cfg, opts, scraper.NewChromeFactory(cfg.Scraper, logger), logger)
	if err != nil {
		logger.Error("Scrape failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := writeResult(os.Stdout, res); err != nil {
		logger.Error("Failed to write result", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func parseOptions(args []string, cfg *config.Config) (options, error) {
	fs := flag.NewFlagSet("scraper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var o options
	fs.IntVar(&o.code, "code", 0, "stock code to pull")
	fs.StringVar(&o.start, "start", "", "start date (YYYY-MM-DD); blank uses the default window")
	fs.StringVar(&o.end, "end", "", "end date (YYYY-MM-DD); blank means yesterday")
	fs.StringVar(&o.date, "date", "", "pull exactly one date (YYYY-MM-DD) instead of a range")
	fs.BoolVar(&o.checkExists, "check-exists", true, "with -date, skip the date if it is already stored")
	fs.StringVar(&o.format, "export", "", "also write the rows as csv or xlsx")
	fs.StringVar(&o.outDir, "out", "", "export directory (defaults to data/exports under the home directory)")
	fs.BoolVar(&o.headless, "headless", cfg.Scraper.Headless, "run browser headless")
	fs.StringVar(&o.remoteURL, "remote-url", cfg.Scraper.RemoteURL, "DevTools websocket of a running browser")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if o.code <= 0 {
		return options{}, errors.New("-code must be a positive stock code")
	}
	if o.date != "" && (o.start != "" || o.end != "") {
		return options{}, errors.New("-date cannot be combined with -start or -end")
	}
	if o.format != "" {
		if _, err := exporter.ParseFormat(o.format); err != nil {
			return options{}, err
		}
	}
	return o, nil
}

// window resolves the requested dates. A single date is a one-day range.
func (o options) window(now time.Time, days int) (domain.DateRange, error) {
	if o.date != "" {
		return operations.ResolveWindow(now, o.date, o.date, days)
	}
	return operations.ResolveWindow(now, o.start, o.end, days)
}

func run(ctx context.Context, cfg *config.Config, opts options, factory scraper.SessionFactory, logger *slog.Logger) (*result, error) {
	rng, err := opts.window(time.Now(), cfg.Analytics.DefaultWindowDays)
	if err != nil {
		return nil, fmt.Errorf("invalid date window: %w", err)
	}

	st, err := store.Open(cfg.Store.Path,
		store.WithLogger(logger),
		store.WithBusyTimeout(cfg.Store.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	rec := reconciler.New(st, factory, reconciler.NewUnavailableSet(), reconciler.WithLogger(logger))

	var rep *reconciler.Report
	if opts.date != "" {
		rep, err = rec.PullSingle(ctx, rng.Start, opts.code, opts.checkExists)
	} else {
		rep, err = rec.PullWithReport(ctx, rng.Start, rng.End, opts.code)
	}
	if err != nil {
		return nil, err
	}

	rows := rep.Rows
	if rows == nil {
		if rows, err = st.QueryRange(ctx, rng.Start, rng.End, opts.code); err != nil {
			return nil, err
		}
	}

	res := &result{
		StockCode: opts.code,
		Start:     domain.FormatDate(rng.Start),
		End:       domain.FormatDate(rng.End),
		Report:    rep,
		Rows:      rows,
	}

	if opts.format != "" {
		format, _ := exporter.ParseFormat(opts.format)
		exp, err := exporter.New(format)
		if err != nil {
			return nil, err
		}
		dir := opts.outDir
		if dir == "" {
			paths, err := config.GetPaths()
			if err != nil {
				return nil, err
			}
			dir = paths.ExportsDir
		}
		name := exporter.FileName(opts.code, rng.Start, rng.End, format)
		if res.File, err = exporter.WriteFile(dir, name, exp, rows); err != nil {
			return nil, err
		}
	}

	return res, nil
}

func writeResult(w io.Writer, res *result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

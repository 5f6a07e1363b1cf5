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
	"runtime/debug"
	"syscall"
	"time"

	"ccasscli/internal/config"
	"ccasscli/internal/infrastructure"
	"ccasscli/internal/operations"
	"ccasscli/internal/reconciler"
	"ccasscli/internal/scraper"
	"ccasscli/internal/store"
	"ccasscli/pkg/contracts/domain"
)

// options are the command line overrides of the prepopulate config section
type options struct {
	fromCode  int
	toCode    int
	start     string
	end       string
	days      int
	workers   int
	headless  bool
	remoteURL string
	summary   bool
}

func main() {
	var logger *slog.Logger
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "PANIC RECOVERED: %v\n%s\n", r, debug.Stack())
			if logger != nil {
				logger.Error("Prepopulate panicked",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
			}
			os.Exit(1)
		}
	}()

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
	opts.apply(cfg)

	logger, err = infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		logger.Error("Failed to initialize OpenTelemetry", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer providers.Shutdown(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := execute(ctx, cfg, providers, scraper.NewChromeFactory(cfg.Scraper, logger), logger)
	if err != nil {
		logger.Error("Prepopulate failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if opts.summary {
		writeSummary(os.Stdout, summary)
	}
}

func parseOptions(args []string, cfg *config.Config) (options, error) {
	fs := flag.NewFlagSet("prepopulate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var o options
	fs.IntVar(&o.fromCode, "from-code", cfg.Prepopulate.FromCode, "first stock code")
	fs.IntVar(&o.toCode, "to-code", cfg.Prepopulate.ToCode, "last stock code (inclusive)")
	fs.StringVar(&o.start, "start", cfg.Prepopulate.StartDate, "start date (YYYY-MM-DD); blank uses -days")
	fs.StringVar(&o.end, "end", cfg.Prepopulate.EndDate, "end date (YYYY-MM-DD); blank means yesterday")
	fs.IntVar(&o.days, "days", cfg.Prepopulate.WindowDays, "window length when -start is blank")
	fs.IntVar(&o.workers, "workers", cfg.Prepopulate.Workers, "parallel browser sessions; 1 runs sequentially")
	fs.BoolVar(&o.headless, "headless", cfg.Scraper.Headless, "run browser headless")
	fs.StringVar(&o.remoteURL, "remote-url", cfg.Scraper.RemoteURL, "DevTools websocket of a running browser")
	fs.BoolVar(&o.summary, "summary", false, "print the run summary as JSON")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if o.fromCode <= 0 || o.toCode < o.fromCode {
		return options{}, fmt.Errorf("invalid code range %d-%d", o.fromCode, o.toCode)
	}
	return o, nil
}

func (o options) apply(cfg *config.Config) {
	cfg.Prepopulate.FromCode = o.fromCode
	cfg.Prepopulate.ToCode = o.toCode
	cfg.Prepopulate.StartDate = o.start
	cfg.Prepopulate.EndDate = o.end
	cfg.Prepopulate.WindowDays = o.days
	cfg.Prepopulate.Workers = o.workers
	cfg.Scraper.Headless = o.headless
	cfg.Scraper.RemoteURL = o.remoteURL
}

// execute opens the store and runs the batch. Only bootstrap problems are
// returned as errors; per-code failures live in the summary.
func execute(ctx context.Context, cfg *config.Config, providers *infrastructure.OTelProviders, factory scraper.SessionFactory, logger *slog.Logger) (*operations.Summary, error) {
	window, err := operations.ResolveWindow(time.Now(), cfg.Prepopulate.StartDate, cfg.Prepopulate.EndDate, cfg.Prepopulate.WindowDays)
	if err != nil {
		return nil, fmt.Errorf("invalid date window: %w", err)
	}

	codes, err := operations.CodeRange(cfg.Prepopulate.FromCode, cfg.Prepopulate.ToCode)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store.Path,
		store.WithLogger(logger),
		store.WithBusyTimeout(cfg.Store.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if providers == nil {
		providers = infrastructure.NoopProviders()
	}
	metrics, err := infrastructure.NewScrapeMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create scrape metrics: %w", err)
	}

	rec := reconciler.New(st, factory, reconciler.NewUnavailableSet(),
		reconciler.WithLogger(logger),
		reconciler.WithMetrics(metrics),
		reconciler.WithTracer(providers.Tracer))

	workers := cfg.Prepopulate.Workers
	if !cfg.Prepopulate.Concurrent {
		workers = 1
	}

	logger.InfoContext(ctx, "Prepopulating store",
		slog.Int("from_code", cfg.Prepopulate.FromCode),
		slog.Int("to_code", cfg.Prepopulate.ToCode),
		slog.String("start", domain.FormatDate(window.Start)),
		slog.String("end", domain.FormatDate(window.End)),
		slog.Int("workers", workers),
		slog.String("store", st.Path()))

	runner := operations.NewRunner(workers, rec, logger, operations.WithTracer(providers.Tracer))
	summary := runner.Run(ctx, codes, window.Start, window.End)

	if denied := rec.Unavailable().Codes(); len(denied) > 0 {
		logger.InfoContext(ctx, "Securities unavailable this run", slog.Any("codes", denied))
	}
	return summary, nil
}

func writeSummary(w io.Writer, summary *operations.Summary) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(summary)
}

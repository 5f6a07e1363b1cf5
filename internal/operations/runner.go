package operations

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"ccasscli/internal/infrastructure"
	"ccasscli/internal/reconciler"
	"ccasscli/pkg/contracts/domain"
)

const TracerName = "ccasscli.operations"

// Puller reconciles one security over a date range
type Puller interface {
	PullWithReport(ctx context.Context, start, end time.Time, stockCode int) (*reconciler.Report, error)
}

// CodeStatus is the outcome of one security in a run
type CodeStatus string

const (
	CodeStatusSucceeded   CodeStatus = "succeeded"
	CodeStatusUnavailable CodeStatus = "unavailable"
	CodeStatusFailed      CodeStatus = "failed"
	CodeStatusCancelled   CodeStatus = "cancelled"
)

// CodeResult records how one security fared
type CodeResult struct {
	StockCode int                `json:"stock_code"`
	Status    CodeStatus         `json:"status"`
	Error     string             `json:"error,omitempty"`
	Report    *reconciler.Report `json:"-"`
	Duration  time.Duration      `json:"duration"`
}

// Summary aggregates a batch run
type Summary struct {
	RunID        string        `json:"run_id"`
	Start        string        `json:"start"`
	End          string        `json:"end"`
	Codes        int           `json:"codes"`
	Succeeded    int           `json:"succeeded"`
	Unavailable  int           `json:"unavailable"`
	Failed       int           `json:"failed"`
	NotStarted   int           `json:"not_started"`
	DatesScraped int           `json:"dates_scraped"`
	DatesSkipped int           `json:"dates_skipped"`
	RowsAppended int           `json:"rows_appended"`
	Cancelled    bool          `json:"cancelled"`
	Duration     time.Duration `json:"duration"`
	Results      []CodeResult  `json:"results"`
}

// Runner spreads securities over a fixed pool of workers. Each worker takes
// one code at a time and runs it end to end. Failures are recorded per code
// and never stop the batch.
type Runner struct {
	workers int
	puller  Puller
	logger  *slog.Logger
	tracer  trace.Tracer

	mu     sync.Mutex
	active map[int]struct{}
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithTracer wraps each run in a span
func WithTracer(t trace.Tracer) RunnerOption {
	return func(r *Runner) {
		if t != nil {
			r.tracer = t
		}
	}
}

// NewRunner creates a runner. workers below one runs sequentially.
func NewRunner(workers int, puller Puller, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		workers: workers,
		puller:  puller,
		logger:  logger.With(slog.String("component", "runner")),
		tracer:  tracenoop.NewTracerProvider().Tracer(TracerName),
		active:  make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Workers returns the pool size
func (r *Runner) Workers() int {
	return r.workers
}

// Active returns the codes currently being processed
func (r *Runner) Active() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.active))
	for c := range r.active {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// Run reconciles every code over [start, end]. Cancelling ctx stops new
// codes from being dispatched; codes already running see the cancellation
// between dates.
func (r *Runner) Run(ctx context.Context, codes []int, start, end time.Time) *Summary {
	began := time.Now()
	ctx, runID := infrastructure.NewRunContext(ctx)
	ctx, span := r.tracer.Start(ctx, "operations.Run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("codes", len(codes)),
		attribute.Int("workers", r.workers),
	))
	defer span.End()

	summary := &Summary{
		RunID: runID,
		Start: domain.FormatDate(start),
		End:   domain.FormatDate(end),
		Codes: len(codes),
	}

	r.logger.InfoContext(ctx, "batch run started",
		slog.Int("codes", len(codes)),
		slog.Int("workers", r.workers),
		slog.String("start", summary.Start),
		slog.String("end", summary.End))

	jobs := make(chan int, r.workers*2)
	results := make(chan CodeResult, r.workers*2)

	var g errgroup.Group

	g.Go(func() error {
		defer close(jobs)
		for _, code := range codes {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case jobs <- code:
			}
		}
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		workerID := i
		g.Go(func() error {
			defer wg.Done()
			r.worker(ctx, workerID, start, end, jobs, results)
			return nil
		})
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for res := range results {
		done++
		summary.add(res)
		r.logger.InfoContext(ctx, "security finished",
			slog.Int("stock_code", res.StockCode),
			slog.String("status", string(res.Status)),
			slog.Int("done", done),
			slog.Int("total", len(codes)))
	}

	if err := g.Wait(); err != nil || ctx.Err() != nil {
		summary.Cancelled = true
	}

	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].StockCode < summary.Results[j].StockCode
	})
	summary.NotStarted = summary.Codes - len(summary.Results)
	summary.Duration = time.Since(began)

	span.SetAttributes(
		attribute.Int("succeeded", summary.Succeeded),
		attribute.Int("failed", summary.Failed),
		attribute.Bool("cancelled", summary.Cancelled),
	)

	r.logger.InfoContext(ctx, "batch run finished",
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("unavailable", summary.Unavailable),
		slog.Int("failed", summary.Failed),
		slog.Int("not_started", summary.NotStarted),
		slog.Int("rows_appended", summary.RowsAppended),
		slog.Bool("cancelled", summary.Cancelled),
		slog.Duration("duration", summary.Duration))

	return summary
}

func (r *Runner) worker(ctx context.Context, workerID int, start, end time.Time, jobs <-chan int, results chan<- CodeResult) {
	logger := r.logger.With(slog.Int("worker_id", workerID))
	logger.DebugContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			logger.DebugContext(ctx, "worker stopped by context")
			return
		case code, ok := <-jobs:
			if !ok {
				logger.DebugContext(ctx, "worker finished")
				return
			}
			results <- r.process(ctx, code, start, end, logger)
		}
	}
}

// process runs one code. A panic is recorded as a failure of that code.
func (r *Runner) process(ctx context.Context, code int, start, end time.Time, logger *slog.Logger) (res CodeResult) {
	began := time.Now()
	res.StockCode = code

	r.mu.Lock()
	r.active[code] = struct{}{}
	r.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			logger.ErrorContext(ctx, "security processing panicked",
				slog.Int("stock_code", code),
				slog.Any("panic", p))
			res.Status = CodeStatusFailed
			res.Error = fmt.Sprintf("panic: %v", p)
			res.Report = nil
		}
		res.Duration = time.Since(began)

		r.mu.Lock()
		delete(r.active, code)
		r.mu.Unlock()
	}()

	rep, err := r.puller.PullWithReport(ctx, start, end, code)
	switch {
	case err != nil && ctx.Err() != nil:
		res.Status = CodeStatusCancelled
		res.Error = err.Error()
	case err != nil:
		res.Status = CodeStatusFailed
		res.Error = err.Error()
		logger.ErrorContext(ctx, "security failed",
			slog.Int("stock_code", code),
			slog.String("error", err.Error()))
	case rep.Unavailable:
		res.Status = CodeStatusUnavailable
		res.Report = rep
	default:
		res.Status = CodeStatusSucceeded
		res.Report = rep
	}
	return res
}

func (s *Summary) add(res CodeResult) {
	s.Results = append(s.Results, res)
	switch res.Status {
	case CodeStatusSucceeded:
		s.Succeeded++
	case CodeStatusUnavailable:
		s.Unavailable++
	case CodeStatusFailed, CodeStatusCancelled:
		s.Failed++
	}
	if res.Report != nil {
		s.DatesScraped += res.Report.Scraped
		s.DatesSkipped += res.Report.Transient + res.Report.Invalid
		s.RowsAppended += res.Report.RowsAppended
	}
}

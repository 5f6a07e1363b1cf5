package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"ccasscli/internal/dataprocessing"
	apperrors "ccasscli/internal/errors"
	"ccasscli/internal/infrastructure"
	"ccasscli/internal/scraper"
	"ccasscli/internal/store"
	"ccasscli/pkg/contracts/domain"
)

// Store is the persistence the reconciler reads coverage from and appends to
type Store interface {
	Exists(ctx context.Context, dateRequested time.Time, stockCode int) (bool, error)
	CoveredDates(ctx context.Context, stockCode int) (store.DateSet, error)
	Append(ctx context.Context, rows []domain.ShareholdingObservation) error
	QueryRange(ctx context.Context, start, end time.Time, stockCode int) ([]domain.ShareholdingObservation, error)
}

// Report summarizes one reconciler invocation
type Report struct {
	StockCode int `json:"stock_code"`
	// Requested is the number of calendar days in the range
	Requested int `json:"requested"`
	// Missing is how many of them had no stored rows beforehand
	Missing int `json:"missing"`
	// Scraped counts dates whose rows were appended
	Scraped int `json:"scraped"`
	// Empty counts dates the portal answered with a table of zero rows
	Empty int `json:"empty"`
	// Transient counts dates skipped after a per-date failure
	Transient int `json:"transient"`
	// Invalid counts dates whose table was rejected by normalization or
	// batch validation
	Invalid int `json:"invalid"`
	// Corrected counts appended dates the portal moved to another date
	Corrected int `json:"corrected"`
	// Unavailable is set when the code is on the run denylist, whether
	// added by this invocation or earlier
	Unavailable  bool                             `json:"unavailable"`
	RowsAppended int                              `json:"rows_appended"`
	Rows         []domain.ShareholdingObservation `json:"-"`
	Duration     time.Duration                    `json:"duration"`
}

// Reconciler fills the store for a security and date range from the portal,
// querying only dates that are not already on file.
type Reconciler struct {
	store       Store
	factory     scraper.SessionFactory
	unavailable *UnavailableSet
	locks       *keyedMutex
	logger      *slog.Logger
	metrics     *infrastructure.ScrapeMetrics
	tracer      trace.Tracer
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithLogger sets the reconciler logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records pipeline instruments
func WithMetrics(m *infrastructure.ScrapeMetrics) Option {
	return func(r *Reconciler) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithTracer wraps each invocation in a span
func WithTracer(t trace.Tracer) Option {
	return func(r *Reconciler) {
		if t != nil {
			r.tracer = t
		}
	}
}

// New creates a reconciler. unavailable may be shared with other
// reconcilers of the same run; nil gets a private set.
func New(st Store, factory scraper.SessionFactory, unavailable *UnavailableSet, opts ...Option) *Reconciler {
	if unavailable == nil {
		unavailable = NewUnavailableSet()
	}
	r := &Reconciler{
		store:       st,
		factory:     factory,
		unavailable: unavailable,
		locks:       newKeyedMutex(),
		logger:      slog.Default(),
		metrics:     infrastructure.MustNoopScrapeMetrics(),
		tracer:      tracenoop.NewTracerProvider().Tracer(infrastructure.MeterName),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(slog.String("component", "reconciler"))
	return r
}

// Unavailable returns the run denylist
func (r *Reconciler) Unavailable() *UnavailableSet {
	return r.unavailable
}

// Pull returns every stored row for stockCode requested between start and
// end inclusive, scraping the missing days first.
func (r *Reconciler) Pull(ctx context.Context, start, end time.Time, stockCode int) ([]domain.ShareholdingObservation, error) {
	rep, err := r.PullWithReport(ctx, start, end, stockCode)
	if err != nil {
		return nil, err
	}
	return rep.Rows, nil
}

// PullWithReport is Pull with per-date accounting. Only storage failures
// and cancellation are returned as errors; per-date failures are counted.
func (r *Reconciler) PullWithReport(ctx context.Context, start, end time.Time, stockCode int) (*Report, error) {
	rng, err := domain.NewDateRange(start, end)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	ctx, span := r.tracer.Start(ctx, "reconciler.Pull", trace.WithAttributes(
		attribute.Int("stock_code", stockCode),
		attribute.String("start", domain.FormatDate(rng.Start)),
		attribute.String("end", domain.FormatDate(rng.End)),
	))
	defer span.End()

	began := time.Now()
	unlock := r.locks.Lock(stockCode)
	defer unlock()

	days := rng.Days()
	rep := &Report{StockCode: stockCode, Requested: len(days)}

	covered, err := r.store.CoveredDates(ctx, stockCode)
	if err != nil {
		infrastructure.RecordSpanError(span, err)
		return nil, apperrors.NewStorageError("read coverage", err).WithContext("stock_code", stockCode)
	}

	var missing []time.Time
	for _, d := range days {
		if !covered.Has(d) {
			missing = append(missing, d)
		}
	}
	rep.Missing = len(missing)

	if err := r.fill(ctx, stockCode, missing, rep); err != nil {
		infrastructure.RecordSpanError(span, err)
		return nil, err
	}

	rows, err := r.store.QueryRange(ctx, rng.Start, rng.End, stockCode)
	if err != nil {
		infrastructure.RecordSpanError(span, err)
		return nil, apperrors.NewStorageError("query range", err).WithContext("stock_code", stockCode)
	}
	rep.Rows = rows
	rep.Duration = time.Since(began)

	r.metrics.ReconcileDuration.Record(ctx, rep.Duration.Seconds())
	span.SetAttributes(
		attribute.Int("missing", rep.Missing),
		attribute.Int("scraped", rep.Scraped),
		attribute.Int("rows", len(rows)),
	)

	r.logger.InfoContext(ctx, "reconciled security",
		slog.Int("stock_code", stockCode),
		slog.String("start", domain.FormatDate(rng.Start)),
		slog.String("end", domain.FormatDate(rng.End)),
		slog.Int("missing", rep.Missing),
		slog.Int("scraped", rep.Scraped),
		slog.Int("transient", rep.Transient),
		slog.Int("invalid", rep.Invalid),
		slog.Bool("unavailable", rep.Unavailable),
		slog.Int("rows", len(rows)),
		slog.Duration("duration", rep.Duration))

	return rep, nil
}

// PullSingle scrapes one requested date. With checkExists set a date that
// already has stored rows is left alone; without it the date is queried
// again and its rows appended a second time.
func (r *Reconciler) PullSingle(ctx context.Context, day time.Time, stockCode int, checkExists bool) (*Report, error) {
	day = domain.TruncateDay(day)

	ctx, span := r.tracer.Start(ctx, "reconciler.PullSingle", trace.WithAttributes(
		attribute.Int("stock_code", stockCode),
		attribute.String("date", domain.FormatDate(day)),
	))
	defer span.End()

	unlock := r.locks.Lock(stockCode)
	defer unlock()

	rep := &Report{StockCode: stockCode, Requested: 1}

	if checkExists {
		exists, err := r.store.Exists(ctx, day, stockCode)
		if err != nil {
			infrastructure.RecordSpanError(span, err)
			return nil, apperrors.NewStorageError("check existence", err).WithContext("stock_code", stockCode)
		}
		if exists {
			r.logger.InfoContext(ctx, "date already scraped, skipped",
				slog.Int("stock_code", stockCode),
				slog.String("date_requested", domain.FormatDate(day)))
			return rep, nil
		}
	}

	rep.Missing = 1
	if err := r.fill(ctx, stockCode, []time.Time{day}, rep); err != nil {
		infrastructure.RecordSpanError(span, err)
		return nil, err
	}
	return rep, nil
}

// fill scrapes missing in ascending order over one session. Each successful
// date is appended before the next is queried.
func (r *Reconciler) fill(ctx context.Context, stockCode int, missing []time.Time, rep *Report) error {
	if r.unavailable.Contains(stockCode) {
		rep.Unavailable = true
		if len(missing) > 0 {
			r.logger.DebugContext(ctx, "security unavailable this run, not scraping",
				slog.Int("stock_code", stockCode),
				slog.Int("missing", len(missing)))
		}
		return nil
	}
	if len(missing) == 0 {
		return nil
	}

	session, err := r.factory.Open(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rep.Transient += len(missing)
		r.metrics.DatesSkipped.Add(ctx, int64(len(missing)))
		r.logger.ErrorContext(ctx, "open portal session failed",
			slog.Int("stock_code", stockCode),
			slog.Int("missing", len(missing)),
			slog.String("error", err.Error()))
		return nil
	}
	defer func() {
		if err := session.Close(); err != nil {
			r.logger.WarnContext(ctx, "close portal session", slog.String("error", err.Error()))
		}
	}()

	for _, day := range missing {
		if err := ctx.Err(); err != nil {
			return err
		}

		stop, err := r.scrapeDate(ctx, session, day, stockCode, rep)
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return nil
}

// scrapeDate queries and stores one date. stop is set once the security is
// known to be unavailable. Only storage failures and cancellation are errors.
func (r *Reconciler) scrapeDate(ctx context.Context, session scraper.Session, day time.Time, stockCode int, rep *Report) (stop bool, err error) {
	requested := domain.FormatDate(day)
	logger := r.logger.With(
		slog.Int("stock_code", stockCode),
		slog.String("date_requested", requested))

	began := time.Now()
	res, err := session.Query(ctx, day, stockCode)
	r.metrics.QueriesTotal.Add(ctx, 1)
	r.metrics.QueryDuration.Record(ctx, time.Since(began).Seconds())

	switch {
	case errors.Is(err, scraper.ErrSecurityUnavailable):
		r.metrics.QueryFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("class", "unavailable")))
		rep.Unavailable = true
		if r.unavailable.Add(stockCode) {
			r.metrics.SecuritiesDenied.Add(ctx, 1)
		}
		logger.WarnContext(ctx, "security unavailable, skipping remaining dates",
			slog.String("error", err.Error()))
		return true, nil

	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		r.metrics.QueryFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("class", "transient")))
		r.metrics.DatesSkipped.Add(ctx, 1)
		rep.Transient++
		logger.WarnContext(ctx, "query failed, date skipped", slog.String("error", err.Error()))
		return false, nil
	}

	rows, err := dataprocessing.Normalize(res.Table, dataprocessing.Provenance{
		DateRequested: day,
		AppliedDate:   res.AppliedDate,
		StockCode:     stockCode,
		StockName:     res.StockName,
	})
	if err != nil {
		r.rejected(ctx, logger, rep, err)
		return false, nil
	}

	if len(rows) == 0 {
		rep.Empty++
		logger.InfoContext(ctx, "portal returned no holdings")
		return false, nil
	}

	if err := r.store.Append(ctx, rows); err != nil {
		if errors.Is(err, store.ErrInvalidBatch) {
			r.rejected(ctx, logger, rep, err)
			return false, nil
		}
		return false, apperrors.NewStorageError("append rows", err).
			WithContext("stock_code", stockCode).
			WithContext("date_requested", requested)
	}

	rep.Scraped++
	rep.RowsAppended += len(rows)
	r.metrics.RowsAppended.Add(ctx, int64(len(rows)))

	if applied := rows[0].Date; applied != requested {
		rep.Corrected++
		logger.InfoContext(ctx, "portal applied a different date",
			slog.String("date", applied))
	}
	logger.InfoContext(ctx, "stored shareholding",
		slog.Int("rows", len(rows)),
		slog.Duration("duration", time.Since(began)))

	return false, nil
}

func (r *Reconciler) rejected(ctx context.Context, logger *slog.Logger, rep *Report, err error) {
	rep.Invalid++
	r.metrics.QueryFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("class", "invalid")))
	r.metrics.DatesSkipped.Add(ctx, 1)
	logger.ErrorContext(ctx, "results table rejected, date skipped", slog.String("error", err.Error()))
}

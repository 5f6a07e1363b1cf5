package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"ccasscli/internal/config"
	"ccasscli/internal/dataprocessing"
	apperrors "ccasscli/internal/errors"
	"ccasscli/internal/exporter"
	"ccasscli/internal/operations"
	"ccasscli/internal/reconciler"
	"ccasscli/pkg/contracts/domain"
)

// Puller fetches the reconciled rows of one security
type Puller interface {
	PullWithReport(ctx context.Context, start, end time.Time, stockCode int) (*reconciler.Report, error)
}

// ShareholdingService answers shareholding queries. Every query goes through
// the reconciler, so missing dates are scraped before the views are built.
type ShareholdingService struct {
	puller      Puller
	unavailable *reconciler.UnavailableSet
	cfg         config.AnalyticsConfig
	validate    *validator.Validate
	logger      *slog.Logger
	now         func() time.Time
}

// Download is a rendered export file
type Download struct {
	FileName    string
	ContentType string
	Rows        int
	Data        []byte
}

type queryParams struct {
	StockCode    int     `validate:"gt=0,lt=100000"`
	ThresholdPct float64 `validate:"gte=0,lte=100"`
}

// NewShareholdingService creates the query service. unavailable is the
// denylist shared with the reconciler and may be nil.
func NewShareholdingService(puller Puller, unavailable *reconciler.UnavailableSet, cfg config.AnalyticsConfig, logger *slog.Logger) *ShareholdingService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TopN <= 0 {
		cfg.TopN = dataprocessing.DefaultTopN
	}
	if cfg.DefaultWindowDays <= 0 {
		cfg.DefaultWindowDays = 30
	}
	return &ShareholdingService{
		puller:      puller,
		unavailable: unavailable,
		cfg:         cfg,
		validate:    validator.New(),
		logger:      logger.With(slog.String("service", "shareholding")),
		now:         time.Now,
	}
}

// DefaultThreshold is used when a request carries no threshold
func (s *ShareholdingService) DefaultThreshold() float64 {
	return s.cfg.DefaultThresholdPct
}

// Window resolves ISO start and end strings. Either may be empty, in which
// case the default window ending yesterday fills it in.
func (s *ShareholdingService) Window(start, end string) (domain.DateRange, error) {
	rng, err := operations.ResolveWindow(s.now(), start, end, s.cfg.DefaultWindowDays)
	if err != nil {
		return domain.DateRange{}, apperrors.NewAppError(apperrors.ErrTypeValidation, err.Error(), ErrInvalidRange)
	}
	return rng, nil
}

// Get returns the trend and finder views for stockCode over [start, end].
// A range without stored rows is not an error: the view comes back with
// Available unset and the no-data message.
func (s *ShareholdingService) Get(ctx context.Context, start, end time.Time, stockCode int, thresholdPct float64) (*domain.ShareholdingView, error) {
	rng, err := s.check(start, end, stockCode, thresholdPct)
	if err != nil {
		return nil, err
	}

	rep, err := s.puller.PullWithReport(ctx, rng.Start, rng.End, stockCode)
	if err != nil {
		return nil, err
	}

	view := &domain.ShareholdingView{
		StockCode: stockCode,
		Start:     domain.FormatDate(rng.Start),
		End:       domain.FormatDate(rng.End),
		Coverage: domain.Coverage{
			RequestedDays: rng.Len(),
			DaysOnFile:    daysOnFile(rep.Rows),
		},
	}

	if len(rep.Rows) == 0 {
		view.Message = config.DataNotAvailableMessage
		s.logger.InfoContext(ctx, "no shareholding data for range",
			slog.Int("stock_code", stockCode),
			slog.String("start", view.Start),
			slog.String("end", view.End),
			slog.Bool("unavailable", rep.Unavailable))
		return view, nil
	}

	rows := dataprocessing.Preprocess(rep.Rows)
	view.Available = true
	view.Trend = dataprocessing.Trend(rows, stockCode, s.cfg.TopN)
	view.StockName = view.Trend.StockName
	view.Finder = dataprocessing.Finder(rows, stockCode, thresholdPct)

	s.logger.DebugContext(ctx, "built shareholding view",
		slog.Int("stock_code", stockCode),
		slog.Int("rows", len(rows)),
		slog.Int("days_on_file", view.Coverage.DaysOnFile),
		slog.Int("transactions", len(view.Finder.Transactions)))

	return view, nil
}

// Export renders the raw reconciled rows of stockCode over [start, end]
func (s *ShareholdingService) Export(ctx context.Context, start, end time.Time, stockCode int, format string) (*Download, error) {
	f, err := exporter.ParseFormat(format)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeValidation, err.Error(), ErrInvalidFormat)
	}

	rng, err := s.check(start, end, stockCode, 0)
	if err != nil {
		return nil, err
	}

	rep, err := s.puller.PullWithReport(ctx, rng.Start, rng.End, stockCode)
	if err != nil {
		return nil, err
	}

	exp, err := exporter.New(f)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeValidation, err.Error(), ErrInvalidFormat)
	}

	var buf bytes.Buffer
	if err := exp.Export(&buf, rep.Rows); err != nil {
		return nil, fmt.Errorf("render %s export: %w", f, err)
	}

	s.logger.InfoContext(ctx, "rendered export",
		slog.Int("stock_code", stockCode),
		slog.String("format", string(f)),
		slog.Int("rows", len(rep.Rows)))

	return &Download{
		FileName:    exporter.FileName(stockCode, rng.Start, rng.End, f),
		ContentType: f.ContentType(),
		Rows:        len(rep.Rows),
		Data:        buf.Bytes(),
	}, nil
}

// Unavailable returns the codes denylisted during this process run
func (s *ShareholdingService) Unavailable() []int {
	if s.unavailable == nil {
		return []int{}
	}
	return s.unavailable.Codes()
}

func (s *ShareholdingService) check(start, end time.Time, stockCode int, thresholdPct float64) (domain.DateRange, error) {
	if err := s.validate.Struct(queryParams{StockCode: stockCode, ThresholdPct: thresholdPct}); err != nil {
		return domain.DateRange{}, err
	}

	rng, err := domain.NewDateRange(start, end)
	if err != nil {
		return domain.DateRange{}, apperrors.NewAppError(apperrors.ErrTypeValidation, err.Error(), ErrInvalidRange)
	}

	if limit := s.cfg.MaxLookbackDays; limit > 0 && rng.Len() > limit {
		msg := fmt.Sprintf("range of %d days exceeds the %d day limit", rng.Len(), limit)
		return domain.DateRange{}, apperrors.NewAppError(apperrors.ErrTypeValidation, msg, ErrRangeTooLong)
	}
	return rng, nil
}

func daysOnFile(rows []domain.ShareholdingObservation) int {
	seen := make(map[string]struct{})
	for _, r := range rows {
		seen[r.DateRequested] = struct{}{}
	}
	return len(seen)
}

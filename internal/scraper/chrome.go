package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"ccasscli/internal/config"
	"ccasscli/internal/dataprocessing"
)

// Search form element ids
const (
	idSearchButton   = "#btnSearch"
	idDateInput      = "#txtShareholdingDate"
	idStockCodeInput = "#txtStockCode"
	idResultPanel    = "#pnlResultNormal"
)

// removeResultPanelJS clears the previous results so the next wait cannot
// match stale markup
const removeResultPanelJS = `(function(){var p=document.getElementById("pnlResultNormal");if(p){p.remove();}return true;})()`

const stockNameJS = `(function(){var e=document.getElementById("txtStockName");return e&&e.value?e.value:"";})()`

// ChromeFactory opens sessions backed by a Chrome tab driven over the
// DevTools protocol. With RemoteURL set it attaches to a running browser,
// otherwise it launches a local one.
type ChromeFactory struct {
	cfg    config.ScraperConfig
	logger *slog.Logger
}

// NewChromeFactory creates a factory from scraper settings
func NewChromeFactory(cfg config.ScraperConfig, logger *slog.Logger) *ChromeFactory {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.URL == "" {
		cfg.URL = config.PortalSearchURL
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = config.DefaultReadyTimeout
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = config.DefaultQueryTimeout
	}
	return &ChromeFactory{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "scraper")),
	}
}

func (f *ChromeFactory) allocator() (context.Context, context.CancelFunc) {
	if f.cfg.RemoteURL != "" {
		return chromedp.NewRemoteAllocator(context.Background(), f.cfg.RemoteURL)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.cfg.Headless),
		chromedp.Flag("start-maximized", true),
		chromedp.WindowSize(1920, 1080),
	)
	if f.cfg.IgnoreCertErrors {
		opts = append(opts,
			chromedp.Flag("ignore-certificate-errors", true),
			chromedp.Flag("ignore-ssl-errors", true),
		)
	}
	if f.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.cfg.UserAgent))
	}
	return chromedp.NewExecAllocator(context.Background(), opts...)
}

// Open starts a browser tab, loads the search page and waits for the search
// button. The wait happens once per session.
func (f *ChromeFactory) Open(ctx context.Context) (Session, error) {
	allocCtx, allocCancel := f.allocator()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			f.logger.Debug("devtools", slog.String("detail", fmt.Sprintf(format, args...)))
		}),
	)

	limit := rate.Inf
	if f.cfg.MinInterval > 0 {
		limit = rate.Every(f.cfg.MinInterval)
	}

	s := &ChromeSession{
		tabCtx:       tabCtx,
		cancel:       func() { tabCancel(); allocCancel() },
		queryTimeout: f.cfg.QueryTimeout,
		limiter:      rate.NewLimiter(limit, 1),
		alerts:       make(chan string, 4),
		logger:       f.logger,
	}
	chromedp.ListenTarget(tabCtx, s.onEvent)

	// The first Run allocates the browser. A deadline here would tear the
	// browser down when it expires.
	if err := chromedp.Run(tabCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	readyCtx, cancel := context.WithTimeout(tabCtx, f.cfg.ReadyTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	start := time.Now()
	if err := chromedp.Run(readyCtx,
		chromedp.Navigate(f.cfg.URL),
		chromedp.WaitReady(idSearchButton, chromedp.ByID),
	); err != nil {
		s.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("search page not ready after %s: %w", f.cfg.ReadyTimeout, err)
	}

	f.logger.DebugContext(ctx, "portal session ready",
		slog.String("url", f.cfg.URL),
		slog.Duration("duration", time.Since(start)))
	return s, nil
}

// ChromeSession is a single portal tab
type ChromeSession struct {
	tabCtx       context.Context
	cancel       func()
	closeOnce    sync.Once
	queryTimeout time.Duration
	limiter      *rate.Limiter
	alerts       chan string
	logger       *slog.Logger
}

func (s *ChromeSession) onEvent(ev interface{}) {
	e, ok := ev.(*page.EventJavascriptDialogOpening)
	if !ok {
		return
	}
	select {
	case s.alerts <- e.Message:
	default:
	}
	// Dismiss off the event loop so the page keeps running
	go func() {
		if err := chromedp.Run(s.tabCtx, page.HandleJavaScriptDialog(true)); err != nil {
			s.logger.Debug("dismiss dialog failed", slog.String("error", err.Error()))
		}
	}()
}

func (s *ChromeSession) drainAlerts() {
	for {
		select {
		case <-s.alerts:
		default:
			return
		}
	}
}

// Query runs one search. A security unavailable alert returns an error
// wrapping ErrSecurityUnavailable; every other failure is a *TransientError.
func (s *ChromeSession) Query(ctx context.Context, day time.Time, stockCode int) (*RawResult, error) {
	transient := func(err error) error {
		return &TransientError{Date: day, StockCode: stockCode, Err: err}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, transient(err)
	}
	s.drainAlerts()

	qctx, cancel := context.WithTimeout(s.tabCtx, s.queryTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(qctx,
		chromedp.WaitReady(idSearchButton, chromedp.ByID),
		chromedp.Evaluate(removeResultPanelJS, nil),
		chromedp.SetValue(idDateInput, day.Format(config.PortalDateLayout), chromedp.ByID),
		chromedp.SetValue(idStockCodeInput, strconv.Itoa(stockCode), chromedp.ByID),
		chromedp.Click(idSearchButton, chromedp.ByID),
	); err != nil {
		return nil, transient(fmt.Errorf("submit search: %w", err))
	}

	alert, err := s.awaitOutcome(qctx)
	if alert != "" {
		classified := ClassifyAlert(alert)
		if errors.Is(classified, ErrSecurityUnavailable) {
			return nil, classified
		}
		return nil, transient(classified)
	}
	if err != nil {
		return nil, transient(fmt.Errorf("wait for results: %w", err))
	}

	res := &RawResult{}
	if err := chromedp.Run(qctx,
		chromedp.OuterHTML(idResultPanel, &res.HTML, chromedp.ByID),
		chromedp.Value(idDateInput, &res.AppliedDate, chromedp.ByID),
		chromedp.Evaluate(stockNameJS, &res.StockName),
	); err != nil {
		return nil, transient(fmt.Errorf("read results: %w", err))
	}

	tbl, err := dataprocessing.ParseResultTableString(res.HTML)
	if err != nil {
		return nil, transient(err)
	}
	res.Table = tbl

	return res, nil
}

// awaitOutcome blocks until the results panel is visible or an alert opens
func (s *ChromeSession) awaitOutcome(ctx context.Context) (string, error) {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(waitCtx, chromedp.WaitVisible(idResultPanel, chromedp.ByID))
	}()

	select {
	case err := <-done:
		// An alert raised together with the results still wins
		select {
		case msg := <-s.alerts:
			return msg, nil
		default:
		}
		return "", err
	case msg := <-s.alerts:
		cancel()
		<-done
		return msg, nil
	}
}

// Close releases the tab and, for local browsers, the browser process
func (s *ChromeSession) Close() error {
	s.closeOnce.Do(s.cancel)
	return nil
}

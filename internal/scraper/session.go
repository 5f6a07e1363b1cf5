package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ccasscli/internal/config"
	"ccasscli/internal/dataprocessing"
	"ccasscli/pkg/contracts/domain"
)

// ErrSecurityUnavailable is returned when the portal reports that a stock
// code does not exist or cannot be queried. It holds for the rest of a run.
var ErrSecurityUnavailable = errors.New("security not available for enquiry")

// RawResult is one successful portal query
type RawResult struct {
	// HTML is the outer markup of the results panel
	HTML  string
	Table *dataprocessing.Table
	// AppliedDate is read back from the date field after the search. The
	// portal moves weekends and holidays to the previous business day.
	AppliedDate string
	StockName   string
}

// Session is an open connection to the portal search form. A session is
// used by one goroutine at a time.
type Session interface {
	Query(ctx context.Context, day time.Time, stockCode int) (*RawResult, error)
	Close() error
}

// SessionFactory opens portal sessions
type SessionFactory interface {
	Open(ctx context.Context) (Session, error)
}

// TransientError wraps a failure that affects only one date. The date stays
// unfilled and is retried on a later run.
type TransientError struct {
	Date      time.Time
	StockCode int
	Err       error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure for date=%s stock_code=%d: %v",
		domain.FormatDate(e.Date), e.StockCode, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a per-date failure
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// ClassifyAlert maps the text of a portal alert dialog to an error. An alert
// saying the security does not exist is permanent; any other alert is not.
func ClassifyAlert(message string) error {
	if strings.Contains(strings.ToLower(message), strings.ToLower(config.UnavailableAlertText)) {
		return fmt.Errorf("%w: %s", ErrSecurityUnavailable, strings.TrimSpace(message))
	}
	return fmt.Errorf("portal alert: %s", strings.TrimSpace(message))
}

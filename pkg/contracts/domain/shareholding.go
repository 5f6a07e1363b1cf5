package domain

import (
	"fmt"
	"time"
)

// DateLayout is the ISO layout used for every date persisted by the store
const DateLayout = "2006-01-02"

// ShareholdingObservation is one participant's holding of one security as
// reported by the depository for one requested date.
type ShareholdingObservation struct {
	DateRequested   string  `json:"date_requested" db:"date_requested" validate:"required,datetime=2006-01-02"`
	Date            string  `json:"date" db:"date" validate:"required,datetime=2006-01-02"`
	StockCode       int     `json:"stock_code" db:"stock_code" validate:"required,gt=0"`
	StockName       string  `json:"stock_name,omitempty" db:"stock_name"`
	ParticipantID   string  `json:"participant_id" db:"participant_id"`
	ParticipantName string  `json:"participant_name" db:"participant_name" validate:"required"`
	Shareholding    int64   `json:"shareholding" db:"shareholding" validate:"min=0"`
	PctTotalIssued  float64 `json:"pct_total_issued" db:"pct_total_issued" validate:"min=0,max=100"`
}

// Participant returns the "<id>: <name>" label used by the views
func (o ShareholdingObservation) Participant() string {
	return fmt.Sprintf("%s: %s", o.ParticipantID, o.ParticipantName)
}

// DateRange is an inclusive calendar date range
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange truncates both ends to calendar days and checks ordering
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: TruncateDay(start), End: TruncateDay(end)}
	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("end date %s is before start date %s",
			r.End.Format(DateLayout), r.Start.Format(DateLayout))
	}
	return r, nil
}

// Days returns every calendar day in the range in ascending order
func (r DateRange) Days() []time.Time {
	if r.End.Before(r.Start) {
		return nil
	}
	days := make([]time.Time, 0, r.Len())
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Len returns the number of calendar days in the range. Both ends are UTC
// midnights, so the count is exact for any pair of dates.
func (r DateRange) Len() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int((r.End.Unix()-r.Start.Unix())/secondsPerDay) + 1
}

const secondsPerDay = 24 * 60 * 60

// TruncateDay drops the clock part while keeping the calendar date
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO date string into a UTC midnight time
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a time as an ISO date string
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

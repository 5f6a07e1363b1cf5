package operations

import (
	"fmt"
	"time"

	"ccasscli/pkg/contracts/domain"
)

// CodeRange returns the stock codes from..to inclusive
func CodeRange(from, to int) ([]int, error) {
	if from <= 0 || to < from {
		return nil, fmt.Errorf("invalid stock code range %d..%d", from, to)
	}
	codes := make([]int, 0, to-from+1)
	for c := from; c <= to; c++ {
		codes = append(codes, c)
	}
	return codes, nil
}

// TrailingWindow returns the days-long range ending the day before now
func TrailingWindow(now time.Time, days int) domain.DateRange {
	if days <= 0 {
		days = 1
	}
	end := domain.TruncateDay(now).AddDate(0, 0, -1)
	return domain.DateRange{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}

// ResolveWindow picks explicit dates when given and falls back to the
// trailing window for the missing ends
func ResolveWindow(now time.Time, start, end string, days int) (domain.DateRange, error) {
	w := TrailingWindow(now, days)
	if start != "" {
		t, err := domain.ParseDate(start)
		if err != nil {
			return domain.DateRange{}, err
		}
		w.Start = t
	}
	if end != "" {
		t, err := domain.ParseDate(end)
		if err != nil {
			return domain.DateRange{}, err
		}
		w.End = t
	}
	return domain.NewDateRange(w.Start, w.End)
}

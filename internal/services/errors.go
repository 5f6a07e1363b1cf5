package services

import "errors"

// Query errors
var (
	ErrInvalidRange  = errors.New("invalid date range")
	ErrRangeTooLong  = errors.New("date range exceeds lookback limit")
	ErrInvalidFormat = errors.New("invalid export format")

	// ErrStoreNotReady is reported by readiness checks
	ErrStoreNotReady = errors.New("store not ready")
)

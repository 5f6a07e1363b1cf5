// Package api contains API contract definitions for the CCASS shareholding service.
// Version v1 represents the current stable API version.
package api

import (
	"ccasscli/pkg/contracts/domain"
)

// DateRangeRequest represents a date range in requests. Missing ends fall
// back to the default window ending yesterday.
type DateRangeRequest struct {
	Start string `json:"start" query:"start" validate:"omitempty,isodate"`
	End   string `json:"end" query:"end" validate:"omitempty,isodate"`
}

// ShareholdingQueryRequest represents GET /api/shareholding/{code}
type ShareholdingQueryRequest struct {
	StockCode int `json:"stock_code" param:"code" validate:"required,gt=0,lt=100000"`
	DateRangeRequest
	// ThresholdPct is in percent; nil uses the configured default
	ThresholdPct *float64 `json:"threshold,omitempty" query:"threshold" validate:"omitempty,gte=0,lte=100"`
}

// ExportRequest represents GET /api/shareholding/{code}/export
type ExportRequest struct {
	StockCode int `json:"stock_code" param:"code" validate:"required,gt=0,lt=100000"`
	DateRangeRequest
	Format string `json:"format" query:"format" validate:"omitempty,oneof=csv xlsx"`
}

// ShareholdingResponse wraps the view returned to clients
type ShareholdingResponse struct {
	Status string                   `json:"status"`
	Data   *domain.ShareholdingView `json:"data"`
}

// UnavailableResponse lists securities denylisted during this process run
type UnavailableResponse struct {
	Status string `json:"status"`
	Codes  []int  `json:"codes"`
	Count  int    `json:"count"`
}

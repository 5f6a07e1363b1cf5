package http

import (
	"context"
	"time"

	"ccasscli/internal/services"
	"ccasscli/pkg/contracts/domain"
)

// ShareholdingServiceInterface defines the query operations the handlers use
type ShareholdingServiceInterface interface {
	Window(start, end string) (domain.DateRange, error)
	DefaultThreshold() float64
	Get(ctx context.Context, start, end time.Time, stockCode int, thresholdPct float64) (*domain.ShareholdingView, error)
	Export(ctx context.Context, start, end time.Time, stockCode int, format string) (*services.Download, error)
	Unavailable() []int
}

// HealthServiceInterface defines the health operations the handlers use
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) (services.HealthStatus, error)
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}

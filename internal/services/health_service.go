package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"ccasscli/pkg/contracts"
)

// Pinger is satisfied by the store
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService provides health check functionality
type HealthService struct {
	store     Pinger
	denylist  func() []int
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. denylist reports the codes
// denylisted this run and may be nil.
func NewHealthService(store Pinger, denylist func() []int, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		store:     store,
		denylist:  denylist,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}
}

// ReadinessCheck pings the store
func (hs *HealthService) ReadinessCheck(ctx context.Context) (HealthStatus, error) {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services:  make(map[string]ServiceHealth),
	}

	var err error
	status.Services["store"], err = hs.checkStore(ctx)
	if err != nil {
		status.Status = "not_ready"
		hs.logger.WarnContext(ctx, "readiness check failed", slog.String("error", err.Error()))
	}

	denied := 0
	if hs.denylist != nil {
		denied = len(hs.denylist())
	}
	status.Services["scraper"] = ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d securities unavailable this run", denied),
	}

	return status, err
}

func (hs *HealthService) checkStore(ctx context.Context) (ServiceHealth, error) {
	if hs.store == nil {
		return ServiceHealth{Status: "not_ready", Message: "store not configured"}, ErrStoreNotReady
	}
	if err := hs.store.Ping(ctx); err != nil {
		return ServiceHealth{Status: "not_ready", Message: err.Error()}, fmt.Errorf("%w: %v", ErrStoreNotReady, err)
	}
	return ServiceHealth{Status: "ready", Message: "store reachable"}, nil
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":      info.Version,
		"build_time":   info.BuildTime,
		"git_commit":   info.GitCommit,
		"go_version":   info.GoVersion,
		"os":           info.OS,
		"arch":         info.Architecture,
		"data_format":  info.DataFormat,
		"api_version":  info.APIVersion,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

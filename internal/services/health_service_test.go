package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ccasscli/internal/shared/testutil"
	"ccasscli/pkg/contracts"
)

// MockPinger is a mock implementation of Pinger
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestHealthService_HealthCheck(t *testing.T) {
	hs := NewHealthService(nil, nil, nil)
	status := hs.HealthCheck(context.Background())
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, contracts.Version, status.Version)
}

func TestHealthService_ReadinessCheck(t *testing.T) {
	t.Run("store reachable", func(t *testing.T) {
		pinger := new(MockPinger)
		pinger.On("Ping", mock.Anything).Return(nil)

		hs := NewHealthService(pinger, func() []int { return []int{3, 9} }, nil)
		status, err := hs.ReadinessCheck(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "ready", status.Status)
		assert.Equal(t, "ready", status.Services["store"].Status)
		assert.Equal(t, "2 securities unavailable this run", status.Services["scraper"].Message)
		pinger.AssertExpectations(t)
	})

	t.Run("store down", func(t *testing.T) {
		pinger := new(MockPinger)
		pinger.On("Ping", mock.Anything).Return(errors.New("database is closed"))

		logger, logs := testutil.NewTestLogger(t)
		hs := NewHealthService(pinger, nil, logger)
		status, err := hs.ReadinessCheck(context.Background())

		assert.ErrorIs(t, err, ErrStoreNotReady)
		assert.Equal(t, "not_ready", status.Status)
		assert.Equal(t, "database is closed", status.Services["store"].Message)
		assert.True(t, logs.ContainsMessage("readiness check failed"))
	})

	t.Run("no store", func(t *testing.T) {
		hs := NewHealthService(nil, nil, nil)
		_, err := hs.ReadinessCheck(context.Background())
		assert.ErrorIs(t, err, ErrStoreNotReady)
	})
}

func TestHealthService_Version(t *testing.T) {
	hs := NewHealthService(nil, nil, nil)
	v := hs.Version()
	assert.Equal(t, contracts.Version, v["version"])
	assert.Equal(t, contracts.APIVersion, v["api_version"])
	assert.Contains(t, v, "uptime")
}

func TestHealthService_LivenessCheck(t *testing.T) {
	status := NewHealthService(nil, nil, nil).LivenessCheck(context.Background())
	assert.Equal(t, "alive", status.Status)
	assert.Contains(t, status.Runtime, "goroutines")
}

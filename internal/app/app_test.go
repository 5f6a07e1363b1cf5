package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccasscli/internal/config"
	"ccasscli/internal/middleware"
	"ccasscli/internal/shared/testutil"
	api "ccasscli/pkg/contracts/api/v1"
)

func newTestApp(t *testing.T) (*Application, *testutil.FakePortal) {
	t.Helper()

	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "ccass.db")
	cfg.Security.RateLimit.Enabled = false

	logger, _ := testutil.NewTestLogger(t)
	portal := testutil.NewFakePortal()

	app, err := New(cfg, logger, nil, portal)
	require.NoError(t, err)
	t.Cleanup(func() { app.Store.Close() })
	return app, portal
}

func serve(app *Application, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	return w
}

func TestNew_WiresComponents(t *testing.T) {
	app, _ := newTestApp(t)

	assert.NotNil(t, app.Store)
	assert.NotNil(t, app.Reconciler)
	assert.NotNil(t, app.Services.Shareholding)
	assert.NotNil(t, app.Services.Health)
	assert.NotNil(t, app.Router)
	assert.Equal(t, ":8080", app.Server.Addr)
	assert.Equal(t, app.Config.Server.MaxHeaderBytes, app.Server.MaxHeaderBytes)
}

func TestRouter_HealthRoutes(t *testing.T) {
	app, _ := newTestApp(t)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"health", "/api/health", http.StatusOK},
		{"ready", "/api/health/ready", http.StatusOK},
		{"live", "/api/health/live", http.StatusOK},
		{"version", "/api/version", http.StatusOK},
		{"unknown route", "/api/nope", http.StatusNotFound},
		{"metrics without exporter", "/metrics", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(app, http.MethodGet, tt.path)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestRouter_ShareholdingQuery(t *testing.T) {
	app, portal := newTestApp(t)

	w := serve(app, http.MethodGet, "/api/shareholding/700?start=2024-01-01&end=2024-01-03")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	var resp api.ShareholdingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	require.NotNil(t, resp.Data)
	assert.True(t, resp.Data.Available)
	assert.Equal(t, 700, resp.Data.StockCode)
	assert.Equal(t, 3, resp.Data.Coverage.DaysOnFile)
	require.NotNil(t, resp.Data.Trend)
	assert.Len(t, portal.QueriesFor(700), 3)

	// A second query is served from the store
	w = serve(app, http.MethodGet, "/api/shareholding/700?start=2024-01-01&end=2024-01-03")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, portal.QueriesFor(700), 3)
}

func TestRouter_ShareholdingValidation(t *testing.T) {
	app, _ := newTestApp(t)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"non numeric code", "/api/shareholding/abc?start=2024-01-01&end=2024-01-02", http.StatusBadRequest},
		{"bad date", "/api/shareholding/700?start=2024-13-01&end=2024-01-02", http.StatusBadRequest},
		{"reversed range", "/api/shareholding/700?start=2024-01-05&end=2024-01-02", http.StatusBadRequest},
		{"threshold out of range", "/api/shareholding/700?start=2024-01-01&end=2024-01-02&threshold=150", http.StatusBadRequest},
		{"unknown export format", "/api/shareholding/700/export?start=2024-01-01&end=2024-01-02&format=pdf", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(app, http.MethodGet, tt.path)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
		})
	}
}

func TestRouter_ExportAndDenylist(t *testing.T) {
	app, portal := newTestApp(t)
	portal.SetUnavailable(9, testutil.Day(t, "2024-01-01"))

	w := serve(app, http.MethodGet, "/api/shareholding/700/export?start=2024-01-01&end=2024-01-02&format=csv")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "ccass_00700_2024-01-01_2024-01-02.csv")
	assert.True(t, strings.Contains(w.Body.String(), "participant_id"))

	w = serve(app, http.MethodGet, "/api/shareholding/9?start=2024-01-01&end=2024-01-02")
	require.Equal(t, http.StatusOK, w.Code)
	var query api.ShareholdingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &query))
	assert.False(t, query.Data.Available)
	assert.Equal(t, config.DataNotAvailableMessage, query.Data.Message)

	w = serve(app, http.MethodGet, "/api/unavailable")
	require.Equal(t, http.StatusOK, w.Code)
	var denylist api.UnavailableResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &denylist))
	assert.Equal(t, []int{9}, denylist.Codes)
	assert.Equal(t, 1, denylist.Count)
}

func TestApplication_Stop(t *testing.T) {
	app, _ := newTestApp(t)

	require.NoError(t, app.Stop(context.Background()))
	assert.Error(t, app.Store.Ping(context.Background()))
}

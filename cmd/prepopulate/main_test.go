package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccasscli/internal/config"
	"ccasscli/internal/operations"
	"ccasscli/internal/shared/testutil"
	"ccasscli/internal/store"
)

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		check   func(t *testing.T, o options)
		wantErr bool
	}{
		{
			name: "config defaults",
			args: nil,
			check: func(t *testing.T, o options) {
				assert.Equal(t, 1, o.fromCode)
				assert.Equal(t, 10, o.toCode)
				assert.Equal(t, 365, o.days)
				assert.True(t, o.headless)
			},
		},
		{
			name: "overrides",
			args: []string{"-from-code", "700", "-to-code", "705", "-start", "2024-01-01", "-end", "2024-01-31", "-workers", "2", "-headless=false", "-remote-url", "ws://127.0.0.1:9222/devtools/browser/x"},
			check: func(t *testing.T, o options) {
				assert.Equal(t, 700, o.fromCode)
				assert.Equal(t, 705, o.toCode)
				assert.Equal(t, "2024-01-01", o.start)
				assert.Equal(t, "2024-01-31", o.end)
				assert.Equal(t, 2, o.workers)
				assert.False(t, o.headless)
				assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/x", o.remoteURL)
			},
		},
		{name: "reversed code range", args: []string{"-from-code", "9", "-to-code", "3"}, wantErr: true},
		{name: "unknown flag", args: []string{"-verbose"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := parseOptions(tt.args, config.Default())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, o)
		})
	}
}

func TestOptionsApply(t *testing.T) {
	cfg := config.Default()
	o, err := parseOptions([]string{"-from-code", "5", "-to-code", "6", "-workers", "3"}, cfg)
	require.NoError(t, err)
	o.apply(cfg)

	assert.Equal(t, 5, cfg.Prepopulate.FromCode)
	assert.Equal(t, 6, cfg.Prepopulate.ToCode)
	assert.Equal(t, 3, cfg.Prepopulate.Workers)
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "ccass.db")
	cfg.Prepopulate.FromCode = 1
	cfg.Prepopulate.ToCode = 3
	cfg.Prepopulate.StartDate = "2024-01-01"
	cfg.Prepopulate.EndDate = "2024-01-03"
	cfg.Prepopulate.Workers = 2
	return cfg
}

func TestExecute_BestEffort(t *testing.T) {
	cfg := testConfig(t)
	portal := testutil.NewFakePortal()
	portal.SetUnavailable(2, testutil.Day(t, "2024-01-02"))
	logger, logs := testutil.NewTestLogger(t)

	summary, err := execute(context.Background(), cfg, nil, portal, logger)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Codes)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Unavailable)
	assert.Equal(t, 3+1+3, summary.DatesScraped)
	testutil.AssertLogContains(t, logs, slog.LevelInfo, "Prepopulating store")

	st, err := store.Open(cfg.Store.Path)
	require.NoError(t, err)
	defer st.Close()
	codes, err := st.StockCodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, codes)

	var buf bytes.Buffer
	writeSummary(&buf, summary)
	var decoded operations.Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, summary.RunID, decoded.RunID)
}

func TestExecute_SequentialWhenConcurrencyDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Prepopulate.Concurrent = false
	portal := testutil.NewFakePortal()
	logger, _ := testutil.NewTestLogger(t)

	_, err := execute(context.Background(), cfg, nil, portal, logger)
	require.NoError(t, err)
	assert.Equal(t, 1, portal.MaxConcurrentSessions())
}

func TestExecute_BootstrapFailures(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	t.Run("invalid window", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Prepopulate.StartDate = "2024-02-01"
		_, err := execute(context.Background(), cfg, nil, testutil.NewFakePortal(), logger)
		assert.Error(t, err)
	})

	t.Run("store directory cannot be created", func(t *testing.T) {
		cfg := testConfig(t)
		blocker := filepath.Join(t.TempDir(), "blocker")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
		cfg.Store.Path = filepath.Join(blocker, "ccass.db")
		_, err := execute(context.Background(), cfg, nil, testutil.NewFakePortal(), logger)
		assert.Error(t, err)
	})
}

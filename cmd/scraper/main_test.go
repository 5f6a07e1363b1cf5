package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccasscli/internal/config"
	"ccasscli/internal/shared/testutil"
)

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "range", args: []string{"-code", "700", "-start", "2024-01-01", "-end", "2024-01-05"}},
		{name: "single date", args: []string{"-code", "700", "-date", "2024-01-02", "-check-exists=false"}},
		{name: "with export", args: []string{"-code", "700", "-export", "xlsx"}},
		{name: "missing code", args: []string{"-start", "2024-01-01"}, wantErr: true},
		{name: "date with range", args: []string{"-code", "1", "-date", "2024-01-02", "-end", "2024-01-03"}, wantErr: true},
		{name: "unknown export format", args: []string{"-code", "1", "-export", "pdf"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseOptions(tt.args, config.Default())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOptionsWindow(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

	single, err := options{date: "2024-02-01"}.window(now, 8)
	require.NoError(t, err)
	assert.Equal(t, 1, single.Len())

	defaulted, err := options{}.window(now, 8)
	require.NoError(t, err)
	assert.Equal(t, testutil.Day(t, "2024-03-02"), defaulted.Start)
	assert.Equal(t, testutil.Day(t, "2024-03-09"), defaulted.End)
}

func newConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "ccass.db")
	return cfg
}

func TestRun_RangeWithExport(t *testing.T) {
	cfg := newConfig(t)
	portal := testutil.NewFakePortal()
	logger, _ := testutil.NewTestLogger(t)
	outDir := t.TempDir()

	opts := options{code: 700, start: "2024-01-01", end: "2024-01-02", format: "csv", outDir: outDir}
	res, err := run(context.Background(), cfg, opts, portal, logger)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Report.Scraped)
	assert.Len(t, res.Rows, 4)
	assert.Equal(t, filepath.Join(outDir, "ccass_00700_2024-01-01_2024-01-02.csv"), res.File)
	_, err = os.Stat(res.File)
	assert.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, res))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, float64(700), decoded["stock_code"])
	assert.Len(t, decoded["rows"], 4)
	assert.NotContains(t, decoded["report"], "Rows")
}

func TestRun_SingleDate(t *testing.T) {
	cfg := newConfig(t)
	portal := testutil.NewFakePortal()
	logger, _ := testutil.NewTestLogger(t)

	opts := options{code: 5, date: "2024-01-03", checkExists: true}
	res, err := run(context.Background(), cfg, opts, portal, logger)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.Scraped)
	assert.Len(t, res.Rows, 2)

	// Already stored, so the portal is not asked again
	res, err = run(context.Background(), cfg, opts, portal, logger)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Report.Scraped)
	assert.Len(t, res.Rows, 2)
	assert.Len(t, portal.QueriesFor(5), 1)
}

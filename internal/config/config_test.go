package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		fileContent string
		wantErr     bool
		validateCfg func(*testing.T, *Config, string)
	}{
		{
			name: "defaults with no env vars",
			validateCfg: func(t *testing.T, cfg *Config, home string) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, PortalSearchURL, cfg.Scraper.URL)
				assert.True(t, cfg.Scraper.Headless)
				assert.Equal(t, 10*time.Second, cfg.Scraper.QueryTimeout)
				assert.Equal(t, 1, cfg.Prepopulate.FromCode)
				assert.Equal(t, 10, cfg.Prepopulate.ToCode)
				assert.Equal(t, 10, cfg.Analytics.TopN)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, filepath.Join(home, "data", "ccass.db"), cfg.Store.Path)
				assert.Equal(t, filepath.Join(home, "logs", "ccass.log"), cfg.Logging.FilePath)
			},
		},
		{
			name: "environment overrides defaults",
			env: map[string]string{
				"CCASS_SERVER_PORT":         "9090",
				"CCASS_SCRAPER_HEADLESS":    "false",
				"CCASS_SCRAPER_REMOTE_URL":  "ws://127.0.0.1:9222/devtools/browser/abc",
				"CCASS_PREPOPULATE_WORKERS": "8",
				"CCASS_STORE_DB_PATH":       "custom.db",
			},
			validateCfg: func(t *testing.T, cfg *Config, home string) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.False(t, cfg.Scraper.Headless)
				assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/abc", cfg.Scraper.RemoteURL)
				assert.Equal(t, 8, cfg.Prepopulate.Workers)
				assert.Equal(t, filepath.Join(home, "data", "custom.db"), cfg.Store.Path)
			},
		},
		{
			name: "file values apply and env wins over file",
			env: map[string]string{
				"CCASS_SERVER_PORT": "7070",
			},
			fileContent: `
server:
  port: 6060
scraper:
  query_timeout: 30s
prepopulate:
  from_code: 5
  to_code: 25
`,
			validateCfg: func(t *testing.T, cfg *Config, _ string) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Scraper.QueryTimeout)
				assert.Equal(t, 5, cfg.Prepopulate.FromCode)
				assert.Equal(t, 25, cfg.Prepopulate.ToCode)
				// untouched keys keep their defaults
				assert.Equal(t, 10*time.Second, cfg.Scraper.ReadyTimeout)
			},
		},
		{
			name: "invalid port",
			env: map[string]string{
				"CCASS_SERVER_PORT": "70000",
			},
			wantErr: true,
		},
		{
			name: "inverted code range",
			env: map[string]string{
				"CCASS_PREPOPULATE_FROM_CODE": "20",
				"CCASS_PREPOPULATE_TO_CODE":   "10",
			},
			wantErr: true,
		},
		{
			name:        "malformed yaml",
			fileContent: "server: [port",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := t.TempDir()
			t.Setenv(HomeEnvVar, home)
			t.Setenv(EnvPrefix+"_CONFIG_FILE", "")

			if tt.fileContent != "" {
				file := filepath.Join(home, "config.yaml")
				require.NoError(t, os.WriteFile(file, []byte(tt.fileContent), 0644))
				t.Setenv(EnvPrefix+"_CONFIG_FILE", file)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg, home)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2.0, cfg.Analytics.DefaultThresholdPct)
	assert.Equal(t, 8, cfg.Analytics.DefaultWindowDays)
	assert.Equal(t, 365, cfg.Prepopulate.WindowDays)
	assert.True(t, cfg.Prepopulate.Concurrent)
	assert.Empty(t, cfg.Store.Path, "store path is resolved by Load")
}

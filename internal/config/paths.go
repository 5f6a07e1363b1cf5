package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// HomeEnvVar overrides the application home directory
const HomeEnvVar = EnvPrefix + "_HOME"

// Paths contains all the application paths
type Paths struct {
	// HomeDir is CCASS_HOME when set, otherwise the executable's directory
	HomeDir      string
	DataDir      string
	ExportsDir   string
	LogsDir      string
	DatabaseFile string
	LogFile      string
}

// GetPaths returns the application paths. Every path hangs off HomeDir:
//
//	home/
//	  ├── data/
//	  │   ├── ccass.db   (shareholding store)
//	  │   └── exports/   (CSV and XLSX downloads)
//	  └── logs/
func GetPaths() (*Paths, error) {
	home, err := resolveHome()
	if err != nil {
		return nil, err
	}
	return pathsFrom(home), nil
}

func resolveHome() (string, error) {
	if home := os.Getenv(HomeEnvVar); home != "" {
		abs, err := filepath.Abs(home)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", HomeEnvVar, err)
		}
		return abs, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return filepath.Dir(exe), nil
}

func pathsFrom(home string) *Paths {
	dataDir := filepath.Join(home, DefaultDataDir)
	logsDir := filepath.Join(home, DefaultLogsDir)
	return &Paths{
		HomeDir:      home,
		DataDir:      dataDir,
		ExportsDir:   filepath.Join(home, DefaultExportsDir),
		LogsDir:      logsDir,
		DatabaseFile: filepath.Join(dataDir, DefaultDatabaseFile),
		LogFile:      filepath.Join(logsDir, DefaultLogFile),
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.ExportsDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// LogPathResolution logs every resolved path at debug level
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Resolved application paths",
		slog.String("home", p.HomeDir),
		slog.String("data_dir", p.DataDir),
		slog.String("exports_dir", p.ExportsDir),
		slog.String("logs_dir", p.LogsDir),
		slog.String("database", p.DatabaseFile))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

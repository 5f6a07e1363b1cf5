package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ccasscli/pkg/contracts/domain"
)

// Columns is the header row of every export, in store column order
var Columns = []string{
	"date_requested",
	"date",
	"stock_code",
	"stock_name",
	"participant_id",
	"participant_name",
	"shareholding",
	"pct_total_issued",
}

// Exporter renders observation rows in one file format
type Exporter interface {
	Format() Format
	Export(w io.Writer, rows []domain.ShareholdingObservation) error
}

// New returns the exporter for f
func New(f Format) (Exporter, error) {
	switch f {
	case FormatCSV:
		return &CSVExporter{BOMPrefix: true}, nil
	case FormatXLSX:
		return &XLSXExporter{}, nil
	}
	return nil, fmt.Errorf("unsupported export format %q", f)
}

// FileName is the download name for a stock code and range, e.g.
// ccass_00700_2024-01-01_2024-01-31.csv
func FileName(stockCode int, start, end time.Time, f Format) string {
	return fmt.Sprintf("ccass_%05d_%s_%s.%s", stockCode,
		domain.FormatDate(start), domain.FormatDate(end), f.Extension())
}

// WriteFile exports rows to dir/name, creating dir when needed, and
// returns the full path
func WriteFile(dir, name string, e Exporter, rows []domain.ShareholdingObservation) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	fullPath := filepath.Join(dir, name)
	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if err := e.Export(file, rows); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	slog.Info("Wrote export file",
		slog.String("path", fullPath),
		slog.String("format", string(e.Format())),
		slog.Int("record_count", len(rows)))
	return fullPath, nil
}

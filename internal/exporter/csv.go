package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"ccasscli/pkg/contracts/domain"
)

// CSVExporter writes observation rows as comma separated values
type CSVExporter struct {
	// BOMPrefix adds a UTF-8 BOM so spreadsheet apps detect the encoding
	BOMPrefix bool
}

// Format implements Exporter
func (e *CSVExporter) Format() Format { return FormatCSV }

// Export writes the header line followed by one line per row
func (e *CSVExporter) Export(w io.Writer, rows []domain.ShareholdingObservation) error {
	if e.BOMPrefix {
		if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, row := range rows {
		if err := writer.Write(record(row)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func record(o domain.ShareholdingObservation) []string {
	return []string{
		o.DateRequested,
		o.Date,
		strconv.Itoa(o.StockCode),
		o.StockName,
		o.ParticipantID,
		o.ParticipantName,
		formatInt(o.Shareholding),
		formatPct(o.PctTotalIssued),
	}
}

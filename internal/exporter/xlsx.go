package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"ccasscli/pkg/contracts/domain"
)

// DefaultSheet is the worksheet rows are written to
const DefaultSheet = "Shareholding"

// XLSXExporter writes observation rows to a single worksheet
type XLSXExporter struct {
	Sheet string
}

// Format implements Exporter
func (e *XLSXExporter) Format() Format { return FormatXLSX }

// Export streams rows into a new workbook and writes it to w. Numbers are
// stored as numeric cells.
func (e *XLSXExporter) Export(w io.Writer, rows []domain.ShareholdingObservation) error {
	sheet := e.Sheet
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: bold}); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, o := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			o.DateRequested,
			o.Date,
			o.StockCode,
			o.StockName,
			o.ParticipantID,
			o.ParticipantName,
			o.Shareholding,
			o.PctTotalIssued,
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	return f.Write(w)
}

// Package exporter renders stored shareholding rows as downloadable files.
//
// Two formats are supported:
//
// CSVExporter writes comma separated values, optionally with a UTF-8 BOM
// for Excel compatibility.
//
// XLSXExporter writes a single worksheet workbook with numeric cells for
// the code, holding and percentage columns.
//
// Both emit the same header (Columns) in store column order.
//
//	exp, err := exporter.New(exporter.FormatXLSX)
//	if err != nil {
//		return err
//	}
//	err = exp.Export(w, rows)
package exporter

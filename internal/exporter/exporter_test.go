package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ccasscli/pkg/contracts/domain"
)

func sampleRows() []domain.ShareholdingObservation {
	return []domain.ShareholdingObservation{
		{
			DateRequested:   "2024-01-06",
			Date:            "2024-01-05",
			StockCode:       700,
			StockName:       "TENCENT",
			ParticipantID:   "C00019",
			ParticipantName: "HSBC, HONG KONG",
			Shareholding:    1234567890,
			PctTotalIssued:  32.21,
		},
		{
			DateRequested:   "2024-01-06",
			Date:            "2024-01-05",
			StockCode:       700,
			ParticipantID:   "",
			ParticipantName: "* CHAN TAI MAN",
			Shareholding:    0,
			PctTotalIssued:  0,
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatCSV},
		{in: "csv", want: FormatCSV},
		{in: " XLSX ", want: FormatXLSX},
		{in: "pdf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_ContentType(t *testing.T) {
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
	assert.Contains(t, FormatXLSX.ContentType(), "spreadsheetml")
}

func TestCSVExporter_Export(t *testing.T) {
	t.Run("with BOM", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&CSVExporter{BOMPrefix: true}).Export(&buf, sampleRows()))

		data := buf.Bytes()
		require.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))

		records, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, Columns, records[0])
		assert.Equal(t, []string{"2024-01-06", "2024-01-05", "700", "TENCENT", "C00019", "HSBC, HONG KONG", "1234567890", "32.21"}, records[1])
		assert.Equal(t, []string{"2024-01-06", "2024-01-05", "700", "", "", "* CHAN TAI MAN", "0", "0"}, records[2])
	})

	t.Run("empty rows still write header", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&CSVExporter{}).Export(&buf, nil))
		assert.Equal(t, "date_requested,date,stock_code,stock_name,participant_id,participant_name,shareholding,pct_total_issued\n", buf.String())
	})
}

func TestXLSXExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&XLSXExporter{}).Export(&buf, sampleRows()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{DefaultSheet}, f.GetSheetList())

	rows, err := f.GetRows(DefaultSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "C00019", rows[1][4])
	assert.Equal(t, "1234567890", rows[1][6])
	assert.Equal(t, "* CHAN TAI MAN", rows[2][5])
}

func TestNew(t *testing.T) {
	csvExp, err := New(FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, csvExp.Format())

	xlsxExp, err := New(FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, xlsxExp.Format())

	_, err = New(Format("pdf"))
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "ccass_00700_2024-01-01_2024-01-31.xlsx", FileName(700, start, end, FormatXLSX))
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")

	path, err := WriteFile(dir, "out.csv", &CSVExporter{}, sampleRows())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "TENCENT")
}

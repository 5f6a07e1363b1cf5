package dataprocessing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"ccasscli/internal/config"
	"ccasscli/pkg/contracts/domain"
)

// Column headings of the portal results table
const (
	HeaderParticipantID   = "Participant ID"
	HeaderParticipantName = "Name of CCASS Participant(* for Consenting Investor Participants )"
	HeaderAddress         = "Address"
	HeaderShareholding    = "Shareholding"
	HeaderPctTotalIssued  = "% of the total number of Issued Shares/ Warrants/ Units"
)

// Internal column names after renaming
const (
	colParticipantID   = "participant_id"
	colParticipantName = "participant_name"
	colAddress         = "address"
	colShareholding    = "shareholding"
	colPctTotalIssued  = "pct_total_issued"
)

var headerColumns = map[string]string{
	headerKey(HeaderParticipantID):   colParticipantID,
	headerKey(HeaderParticipantName): colParticipantName,
	headerKey(HeaderAddress):         colAddress,
	headerKey(HeaderShareholding):    colShareholding,
	headerKey(HeaderPctTotalIssued):  colPctTotalIssued,
}

var requiredColumns = []string{
	colParticipantID,
	colParticipantName,
	colAddress,
	colShareholding,
	colPctTotalIssued,
}

// headerKey compares headings without regard to whitespace or case
func headerKey(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), ""))
}

// SchemaError reports a results table whose columns differ from the expected set
type SchemaError struct {
	Missing    []string
	Unexpected []string
	Duplicate  []string
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Unexpected, ", "))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, "duplicate "+strings.Join(e.Duplicate, ", "))
	}
	return "results table schema mismatch: " + strings.Join(parts, "; ")
}

// ValidationError reports a cell that could not be converted. One bad cell
// rejects the whole table.
type ValidationError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("invalid %s %q: %v", e.Column, e.Value, e.Err)
	}
	return fmt.Sprintf("row %d: invalid %s %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Provenance describes the query that produced a results table
type Provenance struct {
	DateRequested time.Time
	// AppliedDate is the date the portal actually served, read back from
	// the search form in portal layout (YYYY/MM/DD) or ISO layout.
	AppliedDate string
	StockCode   int
	StockName   string
}

// Normalize converts a results table into typed observations. The address
// column is dropped. A table with zero data rows yields an empty slice.
func Normalize(t *Table, p Provenance) ([]domain.ShareholdingObservation, error) {
	if t == nil {
		return nil, &SchemaError{Missing: append([]string(nil), requiredColumns...)}
	}
	idx, err := columnIndex(t.Header)
	if err != nil {
		return nil, err
	}

	applied, err := ParseAppliedDate(p.AppliedDate)
	if err != nil {
		return nil, &ValidationError{Row: -1, Column: "date", Value: p.AppliedDate, Err: err}
	}

	requested := domain.FormatDate(p.DateRequested)
	date := domain.FormatDate(applied)
	stockName := strings.TrimSpace(p.StockName)

	out := make([]domain.ShareholdingObservation, 0, len(t.Rows))
	for i, row := range t.Rows {
		holding, err := ParseShareholding(row[idx[colShareholding]])
		if err != nil {
			return nil, &ValidationError{Row: i, Column: colShareholding, Value: row[idx[colShareholding]], Err: err}
		}

		pct, err := ParsePercentage(row[idx[colPctTotalIssued]])
		if err != nil {
			return nil, &ValidationError{Row: i, Column: colPctTotalIssued, Value: row[idx[colPctTotalIssued]], Err: err}
		}

		out = append(out, domain.ShareholdingObservation{
			DateRequested:   requested,
			Date:            date,
			StockCode:       p.StockCode,
			StockName:       stockName,
			ParticipantID:   strings.TrimSpace(row[idx[colParticipantID]]),
			ParticipantName: strings.TrimSpace(row[idx[colParticipantName]]),
			Shareholding:    holding,
			PctTotalIssued:  pct,
		})
	}

	return out, nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	schemaErr := &SchemaError{}

	for i, h := range header {
		col, ok := headerColumns[headerKey(h)]
		if !ok {
			schemaErr.Unexpected = append(schemaErr.Unexpected, h)
			continue
		}
		if _, dup := idx[col]; dup {
			schemaErr.Duplicate = append(schemaErr.Duplicate, h)
			continue
		}
		idx[col] = i
	}

	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			schemaErr.Missing = append(schemaErr.Missing, col)
		}
	}
	sort.Strings(schemaErr.Missing)

	if len(schemaErr.Missing) > 0 || len(schemaErr.Unexpected) > 0 || len(schemaErr.Duplicate) > 0 {
		return nil, schemaErr
	}
	return idx, nil
}

// ParsePercentage parses "2.50%" as 2.5. Anything non-numeric, including
// "N/A", is an error.
func ParsePercentage(s string) (float64, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimSpace(strings.TrimSuffix(v, "%"))
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("not a percentage: %w", err)
	}
	return f, nil
}

// ParseShareholding parses a share count with optional thousand separators
func ParseShareholding(s string) (int64, error) {
	v := strings.NewReplacer(",", "", " ", "").Replace(strings.TrimSpace(s))
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a share count: %w", err)
	}
	return n, nil
}

// ParseAppliedDate accepts the portal layout and falls back to ISO
func ParseAppliedDate(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if t, err := time.Parse(config.PortalDateLayout, v); err == nil {
		return t, nil
	}
	return domain.ParseDate(v)
}

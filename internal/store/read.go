package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"ccasscli/pkg/contracts/domain"
)

// DateSet is a set of ISO dates
type DateSet map[string]struct{}

// Has reports whether day is in the set
func (d DateSet) Has(day time.Time) bool {
	_, ok := d[domain.FormatDate(day)]
	return ok
}

// Sorted returns the dates in ascending order
func (d DateSet) Sorted() []string {
	out := make([]string, 0, len(d))
	for k := range d {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Exists reports whether any row was stored for the requested date and security
func (s *Store) Exists(ctx context.Context, dateRequested time.Time, stockCode int) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM shareholding WHERE date_requested = ? AND stock_code = ? LIMIT 1`,
		domain.FormatDate(dateRequested), stockCode,
	).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("exists: %w", err)
	}
	return true, nil
}

// CoveredDates returns every requested date already stored for stockCode
func (s *Store) CoveredDates(ctx context.Context, stockCode int) (DateSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT date_requested FROM shareholding WHERE stock_code = ?`,
		stockCode,
	)
	if err != nil {
		return nil, fmt.Errorf("covered dates: %w", err)
	}
	defer rows.Close()

	covered := make(DateSet)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("covered dates: scan: %w", err)
		}
		covered[d] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("covered dates: %w", err)
	}
	return covered, nil
}

// QueryRange returns the rows for stockCode whose requested date falls in
// [start, end], ordered by date_requested then date. participant_id breaks
// ties so repeated queries return identical sequences.
func (s *Store) QueryRange(ctx context.Context, start, end time.Time, stockCode int) ([]domain.ShareholdingObservation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date_requested, date, stock_code, stock_name, participant_id,
		       participant_name, shareholding, pct_total_issued
		FROM shareholding
		WHERE date_requested >= ? AND date_requested <= ? AND stock_code = ?
		ORDER BY date_requested ASC, date ASC, participant_id ASC
	`, domain.FormatDate(start), domain.FormatDate(end), stockCode)
	if err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}
	defer rows.Close()

	var out []domain.ShareholdingObservation
	for rows.Next() {
		var (
			o         domain.ShareholdingObservation
			stockName sql.NullString
			partID    sql.NullString
			partName  sql.NullString
		)
		if err := rows.Scan(
			&o.DateRequested,
			&o.Date,
			&o.StockCode,
			&stockName,
			&partID,
			&partName,
			&o.Shareholding,
			&o.PctTotalIssued,
		); err != nil {
			return nil, fmt.Errorf("query range: scan: %w", err)
		}
		o.StockName = stockName.String
		o.ParticipantID = partID.String
		o.ParticipantName = partName.String
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}
	return out, nil
}

// StockCodes returns every security with at least one stored row
func (s *Store) StockCodes(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT stock_code FROM shareholding ORDER BY stock_code`)
	if err != nil {
		return nil, fmt.Errorf("stock codes: %w", err)
	}
	defer rows.Close()

	var codes []int
	for rows.Next() {
		var c int
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("stock codes: scan: %w", err)
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

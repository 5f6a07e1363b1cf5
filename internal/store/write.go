package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ccasscli/pkg/contracts/domain"
)

// ErrInvalidBatch is returned when a batch is rejected before any write
var ErrInvalidBatch = errors.New("invalid shareholding batch")

// BatchError reports the first row of a batch that failed validation
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%v: row %d: %v", ErrInvalidBatch, e.Index, e.Err)
}

// Unwrap exposes both the sentinel and the validation cause
func (e *BatchError) Unwrap() []error {
	return []error{ErrInvalidBatch, e.Err}
}

const insertObservationSQL = `
	INSERT INTO shareholding
	(date_requested, date, stock_code, stock_name, participant_id, participant_name, shareholding, pct_total_issued)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

// Append writes rows in one transaction. Every row is validated first; a
// single invalid row rejects the whole batch and nothing is written.
// An empty batch is a no-op.
func (s *Store) Append(ctx context.Context, rows []domain.ShareholdingObservation) error {
	if len(rows) == 0 {
		return nil
	}

	for i := range rows {
		if err := s.validate.Struct(rows[i]); err != nil {
			return &BatchError{Index: i, Err: err}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append: begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertObservationSQL)
	if err != nil {
		return fmt.Errorf("append: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.DateRequested,
			row.Date,
			row.StockCode,
			nullableString(row.StockName),
			row.ParticipantID,
			row.ParticipantName,
			row.Shareholding,
			row.PctTotalIssued,
		); err != nil {
			return fmt.Errorf("append: insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append: commit: %w", err)
	}

	s.logger.DebugContext(ctx, "appended shareholding rows",
		slog.Int("rows", len(rows)),
		slog.Int("stock_code", rows[0].StockCode),
		slog.String("date_requested", rows[0].DateRequested))

	return nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

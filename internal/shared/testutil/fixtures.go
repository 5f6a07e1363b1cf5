package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ccasscli/internal/store"
	"ccasscli/pkg/contracts/domain"
)

// NewTestStore opens a store in a temporary directory
func NewTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ccass.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// Day parses an ISO date and fails the test on error
func Day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

// Observation builds a valid row for code and participant
func Observation(requested, date string, code int, participantID string, holding int64) domain.ShareholdingObservation {
	return domain.ShareholdingObservation{
		DateRequested:   requested,
		Date:            date,
		StockCode:       code,
		StockName:       "TEST STOCK",
		ParticipantID:   participantID,
		ParticipantName: "PARTICIPANT " + participantID,
		Shareholding:    holding,
		PctTotalIssued:  1,
	}
}

// ObservationKeys renders rows as "date_requested/participant_id" strings
func ObservationKeys(rows []domain.ShareholdingObservation) []string {
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.DateRequested + "/" + r.ParticipantID
	}
	return keys
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRange_Len(t *testing.T) {
	day := func(s string) time.Time {
		d, err := ParseDate(s)
		require.NoError(t, err)
		return d
	}

	tests := []struct {
		name  string
		start string
		end   string
		want  int
	}{
		{name: "single day", start: "2024-01-01", end: "2024-01-01", want: 1},
		{name: "leap february", start: "2024-02-01", end: "2024-02-29", want: 29},
		{name: "one year", start: "2023-01-01", end: "2023-12-31", want: 365},
		{name: "full calendar", start: "0001-01-01", end: "9999-12-31", want: 3652059},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng, err := NewDateRange(day(tt.start), day(tt.end))
			require.NoError(t, err)
			assert.Equal(t, tt.want, rng.Len())
		})
	}

	t.Run("matches Days for short ranges", func(t *testing.T) {
		rng, err := NewDateRange(day("2024-02-25"), day("2024-03-05"))
		require.NoError(t, err)
		assert.Len(t, rng.Days(), rng.Len())
	})

	t.Run("reversed range is empty", func(t *testing.T) {
		assert.Equal(t, 0, DateRange{Start: day("2024-01-02"), End: day("2024-01-01")}.Len())
	})
}

package operations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccasscli/pkg/contracts/domain"
)

func TestCodeRange(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []int
		wantErr  bool
	}{
		{name: "single", from: 5, to: 5, want: []int{5}},
		{name: "span", from: 1, to: 4, want: []int{1, 2, 3, 4}},
		{name: "reversed", from: 4, to: 1, wantErr: true},
		{name: "zero", from: 0, to: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CodeRange(tt.from, tt.to)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTrailingWindow(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

	w := TrailingWindow(now, 7)
	assert.Equal(t, "2024-03-03", domain.FormatDate(w.Start))
	assert.Equal(t, "2024-03-09", domain.FormatDate(w.End))
	assert.Equal(t, 7, w.Len())

	one := TrailingWindow(now, 0)
	assert.Equal(t, one.Start, one.End)
	assert.Equal(t, "2024-03-09", domain.FormatDate(one.End))
}

func TestResolveWindow(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		start, end string
		wantStart  string
		wantEnd    string
		wantErr    bool
	}{
		{name: "defaults", wantStart: "2024-03-04", wantEnd: "2024-03-09"},
		{name: "explicit", start: "2024-01-01", end: "2024-01-31", wantStart: "2024-01-01", wantEnd: "2024-01-31"},
		{name: "start only", start: "2024-03-01", wantStart: "2024-03-01", wantEnd: "2024-03-09"},
		{name: "bad date", start: "01/03/2024", wantErr: true},
		{name: "reversed", start: "2024-03-09", end: "2024-03-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ResolveWindow(now, tt.start, tt.end, 6)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, domain.FormatDate(w.Start))
			assert.Equal(t, tt.wantEnd, domain.FormatDate(w.End))
		})
	}
}

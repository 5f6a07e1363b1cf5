package operations

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ccasscli/internal/reconciler"
	"ccasscli/internal/shared/testutil"
	"ccasscli/internal/store"
)

// MockPuller is a mock implementation of Puller
type MockPuller struct {
	mock.Mock
}

func (m *MockPuller) PullWithReport(ctx context.Context, start, end time.Time, code int) (*reconciler.Report, error) {
	args := m.Called(ctx, start, end, code)
	if fn, ok := args.Get(0).(func() (*reconciler.Report, error)); ok {
		return fn()
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciler.Report), args.Error(1)
}

type pullerFunc func(ctx context.Context, start, end time.Time, code int) (*reconciler.Report, error)

func (f pullerFunc) PullWithReport(ctx context.Context, start, end time.Time, code int) (*reconciler.Report, error) {
	return f(ctx, start, end, code)
}

func configurePortal(t *testing.T, p *testutil.FakePortal) {
	p.SetUnavailable(3, testutil.Day(t, "2024-01-04"))
	p.SetTransient(testutil.Day(t, "2024-01-02"), 4, nil)
}

func TestRunner_ConcurrentMatchesSequential(t *testing.T) {
	codes := []int{1, 2, 3, 4, 5}
	start, end := testutil.Day(t, "2024-01-01"), testutil.Day(t, "2024-01-07")

	run := func(workers int) (*store.Store, *testutil.FakePortal, *Summary) {
		st := testutil.NewTestStore(t)
		portal := testutil.NewFakePortal()
		configurePortal(t, portal)
		rec := reconciler.New(st, portal, reconciler.NewUnavailableSet())
		summary := NewRunner(workers, rec, nil).Run(context.Background(), codes, start, end)
		return st, portal, summary
	}

	seqStore, seqPortal, seqSummary := run(1)
	parStore, parPortal, parSummary := run(2)

	assert.Equal(t, 1, seqPortal.MaxConcurrentSessions())
	assert.LessOrEqual(t, parPortal.MaxConcurrentSessions(), 2)

	for _, code := range codes {
		seqRows, err := seqStore.QueryRange(context.Background(), start, end, code)
		require.NoError(t, err)
		parRows, err := parStore.QueryRange(context.Background(), start, end, code)
		require.NoError(t, err)
		assert.Equal(t, seqRows, parRows, "code %d", code)
		assert.Equal(t, seqPortal.QueriesFor(code), parPortal.QueriesFor(code), "code %d", code)
	}

	for _, s := range []*Summary{seqSummary, parSummary} {
		assert.Equal(t, 5, s.Codes)
		assert.Equal(t, 4, s.Succeeded)
		assert.Equal(t, 1, s.Unavailable)
		assert.Equal(t, 0, s.Failed)
		assert.Equal(t, 0, s.NotStarted)
		assert.False(t, s.Cancelled)
		assert.NotEmpty(t, s.RunID)
		// 7 days for 1, 2, 5; 6 for code 4; 3 for code 3
		assert.Equal(t, 7*3+6+3, s.DatesScraped)
		assert.Equal(t, 1, s.DatesSkipped)
		assert.Equal(t, 2*s.DatesScraped, s.RowsAppended)
		require.Len(t, s.Results, 5)
		for i, res := range s.Results {
			assert.Equal(t, codes[i], res.StockCode, "results are ordered by code")
		}
		assert.Equal(t, CodeStatusUnavailable, s.Results[2].Status)
	}

	opened, closed := parPortal.Sessions()
	assert.Equal(t, opened, closed, "every session is released")
}

func TestRunner_FailuresDoNotAbortBatch(t *testing.T) {
	puller := new(MockPuller)
	puller.On("PullWithReport", mock.Anything, mock.Anything, mock.Anything, 1).
		Return(&reconciler.Report{StockCode: 1, Scraped: 2, RowsAppended: 4}, nil)
	puller.On("PullWithReport", mock.Anything, mock.Anything, mock.Anything, 2).
		Return(nil, errors.New("storage: disk full"))
	puller.On("PullWithReport", mock.Anything, mock.Anything, mock.Anything, 3).
		Return(func() (*reconciler.Report, error) { panic("boom") })
	puller.On("PullWithReport", mock.Anything, mock.Anything, mock.Anything, 4).
		Return(&reconciler.Report{StockCode: 4, Scraped: 1, RowsAppended: 2}, nil)

	logger, logs := testutil.NewTestLogger(t)
	summary := NewRunner(2, puller, logger).Run(context.Background(), []int{1, 2, 3, 4},
		testutil.Day(t, "2024-01-01"), testutil.Day(t, "2024-01-02"))

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 3, summary.DatesScraped)
	assert.Equal(t, 6, summary.RowsAppended)
	require.Len(t, summary.Results, 4)
	assert.Equal(t, CodeStatusFailed, summary.Results[1].Status)
	assert.Contains(t, summary.Results[1].Error, "disk full")
	assert.Equal(t, CodeStatusFailed, summary.Results[2].Status)
	assert.Equal(t, "panic: boom", summary.Results[2].Error)

	testutil.AssertLogContains(t, logs, slog.LevelError, "security processing panicked")
	puller.AssertExpectations(t)
}

func TestRunner_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	puller := pullerFunc(func(ctx context.Context, _, _ time.Time, code int) (*reconciler.Report, error) {
		calls.Add(1)
		return nil, ctx.Err()
	})

	codes, err := CodeRange(1, 50)
	require.NoError(t, err)
	summary := NewRunner(2, puller, nil).Run(ctx, codes, testutil.Day(t, "2024-01-01"), testutil.Day(t, "2024-01-02"))

	assert.True(t, summary.Cancelled)
	assert.Less(t, int(calls.Load()), 50, "dispatch stops on cancellation")
	assert.Equal(t, 50, summary.NotStarted+len(summary.Results))
	assert.Equal(t, 0, summary.Succeeded)
	for _, res := range summary.Results {
		assert.Equal(t, CodeStatusCancelled, res.Status)
	}
}

func TestRunner_BoundedWorkers(t *testing.T) {
	var inFlight, peak atomic.Int32
	puller := pullerFunc(func(ctx context.Context, _, _ time.Time, code int) (*reconciler.Report, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return &reconciler.Report{StockCode: code}, nil
	})

	codes, err := CodeRange(1, 12)
	require.NoError(t, err)
	r := NewRunner(3, puller, nil)
	summary := r.Run(context.Background(), codes, testutil.Day(t, "2024-01-01"), testutil.Day(t, "2024-01-01"))

	assert.Equal(t, 12, summary.Succeeded)
	assert.LessOrEqual(t, int(peak.Load()), 3)
	assert.Empty(t, r.Active())
	assert.Equal(t, 3, r.Workers())
}

func TestNewRunner_MinimumOneWorker(t *testing.T) {
	assert.Equal(t, 1, NewRunner(0, nil, nil).Workers())
}

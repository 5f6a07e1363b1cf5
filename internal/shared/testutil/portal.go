package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"ccasscli/internal/config"
	"ccasscli/internal/dataprocessing"
	"ccasscli/internal/scraper"
	"ccasscli/pkg/contracts/domain"
)

// PortalHeader is the heading row the depository portal renders
var PortalHeader = []string{
	dataprocessing.HeaderParticipantID,
	dataprocessing.HeaderParticipantName,
	dataprocessing.HeaderAddress,
	dataprocessing.HeaderShareholding,
	dataprocessing.HeaderPctTotalIssued,
}

// FakePortal is an in-memory scraper.SessionFactory. By default every query
// succeeds with Participants rows; weekend dates are served as the previous
// Friday. Use the setters to inject failures.
type FakePortal struct {
	// Participants is the number of rows returned per query
	Participants int

	mu          sync.Mutex
	unavailable map[int]time.Time
	transient   map[string]error
	invalid     map[string]bool
	openErr     error
	queries     []string
	opened      int
	closed      int
	live        int
	maxLive     int
	onQuery     func(day time.Time, code int)
}

// NewFakePortal creates a portal returning two participants per query
func NewFakePortal() *FakePortal {
	return &FakePortal{
		Participants: 2,
		unavailable:  make(map[int]time.Time),
		transient:    make(map[string]error),
		invalid:      make(map[string]bool),
	}
}

func queryKey(day time.Time, code int) string {
	return fmt.Sprintf("%d/%s", code, domain.FormatDate(day))
}

// SetUnavailable makes code raise the unavailable alert for every date on
// or after from. A zero from applies to all dates.
func (p *FakePortal) SetUnavailable(code int, from time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unavailable[code] = from
}

// SetTransient makes one query fail with err, or a timeout when err is nil
func (p *FakePortal) SetTransient(day time.Time, code int, err error) {
	if err == nil {
		err = context.DeadlineExceeded
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transient[queryKey(day, code)] = err
}

// ClearTransient removes every injected transient failure
func (p *FakePortal) ClearTransient() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transient = make(map[string]error)
}

// SetInvalid makes one query return a table with a non-numeric percentage
func (p *FakePortal) SetInvalid(day time.Time, code int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalid[queryKey(day, code)] = true
}

// SetOpenError makes Open fail
func (p *FakePortal) SetOpenError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.openErr = err
}

// OnQuery registers a hook run at the start of every query
func (p *FakePortal) OnQuery(fn func(day time.Time, code int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onQuery = fn
}

// Queries returns "code/date" for every query issued, in order
func (p *FakePortal) Queries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.queries...)
}

// QueriesFor returns the dates queried for code, sorted
func (p *FakePortal) QueriesFor(code int) []string {
	prefix := strconv.Itoa(code) + "/"
	var out []string
	for _, q := range p.Queries() {
		if len(q) > len(prefix) && q[:len(prefix)] == prefix {
			out = append(out, q[len(prefix):])
		}
	}
	sort.Strings(out)
	return out
}

// Sessions returns how many sessions were opened and closed
func (p *FakePortal) Sessions() (opened, closed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opened, p.closed
}

// MaxConcurrentSessions returns the peak number of open sessions
func (p *FakePortal) MaxConcurrentSessions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxLive
}

// Open implements scraper.SessionFactory
func (p *FakePortal) Open(ctx context.Context) (scraper.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openErr != nil {
		return nil, p.openErr
	}
	p.opened++
	p.live++
	if p.live > p.maxLive {
		p.maxLive = p.live
	}
	return &fakeSession{portal: p}, nil
}

type fakeSession struct {
	portal *FakePortal
	once   sync.Once
}

func (s *fakeSession) Close() error {
	s.once.Do(func() {
		s.portal.mu.Lock()
		s.portal.closed++
		s.portal.live--
		s.portal.mu.Unlock()
	})
	return nil
}

func (s *fakeSession) Query(ctx context.Context, day time.Time, code int) (*scraper.RawResult, error) {
	p := s.portal

	p.mu.Lock()
	hook := p.onQuery
	p.mu.Unlock()
	if hook != nil {
		hook(day, code)
	}

	if err := ctx.Err(); err != nil {
		return nil, &scraper.TransientError{Date: day, StockCode: code, Err: err}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := queryKey(day, code)
	p.queries = append(p.queries, key)

	if from, ok := p.unavailable[code]; ok && !day.Before(from) {
		return nil, scraper.ClassifyAlert("The stock code entered does not exist OR not available for enquiry.")
	}
	if err, ok := p.transient[key]; ok {
		return nil, &scraper.TransientError{Date: day, StockCode: code, Err: err}
	}

	applied := BusinessDay(day)
	tbl := &dataprocessing.Table{Header: PortalHeader}
	for i := 0; i < p.Participants; i++ {
		pct := fmt.Sprintf("%.2f%%", float64(i+1))
		if p.invalid[key] {
			pct = "N/A"
		}
		tbl.Rows = append(tbl.Rows, []string{
			fmt.Sprintf("C%05d", i+1),
			fmt.Sprintf("PARTICIPANT %d", i+1),
			"HONG KONG",
			strconv.FormatInt(Holding(code, applied, i), 10),
			pct,
		})
	}

	return &scraper.RawResult{
		Table:       tbl,
		AppliedDate: applied.Format(config.PortalDateLayout),
		StockName:   fmt.Sprintf("STOCK %d", code),
	}, nil
}

// BusinessDay moves Saturday and Sunday back to Friday
func BusinessDay(day time.Time) time.Time {
	switch day.Weekday() {
	case time.Saturday:
		return day.AddDate(0, 0, -1)
	case time.Sunday:
		return day.AddDate(0, 0, -2)
	}
	return day
}

// Holding is the deterministic share count the fake portal reports
func Holding(code int, day time.Time, participant int) int64 {
	return int64(code*1_000_000 + day.YearDay()*100 + participant)
}

// ErrPortalDown is a convenience error for session open failures
var ErrPortalDown = errors.New("portal unreachable")

package reconciler

import (
	"sort"
	"sync"
)

// UnavailableSet holds the stock codes the portal refused during this run.
// It is shared by reference between workers and is safe for concurrent use.
type UnavailableSet struct {
	mu    sync.RWMutex
	codes map[int]struct{}
}

// NewUnavailableSet returns an empty set
func NewUnavailableSet() *UnavailableSet {
	return &UnavailableSet{codes: make(map[int]struct{})}
}

// Add records code and reports whether it was newly added
func (u *UnavailableSet) Add(code int) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.codes[code]; ok {
		return false
	}
	u.codes[code] = struct{}{}
	return true
}

// Contains reports whether code was refused this run
func (u *UnavailableSet) Contains(code int) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.codes[code]
	return ok
}

// Codes returns the refused codes in ascending order
func (u *UnavailableSet) Codes() []int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]int, 0, len(u.codes))
	for c := range u.codes {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// Len returns the number of refused codes
func (u *UnavailableSet) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.codes)
}

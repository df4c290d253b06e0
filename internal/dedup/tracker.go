// Package dedup tracks which addresses were already handed to the scheduler
// during one traversal pass.
package dedup

import "sync"

// Set selects one of the tracker's membership sets.
type Set int

const (
	// Scheduled holds addresses already scheduled for a contract or wallet job.
	Scheduled Set = iota
	// Transactions holds addresses whose transaction history was already requested.
	Transactions
)

// String returns the set name used in logs and metrics.
func (s Set) String() string {
	switch s {
	case Scheduled:
		return "scheduled"
	case Transactions:
		return "transactions"
	default:
		return "unknown"
	}
}

// Tracker holds two independent address sets scoped to one traversal pass.
// Both sets grow until ResetAll. Safe for concurrent use.
type Tracker struct {
	mu           sync.Mutex
	scheduled    map[string]struct{}
	transactions map[string]struct{}
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		scheduled:    make(map[string]struct{}),
		transactions: make(map[string]struct{}),
	}
}

// MarkIfNew inserts address into set and reports whether it was absent.
// Check and insert happen under one lock, so exactly one concurrent caller
// observes true for the same address.
func (t *Tracker) MarkIfNew(set Set, address string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := t.set(set)
	if _, exists := m[address]; exists {
		return false
	}
	m[address] = struct{}{}
	return true
}

// Contains reports whether address is in set.
func (t *Tracker) Contains(set Set, address string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, exists := t.set(set)[address]
	return exists
}

// Len returns the number of addresses in set.
func (t *Tracker) Len(set Set) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.set(set))
}

// ResetAll clears both sets, starting a new traversal pass.
func (t *Tracker) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.scheduled = make(map[string]struct{})
	t.transactions = make(map[string]struct{})
}

func (t *Tracker) set(s Set) map[string]struct{} {
	if s == Transactions {
		return t.transactions
	}
	return t.scheduled
}

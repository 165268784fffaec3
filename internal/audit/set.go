package audit

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Set is the scan-run-wide record of canonical IDs already dispatched.
// It is caller-owned: created at scan-run start, discarded (or Reset) when
// a new run begins, and injected into whatever consults it. A Bloom
// filter answers the common "never seen" case without touching the exact
// map; the exact map settles false positives and makes CheckAndMark
// linearizable.
type Set struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
	exact  map[string]struct{}
	fpRate float64
}

// NewSet creates an audited set sized for the estimated number of audit
// targets in one scan run.
func NewSet(estimatedItems int) *Set {
	if estimatedItems < 1000 {
		estimatedItems = 1000
	}

	fpRate := 0.001

	return &Set{
		filter: bloom.NewWithEstimates(uint(estimatedItems), fpRate),
		exact:  make(map[string]struct{}),
		fpRate: fpRate,
	}
}

// CheckAndMark atomically records the ID if absent. It returns true for
// exactly one caller per ID, no matter how many race on it; every other
// caller gets false with no side effects.
func (s *Set) CheckAndMark(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filter.TestString(id) {
		if _, exists := s.exact[id]; exists {
			return false
		}
	}

	s.filter.AddString(id)
	s.exact[id] = struct{}{}
	return true
}

// Seen checks whether an ID has been marked, without marking it.
func (s *Set) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.filter.TestString(id) {
		return false
	}
	_, exists := s.exact[id]
	return exists
}

// Count returns the number of IDs marked so far.
func (s *Set) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.exact)
}

// IDs returns every marked ID.
func (s *Set) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.exact))
	for id := range s.exact {
		ids = append(ids, id)
	}
	return ids
}

// Reset clears the set for a new scan run.
func (s *Set) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filter.ClearAll()
	s.exact = make(map[string]struct{})
}

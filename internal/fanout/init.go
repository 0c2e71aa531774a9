package fanout

import (
	"sort"
	"sync"
)

// InitState tracks which (destination, keyword) pairs have completed their
// first backfill pass. A pair only ever moves from uninitialized to
// initialized; removing a destination or keyword just orphans its entries.
type InitState struct {
	mu    sync.RWMutex
	pairs map[string]struct{}
}

// NewInitState creates an empty initialization state.
func NewInitState() *InitState {
	return &InitState{pairs: make(map[string]struct{})}
}

// PairKey builds the composite key for a destination/keyword pair.
func PairKey(destinationID, keyword string) string {
	return destinationID + ":" + keyword
}

// IsInitialized reports whether the pair has completed its backfill pass.
func (s *InitState) IsInitialized(destinationID, keyword string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.pairs[PairKey(destinationID, keyword)]
	return ok
}

// MarkInitialized records that the pair completed a full processing pass.
func (s *InitState) MarkInitialized(destinationID, keyword string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pairs[PairKey(destinationID, keyword)] = struct{}{}
}

// Export returns the sorted composite keys for persistence.
func (s *InitState) Export() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.pairs))
	for key := range s.pairs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Load replaces the state with the given composite keys.
func (s *InitState) Load(keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pairs = make(map[string]struct{}, len(keys))
	for _, key := range keys {
		s.pairs[key] = struct{}{}
	}
}

package items

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// Store holds the universe of known ids and the ordered selected sequence.
type Store struct {
	mu sync.RWMutex

	universe    []int64
	universeSet mapset.Set[int64]

	selected    []int64
	selectedSet mapset.Set[int64]
}

// Stats summarizes store cardinalities.
type Stats struct {
	Universe  int `json:"universe"`
	Selected  int `json:"selected"`
	Available int `json:"available"`
}

// New builds a store whose universe is 1..initialSize and whose selection is
// empty.
func New(initialSize int) *Store {
	if initialSize < 0 {
		initialSize = 0
	}
	universe := make([]int64, initialSize)
	universeSet := mapset.NewThreadUnsafeSetWithSize[int64](initialSize)
	for i := range initialSize {
		id := int64(i + 1)
		universe[i] = id
		universeSet.Add(id)
	}
	return &Store{
		universe:    universe,
		universeSet: universeSet,
		selectedSet: mapset.NewThreadUnsafeSet[int64](),
	}
}

// Stats returns the current universe, selected, and available counts.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsLocked()
}

func (s *Store) statsLocked() Stats {
	return Stats{
		Universe:  len(s.universe),
		Selected:  len(s.selected),
		Available: len(s.universe) - len(s.selected),
	}
}

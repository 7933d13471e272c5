package chunker

import "sync"

// Stats summarizes a Store.
type Stats struct {
	// Chunks is the number of chunks added.
	Chunks int
	// Unique is the number of distinct chunks kept.
	Unique int
	// DuplicateBytes is the total size of chunks that were already present.
	DuplicateBytes int64
}

// Store deduplicates chunks by hash. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	index  map[Hash]int
	unique []Chunk
	stats  Stats
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{index: make(map[Hash]int)}
}

// Add records c and returns its position in the unique list. dup reports
// whether an identical chunk was already stored, in which case c itself is
// not kept.
func (s *Store) Add(c Chunk) (idx int, dup bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Chunks++
	if i, ok := s.index[c.Hash]; ok {
		s.stats.DuplicateBytes += int64(len(c.Data))
		return i, true
	}

	idx = len(s.unique)
	s.index[c.Hash] = idx
	s.unique = append(s.unique, c)
	s.stats.Unique++

	return idx, false
}

// Unique returns the distinct chunks in first-seen order.
func (s *Store) Unique() []Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Chunk, len(s.unique))
	copy(out, s.unique)

	return out
}

// Stats returns the current counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stats
}

// Package dedup tracks post identifiers that were already published by a
// previous run or accepted earlier in the current one.
package dedup

// Set is an exact-match identifier set.
type Set struct {
	seen map[string]struct{}
}

// NewSet creates a set pre-populated with the given identifiers.
func NewSet(ids ...string) *Set {
	s := &Set{seen: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.seen[id] = struct{}{}
	}

	return s
}

// Add marks an identifier as seen.
func (s *Set) Add(id string) {
	s.seen[id] = struct{}{}
}

// Has reports whether the identifier was seen before.
func (s *Set) Has(id string) bool {
	_, ok := s.seen[id]
	return ok
}

// Len returns the number of tracked identifiers.
func (s *Set) Len() int {
	return len(s.seen)
}

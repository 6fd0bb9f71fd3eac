package xsync

import (
	"iter"
	"sync"
)

// Set is a strongly-typed wrapper over sync.Map, used as a set.
type Set[K comparable] struct {
	impl sync.Map
}

// Load forwards to [sync.Map.Load].
func (s *Set[K]) Load(k K) bool {
	_, ok := s.impl.Load(k)
	return ok
}

// Store forwards to [sync.Map.Store].
func (s *Set[K]) Store(k K) {
	s.impl.Store(k, nil)
}

// Delete forwards to [sync.Map.Delete].
func (s *Set[K]) Delete(k K) {
	s.impl.Delete(k)
}

// Clear empties the set, used when did_save clears dirty_blocks (spec
// §4.5 step 5).
func (s *Set[K]) Clear() {
	s.impl.Range(func(key, _ any) bool {
		s.impl.Delete(key)
		return true
	})
}

// Len counts the elements currently in the set.
func (s *Set[K]) Len() int {
	n := 0
	s.impl.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// All returns an iterator over the values in this set, using [sync.Map.Range].
func (s *Set[K]) All() iter.Seq[K] {
	return func(yield func(K) bool) {
		s.impl.Range(func(key, _ any) bool {
			return yield(key.(K)) //nolint:errcheck
		})
	}
}

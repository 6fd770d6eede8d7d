package persistent

import (
	"iter"

	"github.com/benbjohnson/immutable"
)

// Map is an immutable key/value mapping with structural sharing.
//
// The zero value is the empty map. A Delete that removes the last entry
// collapses back to the canonical empty representation, so an emptied map
// and a freshly built one behave identically.
//
// Keys must be hashable by the backing store's default hasher (all integer
// kinds and strings cover every use in this module).
type Map[K comparable, V any] struct {
	m *immutable.Map[K, V]
}

// NewMap returns the empty map.
func NewMap[K comparable, V any]() Map[K, V] {
	return Map[K, V]{}
}

// MapFrom builds a map from the entries of a Go map.
func MapFrom[K comparable, V any](entries map[K]V) Map[K, V] {
	if len(entries) == 0 {
		return Map[K, V]{}
	}
	m := immutable.NewMap[K, V](nil)
	for k, v := range entries {
		m = m.Set(k, v)
	}
	return Map[K, V]{m: m}
}

// Len returns the number of entries.
func (m Map[K, V]) Len() int {
	if m.m == nil {
		return 0
	}
	return m.m.Len()
}

// IsEmpty reports whether the map holds no entries.
func (m Map[K, V]) IsEmpty() bool {
	return m.Len() == 0
}

// Get returns the value stored under key, or the zero value and false when
// the key is absent.
func (m Map[K, V]) Get(key K) (V, bool) {
	if m.m == nil {
		var zero V
		return zero, false
	}
	return m.m.Get(key)
}

// Contains reports whether key is present.
func (m Map[K, V]) Contains(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Set returns a new map with key bound to value, overwriting any existing
// binding. The receiver is unchanged.
func (m Map[K, V]) Set(key K, value V) Map[K, V] {
	if m.m == nil {
		return Map[K, V]{m: immutable.NewMap[K, V](nil).Set(key, value)}
	}
	return Map[K, V]{m: m.m.Set(key, value)}
}

// Delete returns a new map without key. Deleting an absent key returns an
// equivalent map; deleting the last entry returns the canonical empty map.
func (m Map[K, V]) Delete(key K) Map[K, V] {
	if m.m == nil {
		return Map[K, V]{}
	}
	next := m.m.Delete(key)
	if next.Len() == 0 {
		return Map[K, V]{}
	}
	return Map[K, V]{m: next}
}

// AsGoMap materializes the entries into a new Go map. This copies every
// entry and can be expensive for large maps.
func (m Map[K, V]) AsGoMap() map[K]V {
	out := make(map[K]V, m.Len())
	for k, v := range m.All() {
		out[k] = v
	}
	return out
}

// All iterates the entries. Iteration order is unspecified.
func (m Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if m.m == nil {
			return
		}
		itr := m.m.Iterator()
		for !itr.Done() {
			k, v, _ := itr.Next()
			if !yield(k, v) {
				return
			}
		}
	}
}

// Keys iterates the keys. Iteration order is unspecified.
func (m Map[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range m.All() {
			if !yield(k) {
				return
			}
		}
	}
}

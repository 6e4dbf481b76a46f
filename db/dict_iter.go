package db

import "iter"

// Iterator walks a HashTable bucket by bucket. It must not be used after the
// table is modified: Insert and Remove may move entries between or within
// chains, so a live Iterator can skip or repeat entries.
type Iterator[K comparable, V any] struct {
	buckets [][]entry[K, V]
	b       int // current bucket
	pos     int // next position within the current bucket
	cur     *entry[K, V]
}

// Iter returns an Iterator positioned before the first entry.
func (h *HashTable[K, V]) Iter() *Iterator[K, V] {
	return &Iterator[K, V]{buckets: h.buckets}
}

// Next advances to the next entry and reports whether there is one. It must
// be called before the first Key or Value.
func (it *Iterator[K, V]) Next() bool {
	for it.b < len(it.buckets) {
		chain := it.buckets[it.b]
		if it.pos < len(chain) {
			it.cur = &chain[it.pos]
			it.pos++
			return true
		}
		it.b++
		it.pos = 0
	}
	it.cur = nil
	return false
}

// Key returns the key of the current entry.
func (it *Iterator[K, V]) Key() K {
	if it.cur == nil {
		var zero K
		return zero
	}
	return it.cur.key
}

// Value returns the value of the current entry.
func (it *Iterator[K, V]) Value() V {
	if it.cur == nil {
		var zero V
		return zero
	}
	return it.cur.value
}

// All yields every key/value pair. Order is unspecified.
func (h *HashTable[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		it := h.Iter()
		for it.Next() {
			if !yield(it.Key(), it.Value()) {
				return
			}
		}
	}
}

// Keys yields every key.
func (h *HashTable[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		it := h.Iter()
		for it.Next() {
			if !yield(it.Key()) {
				return
			}
		}
	}
}

// Values yields every value.
func (h *HashTable[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		it := h.Iter()
		for it.Next() {
			if !yield(it.Value()) {
				return
			}
		}
	}
}

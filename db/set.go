package db

import "iter"

type sentinel struct{}

// Set is a collection of distinct elements backed by a HashTable.
type Set[T comparable] struct {
	data HashTable[T, sentinel]
}

// NewSet creates a new Set
func NewSet[T comparable]() *Set[T] {
	return &Set[T]{}
}

// Add inserts a key into the set and reports whether it was not already present
func (s *Set[T]) Add(key T) bool {
	_, existed := s.data.Insert(key, sentinel{})
	return !existed
}

// Contains checks if a key is in the set
func (s *Set[T]) Contains(key T) bool {
	return s.data.ContainsKey(key)
}

// Remove deletes a key from the set and reports whether it was present
func (s *Set[T]) Remove(key T) bool {
	_, ok := s.data.Remove(key)
	return ok
}

// Len returns the number of elements.
func (s *Set[T]) Len() int {
	return s.data.Len()
}

// All yields every element in unspecified order.
func (s *Set[T]) All() iter.Seq[T] {
	return s.data.Keys()
}

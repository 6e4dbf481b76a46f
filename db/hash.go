package db

import (
	"hash/fnv"
	"hash/maphash"
)

// Hasher turns a key into a 64-bit digest. Equal keys must produce equal
// digests for as long as a table uses the Hasher.
type Hasher[K any] func(key K) uint64

// ComparableHasher returns a maphash based Hasher with a fresh random seed.
// Digests differ between Hashers, so one Hasher must serve a table for its
// whole lifetime.
func ComparableHasher[K comparable]() Hasher[K] {
	seed := maphash.MakeSeed()
	return func(key K) uint64 {
		return maphash.Comparable(seed, key)
	}
}

// StringHasher returns an FNV-1a Hasher. Its digests are stable across
// processes, which makes bucket layouts reproducible.
func StringHasher() Hasher[string] {
	return func(key string) uint64 {
		h := fnv.New64a()
		h.Write([]byte(key))
		return h.Sum64()
	}
}

package db

import (
	"math/rand"

	"github.com/fzft/go-chained-map/log"
	"go.uber.org/zap"
)

const (
	// initialBuckets is the bucket count established by the first insert.
	initialBuckets = 1
)

type entry[K comparable, V any] struct {
	key   K
	value V
}

// ResizeEvent describes a completed bucket array growth.
type ResizeEvent struct {
	From    int // bucket count before the resize
	To      int // bucket count after the resize
	Entries int // entries rehashed
}

// HashTable is an associative container using separate chaining.
//
// The zero value is an empty table ready to use. A HashTable is not safe for
// concurrent use; callers sharing one between goroutines must serialize access.
type HashTable[K comparable, V any] struct {
	buckets  [][]entry[K, V]
	count    int
	hash     Hasher[K]
	logger   *zap.Logger
	onResize func(ResizeEvent)
}

// NewHashTable returns an empty table hashing keys with a seeded maphash.
// No buckets are allocated until the first Insert.
func NewHashTable[K comparable, V any]() *HashTable[K, V] {
	return &HashTable[K, V]{}
}

// NewHashTableFunc returns an empty table hashing keys with hash.
// A nil hash selects ComparableHasher.
func NewHashTableFunc[K comparable, V any](hash Hasher[K]) *HashTable[K, V] {
	return &HashTable[K, V]{hash: hash}
}

// SetLogger sets the logger resize events are reported to.
func (h *HashTable[K, V]) SetLogger(logger *zap.Logger) {
	h.logger = logger
}

// OnResize registers fn to be called after every resize.
func (h *HashTable[K, V]) OnResize(fn func(ResizeEvent)) {
	h.onResize = fn
}

// bucket returns the chain index for key. The table must have buckets.
func (h *HashTable[K, V]) bucket(key K) int {
	return int(h.hash(key) % uint64(len(h.buckets)))
}

// Insert stores value under key. If key was already present its value is
// replaced and the previous value is returned with true.
//
// Growth is checked before placement, so an update may also trigger a resize.
func (h *HashTable[K, V]) Insert(key K, value V) (V, bool) {
	if len(h.buckets) == 0 || h.count > 3*len(h.buckets)/4 {
		h.resize()
	}

	b := h.bucket(key)
	chain := h.buckets[b]
	if i := lookup(key, chain); i >= 0 {
		prev := chain[i].value
		chain[i].value = value
		return prev, true
	}

	h.count++
	h.buckets[b] = append(chain, entry[K, V]{key: key, value: value})
	var zero V
	return zero, false
}

// Get returns the value stored under key.
func (h *HashTable[K, V]) Get(key K) (V, bool) {
	var zero V
	if len(h.buckets) == 0 {
		return zero, false
	}

	chain := h.buckets[h.bucket(key)]
	if i := lookup(key, chain); i >= 0 {
		return chain[i].value, true
	}
	return zero, false
}

// Remove deletes key and returns its value. Chain order is not preserved:
// the last entry of the chain takes the removed entry's slot.
func (h *HashTable[K, V]) Remove(key K) (V, bool) {
	var zero V
	if len(h.buckets) == 0 {
		return zero, false
	}

	b := h.bucket(key)
	chain := h.buckets[b]
	i := lookup(key, chain)
	if i < 0 {
		return zero, false
	}

	removed := chain[i].value
	last := len(chain) - 1
	chain[i] = chain[last]
	chain[last] = entry[K, V]{}
	h.buckets[b] = chain[:last]
	h.count--
	return removed, true
}

// ContainsKey reports whether key is present.
func (h *HashTable[K, V]) ContainsKey(key K) bool {
	_, ok := h.Get(key)
	return ok
}

// Len returns the number of entries in the table
func (h *HashTable[K, V]) Len() int {
	return h.count
}

// IsEmpty returns true if the table holds no entries
func (h *HashTable[K, V]) IsEmpty() bool {
	return h.count == 0
}

// Buckets returns the current bucket count.
func (h *HashTable[K, V]) Buckets() int {
	return len(h.buckets)
}

// LoadFactor returns entries per bucket, or 0 before the first insert.
func (h *HashTable[K, V]) LoadFactor() float64 {
	if len(h.buckets) == 0 {
		return 0
	}
	return float64(h.count) / float64(len(h.buckets))
}

// resize doubles the bucket array (or allocates the first bucket) and
// rehashes every entry into it.
func (h *HashTable[K, V]) resize() {
	from := len(h.buckets)
	to := initialBuckets
	if from > 0 {
		to = 2 * from
	}
	if h.hash == nil {
		h.hash = ComparableHasher[K]()
	}

	buckets := make([][]entry[K, V], to)
	for i, chain := range h.buckets {
		for _, e := range chain {
			b := h.hash(e.key) % uint64(to)
			buckets[b] = append(buckets[b], e)
		}
		h.buckets[i] = nil
	}
	h.buckets = buckets

	h.log().Debug("hash table resized",
		zap.Int("from", from),
		zap.Int("to", to),
		zap.Int("entries", h.count),
	)
	if h.onResize != nil {
		h.onResize(ResizeEvent{From: from, To: to, Entries: h.count})
	}
}

func (h *HashTable[K, V]) log() *zap.Logger {
	if h.logger != nil {
		return h.logger
	}
	return log.Logger
}

// SampleKeys returns up to count keys picked from randomly chosen buckets.
// If the table has fewer than count keys, it returns all of them.
// A nil rnd uses the math/rand global source.
func (h *HashTable[K, V]) SampleKeys(count int, rnd *rand.Rand) []K {
	if h.IsEmpty() || count <= 0 {
		return nil
	}

	if count >= h.Len() {
		keys := make([]K, 0, h.Len())
		for k := range h.Keys() {
			keys = append(keys, k)
		}
		return keys
	}

	intn := rand.Intn
	if rnd != nil {
		intn = rnd.Intn
	}

	keys := make([]K, 0, count)
	seen := make([]bool, len(h.buckets))
	for visited := 0; len(keys) < count && visited < len(h.buckets); {
		b := intn(len(h.buckets))
		if seen[b] {
			continue
		}
		seen[b] = true
		visited++
		for _, e := range h.buckets[b] {
			if len(keys) == count {
				break
			}
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Stats summarizes the bucket layout of a table.
type Stats struct {
	Buckets      int
	Entries      int
	EmptyBuckets int
	LongestChain int
	LoadFactor   float64
}

// Stats walks every bucket and reports chain occupancy.
func (h *HashTable[K, V]) Stats() Stats {
	s := Stats{
		Buckets:    len(h.buckets),
		Entries:    h.count,
		LoadFactor: h.LoadFactor(),
	}
	for _, chain := range h.buckets {
		if len(chain) == 0 {
			s.EmptyBuckets++
		}
		if len(chain) > s.LongestChain {
			s.LongestChain = len(chain)
		}
	}
	return s
}

func lookup[K comparable, V any](key K, chain []entry[K, V]) int {
	for i := range chain {
		if chain[i].key == key {
			return i
		}
	}
	return -1
}

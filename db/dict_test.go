package db

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHashTableInsertAndGet(t *testing.T) {
	ht := NewHashTable[string, int]()
	ht.Insert("one", 1)
	ht.Insert("two", 2)

	value, exists := ht.Get("one")
	assert.True(t, exists, "Key 'one' should exist")
	assert.Equal(t, 1, value, "Value for key 'one' should be 1")

	value, exists = ht.Get("two")
	assert.True(t, exists, "Key 'two' should exist")
	assert.Equal(t, 2, value, "Value for key 'two' should be 2")

	_, exists = ht.Get("three")
	assert.False(t, exists, "Key 'three' should not exist")
}

func TestHashTableUpdate(t *testing.T) {
	ht := NewHashTable[string, int]()

	prev, replaced := ht.Insert("foo", 1)
	assert.False(t, replaced)
	assert.Zero(t, prev)

	prev, replaced = ht.Insert("foo", 2)
	assert.True(t, replaced)
	assert.Equal(t, 1, prev)

	assert.Equal(t, 1, ht.Len())
	value, ok := ht.Get("foo")
	require.True(t, ok)
	assert.Equal(t, 2, value)
}

func TestHashTableRemove(t *testing.T) {
	ht := NewHashTable[string, int]()
	ht.Insert("one", 1)
	ht.Insert("two", 2)

	value, ok := ht.Remove("one")
	assert.True(t, ok)
	assert.Equal(t, 1, value)
	assert.Equal(t, 1, ht.Len())

	_, exists := ht.Get("one")
	assert.False(t, exists, "Expected key 'one' to be deleted")

	_, ok = ht.Remove("one")
	assert.False(t, ok, "Removing twice should report absence")
	assert.Equal(t, 1, ht.Len())
}

func TestHashTableEmpty(t *testing.T) {
	t.Run("constructor", func(t *testing.T) {
		ht := NewHashTable[uint8, uint8]()
		assert.True(t, ht.IsEmpty())
		assert.Equal(t, 0, ht.Len())
		assert.Equal(t, 0, ht.Buckets())
		assert.Zero(t, ht.LoadFactor())
	})

	t.Run("zero value", func(t *testing.T) {
		var ht HashTable[string, int]
		assert.True(t, ht.IsEmpty())
		ht.Insert("a", 1)
		assert.Equal(t, 1, ht.Len())
		assert.True(t, ht.ContainsKey("a"))
	})

	t.Run("lookups never allocate buckets", func(t *testing.T) {
		ht := NewHashTable[int, string]()
		for _, k := range []int{0, 1, -1, 1 << 40} {
			assert.NotPanics(t, func() {
				_, ok := ht.Get(k)
				assert.False(t, ok)
				assert.False(t, ht.ContainsKey(k))
				_, ok = ht.Remove(k)
				assert.False(t, ok)
			})
		}
		assert.Equal(t, 0, ht.Buckets())
		assert.Nil(t, ht.SampleKeys(3, nil))
	})

	t.Run("after removing everything", func(t *testing.T) {
		ht := NewHashTable[string, int]()
		ht.Insert("a", 1)
		ht.Remove("a")
		assert.True(t, ht.IsEmpty())
		assert.Equal(t, 1, ht.Buckets(), "capacity never shrinks")
	})
}

func TestHashTableScenario(t *testing.T) {
	ht := NewHashTable[string, int]()
	ht.Insert("foo", 42)
	ht.Insert("bar", 43)
	ht.Insert("buz", 44)
	assert.Equal(t, 3, ht.Len())

	got := make(map[string]int)
	for k, v := range ht.All() {
		got[k] = v
	}
	assert.Equal(t, map[string]int{"foo": 42, "bar": 43, "buz": 44}, got)

	value, ok := ht.Get("foo")
	assert.True(t, ok)
	assert.Equal(t, 42, value)

	value, ok = ht.Remove("bar")
	assert.True(t, ok)
	assert.Equal(t, 43, value)

	_, ok = ht.Get("bar")
	assert.False(t, ok)
	assert.Equal(t, 2, ht.Len())
}

func TestHashTableResize(t *testing.T) {
	ht := NewHashTable[string, int]()

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key%d", i)
		ht.Insert(key, i)
	}

	value, exists := ht.Get("key50")
	assert.True(t, exists, "Key 'key50' should exist")
	assert.Equal(t, 50, value, "Value for key 'key50' should be 50")

	value, exists = ht.Get("key99")
	assert.True(t, exists, "Key 'key99' should exist")
	assert.Equal(t, 99, value, "Value for key 'key99' should be 99")

	assert.Equal(t, 100, ht.Len())
	assert.Equal(t, 256, ht.Buckets())
	assert.InDelta(t, 100.0/256, ht.LoadFactor(), 1e-9)
	assert.InDelta(t, ht.LoadFactor(), ht.Stats().LoadFactor, 1e-9)

	for i := 0; i < 36; i++ {
		ht.Remove(fmt.Sprintf("key%d", i))
	}
	assert.InDelta(t, 0.25, ht.LoadFactor(), 1e-9)
}

func TestHashTableLoadFactorTrace(t *testing.T) {
	ht := NewHashTable[int, int]()

	var events []ResizeEvent
	ht.OnResize(func(ev ResizeEvent) {
		events = append(events, ev)
	})

	for i := 1; i <= 1000; i++ {
		before := ht.Len()
		ht.Insert(i, i)

		buckets := ht.Buckets()
		require.LessOrEqual(t, before, 3*buckets/4,
			"insert #%d placed with %d entries in %d buckets", i, before, buckets)
		require.Equal(t, i, ht.Len())
	}

	require.NotEmpty(t, events)
	assert.Equal(t, ResizeEvent{From: 0, To: 1, Entries: 0}, events[0])
	for i := 1; i < len(events); i++ {
		assert.Equal(t, events[i-1].To, events[i].From)
		assert.Equal(t, 2*events[i].From, events[i].To)
		assert.Greater(t, events[i].Entries, 3*events[i].From/4)
	}
	assert.Equal(t, events[len(events)-1].To, ht.Buckets())
	assert.Equal(t, 2048, ht.Buckets())
}

func TestHashTableUpdateMayResize(t *testing.T) {
	ht := NewHashTable[int, string]()
	ht.Insert(1, "a")
	require.Equal(t, 1, ht.Buckets())

	prev, replaced := ht.Insert(1, "b")
	assert.True(t, replaced)
	assert.Equal(t, "a", prev)
	assert.Equal(t, 2, ht.Buckets(), "load check runs before the duplicate scan")
	assert.Equal(t, 1, ht.Len())
}

func TestHashTableCountInvariant(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	ht := NewHashTable[int, int]()
	want := make(map[int]int)

	for i := 0; i < 5000; i++ {
		k := rnd.Intn(300)
		if rnd.Intn(3) == 0 {
			v, ok := ht.Remove(k)
			wv, wok := want[k]
			require.Equal(t, wok, ok)
			require.Equal(t, wv, v)
			delete(want, k)
		} else {
			prev, replaced := ht.Insert(k, i)
			wv, wok := want[k]
			require.Equal(t, wok, replaced)
			require.Equal(t, wv, prev)
			want[k] = i
		}
		require.Equal(t, len(want), ht.Len())
	}

	stats := ht.Stats()
	sum := 0
	for range ht.All() {
		sum++
	}
	assert.Equal(t, len(want), sum)
	assert.Equal(t, len(want), stats.Entries)
	for k, v := range want {
		got, ok := ht.Get(k)
		assert.True(t, ok)
		assert.Equal(t, v, got)
	}
}

func TestHashTableCollisions(t *testing.T) {
	constant := func(string) uint64 { return 7 }
	ht := NewHashTableFunc[string, int](constant)

	keys := []string{"a", "b", "c", "d", "e"}
	for i, k := range keys {
		ht.Insert(k, i)
	}
	stats := ht.Stats()
	assert.Equal(t, len(keys), stats.LongestChain, "every key shares one chain")
	assert.Equal(t, stats.Buckets-1, stats.EmptyBuckets)

	value, ok := ht.Remove("b")
	require.True(t, ok)
	assert.Equal(t, 1, value)

	for i, k := range keys {
		got, ok := ht.Get(k)
		if k == "b" {
			assert.False(t, ok)
			continue
		}
		assert.True(t, ok, "key %q lost after swap-remove", k)
		assert.Equal(t, i, got)
	}

	ht.Insert("a", 100)
	got, _ := ht.Get("a")
	assert.Equal(t, 100, got)
	assert.Equal(t, 4, ht.Len())
}

func TestHashTableStringHasher(t *testing.T) {
	a := NewHashTableFunc[string, int](StringHasher())
	b := NewHashTableFunc[string, int](StringHasher())
	for i := 0; i < 50; i++ {
		a.Insert(fmt.Sprintf("k%d", i), i)
		b.Insert(fmt.Sprintf("k%d", i), i)
	}

	var ka, kb []string
	for k := range a.Keys() {
		ka = append(ka, k)
	}
	for k := range b.Keys() {
		kb = append(kb, k)
	}
	assert.Equal(t, ka, kb, "fnv layouts are reproducible")
}

func TestHashTableIterator(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		ht := NewHashTable[string, int]()
		it := ht.Iter()
		assert.False(t, it.Next())
		assert.Zero(t, it.Key())
		assert.Zero(t, it.Value())
	})

	t.Run("completeness", func(t *testing.T) {
		ht := NewHashTable[int, string]()
		for i := 0; i < 200; i++ {
			ht.Insert(i, "old")
		}
		for i := 0; i < 200; i += 2 {
			ht.Insert(i, "new")
		}

		seen := make(map[int]string)
		it := ht.Iter()
		for it.Next() {
			_, dup := seen[it.Key()]
			require.False(t, dup, "key %d yielded twice", it.Key())
			seen[it.Key()] = it.Value()
		}
		assert.False(t, it.Next(), "exhausted iterator stays exhausted")
		require.Len(t, seen, 200)
		for k, v := range seen {
			if k%2 == 0 {
				assert.Equal(t, "new", v)
			} else {
				assert.Equal(t, "old", v)
			}
		}
	})

	t.Run("fresh iterator restarts", func(t *testing.T) {
		ht := NewHashTable[int, int]()
		for i := 0; i < 10; i++ {
			ht.Insert(i, i)
		}
		first := ht.Iter()
		first.Next()
		first.Next()

		n := 0
		second := ht.Iter()
		for second.Next() {
			n++
		}
		assert.Equal(t, 10, n)
	})

	t.Run("early stop", func(t *testing.T) {
		ht := NewHashTable[int, int]()
		for i := 0; i < 10; i++ {
			ht.Insert(i, i*i)
		}
		n := 0
		for range ht.All() {
			n++
			if n == 3 {
				break
			}
		}
		assert.Equal(t, 3, n)

		sum := 0
		for v := range ht.Values() {
			sum += v
		}
		assert.Equal(t, 285, sum)
	})
}

func TestHashTableSampleKeys(t *testing.T) {
	ht := NewHashTable[int, struct{}]()
	for i := 0; i < 100; i++ {
		ht.Insert(i, struct{}{})
	}
	rnd := rand.New(rand.NewSource(1))

	keys := ht.SampleKeys(5, rnd)
	assert.Len(t, keys, 5)
	seen := make(map[int]bool)
	for _, k := range keys {
		assert.True(t, ht.ContainsKey(k))
		assert.False(t, seen[k], "key %d sampled twice", k)
		seen[k] = true
	}

	assert.Len(t, ht.SampleKeys(1000, rnd), 100)
	assert.Nil(t, ht.SampleKeys(0, rnd))
}

func TestHashTableLogsResize(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ht := NewHashTable[string, int]()
	ht.SetLogger(zap.New(core))

	ht.Insert("a", 1)
	ht.Insert("b", 2)

	entries := logs.FilterMessage("hash table resized").All()
	require.Len(t, entries, 2)
	fields := entries[1].ContextMap()
	assert.Equal(t, int64(1), fields["from"])
	assert.Equal(t, int64(2), fields["to"])
	assert.Equal(t, int64(1), fields["entries"])
}

package cache_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rollout/pkg/cache"
)

func TestLRU(t *testing.T) {
	t.Parallel()

	t.Run("put get update", func(t *testing.T) {
		t.Parallel()
		c := cache.New[string, int](3)
		c.Put("a", 1)
		old, existed := c.Put("a", 2)
		assert.True(t, existed)
		assert.Equal(t, 1, old)

		v, ok := c.Get("a")
		require.True(t, ok)
		assert.Equal(t, 2, v)

		_, ok = c.Get("missing")
		assert.False(t, ok)
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		t.Parallel()
		c := cache.New[string, int](3)
		var evicted []string
		c.OnEvict(func(k string, _ int) { evicted = append(evicted, k) })

		c.Put("a", 1)
		c.Put("b", 2)
		c.Put("c", 3)
		c.Get("a")
		c.Put("d", 4)

		assert.Equal(t, []string{"b"}, evicted)
		assert.Equal(t, []string{"d", "a", "c"}, c.Keys())
	})

	t.Run("peek keeps order", func(t *testing.T) {
		t.Parallel()
		c := cache.New[string, int](2)
		c.Put("a", 1)
		c.Put("b", 2)
		_, ok := c.Peek("a")
		require.True(t, ok)
		c.Put("c", 3)
		_, ok = c.Peek("a")
		assert.False(t, ok)
	})

	t.Run("remove and clear notify", func(t *testing.T) {
		t.Parallel()
		c := cache.New[string, int](5)
		var n atomic.Int32
		c.OnEvict(func(string, int) { n.Add(1) })
		c.Put("a", 1)
		c.Put("b", 2)
		c.Put("c", 3)

		v, ok := c.Remove("a")
		assert.True(t, ok)
		assert.Equal(t, 1, v)
		_, ok = c.Remove("a")
		assert.False(t, ok)

		c.Clear()
		assert.Equal(t, 0, c.Len())
		assert.Equal(t, int32(3), n.Load())
	})

	t.Run("callback may reenter", func(t *testing.T) {
		t.Parallel()
		c := cache.New[string, int](1)
		c.OnEvict(func(k string, _ int) { _, _ = c.Peek(k) })
		c.Put("a", 1)
		c.Put("b", 2)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("invalid capacity", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { cache.New[string, int](0) })
	})
}

func TestLRUGetOrCreate(t *testing.T) {
	t.Parallel()
	c := cache.New[string, *atomic.Int32](16)
	var created atomic.Int32

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := c.GetOrCreate("k", func() *atomic.Int32 {
				created.Add(1)
				return &atomic.Int32{}
			})
			v.Add(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, int32(50), v.Load())
}

func BenchmarkLRU(b *testing.B) {
	c := cache.New[string, int](1000)
	keys := make([]string, 2000)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}
	i := 0
	for b.Loop() {
		k := keys[i%len(keys)]
		if _, ok := c.Get(k); !ok {
			c.Put(k, i)
		}
		i++
	}
}

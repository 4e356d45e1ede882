package cache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheGetSet(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	c := New[int](100)
	assert.Equal(t, 112, c.Capacity())
	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = c.Get("b")
	assert.False(t, ok)
	c.Set("a", 2)
	v, _ = c.Get("a")
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	st := c.Stats()
	assert.Equal(t, uint64(2), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.InDelta(t, 2.0/3.0, st.HitRate(), 1e-12)
}

func TestCacheEviction(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	c := New[int](ShardCount) // one entry per shard
	var keys []Key
	for i := 0; i < 200; i++ {
		k := Key(fmt.Sprintf("key-%d", i))
		keys = append(keys, k)
		c.Set(k, i)
	}
	assert.LessOrEqual(t, c.Len(), ShardCount)
	assert.Equal(t, uint64(200-c.Len()), c.Stats().Evictions)
	// the last key set always survives in its shard
	v, ok := c.Get(keys[199])
	assert.True(t, ok)
	assert.Equal(t, 199, v)
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCacheLRUOrder(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	c := New[string](0)
	s := c.shards[0]
	// fill one shard directly to its capacity and touch the oldest entry
	for i := 0; i < DefaultCapacity; i++ {
		c.put(s, Key(fmt.Sprint(i)), fmt.Sprint(i))
	}
	s.lru.MoveToFront(s.entries["0"])
	c.put(s, "new", "new")
	_, ok := s.entries["0"]
	assert.True(t, ok, "recently used entry must survive")
	_, ok = s.entries["1"]
	assert.False(t, ok, "least recently used entry must be evicted")
}

func TestGetOrBuild(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	c := New[int](10)
	var builds atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrBuild("k", func() (int, error) {
				builds.Add(1)
				return 42, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), builds.Load())
	boom := errors.New("boom")
	_, err := c.GetOrBuild("e", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get("e")
	assert.False(t, ok, "failed builds are not cached")
}

func TestKeyOf(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	//
	tol := curvenet.DefaultTolerance()
	a := bspline.Bezier(curvenet.P(0, 0, 0), curvenet.P(1, 1, 0), curvenet.P(2, 0, 0))
	b := bspline.Bezier(curvenet.P(0, 1, 0), curvenet.P(1, 2, 0), curvenet.P(2, 1, 0))
	k := KeyOf(tol, []*bspline.Curve{a, b}, []*bspline.Curve{b})
	require.Len(t, k, 64)
	assert.Len(t, k.Short(), 12)
	assert.Equal(t, k, KeyOf(tol, []*bspline.Curve{a.Clone(), b.Clone()}, []*bspline.Curve{b}))
	assert.NotEqual(t, k, KeyOf(tol, []*bspline.Curve{b, a}, []*bspline.Curve{b}))
	assert.NotEqual(t, k, KeyOf(tol, []*bspline.Curve{a, b, b}))
	assert.NotEqual(t, k, KeyOf(tol.WithTol3D(1e-4), []*bspline.Curve{a, b}, []*bspline.Curve{b}))
	w := a.Clone()
	w.Weights = []float64{1, 1, 1}
	assert.NotEqual(t, KeyOf(tol, []*bspline.Curve{a}), KeyOf(tol, []*bspline.Curve{w}))
}

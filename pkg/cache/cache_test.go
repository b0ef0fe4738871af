package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slimtgo/slimt/pkg/search"
)

func TestDisabledCacheAlwaysMisses(t *testing.T) {
	c := New(0)
	assert.False(t, c.Enabled())

	key := Key("model-a", []uint32{1, 2, 3})
	_, ok := c.Find(key)
	assert.False(t, ok)

	c.Store(key, search.History{Words: []uint32{9}})
	_, ok = c.Find(key)
	assert.False(t, ok, "store on a disabled cache must be a no-op")
}

func TestStoreThenFindRoundTrips(t *testing.T) {
	c := New(8)
	require.True(t, c.Enabled())

	key := Key("model-a", []uint32{1, 2, 3})
	want := search.History{Words: []uint32{4, 5, 6}}
	c.Store(key, want)

	got, ok := c.Find(key)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestKeyDependsOnModelAndWords(t *testing.T) {
	a := Key("model-a", []uint32{1, 2, 3})
	b := Key("model-b", []uint32{1, 2, 3})
	c := Key("model-a", []uint32{1, 2, 4})
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, Key("model-a", []uint32{1, 2, 3}))
}

func TestStoreOverwritesOnCollision(t *testing.T) {
	c := New(1) // single slot: every key collides
	k1 := Key("m", []uint32{1})
	k2 := Key("m", []uint32{2})

	c.Store(k1, search.History{Words: []uint32{1}})
	c.Store(k2, search.History{Words: []uint32{2}})

	// k1's slot was overwritten by k2; looking it up by k1's key must miss.
	_, ok := c.Find(k1)
	assert.False(t, ok)
	got, ok := c.Find(k2)
	require.True(t, ok)
	assert.Equal(t, []uint32{2}, got.Words)
}

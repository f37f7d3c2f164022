package cache

import (
	"sync"
	"testing"

	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestAssetCache_GetAdd(t *testing.T) {
	c := NewAssetCache()

	_, ok := c.Get("jet")
	assert.False(t, ok)

	c.Add("jet", core.ModelHandle{ID: "jet", Name: "Jet", Data: []byte("glTF")})
	h, ok := c.Get("jet")
	assert.True(t, ok)
	assert.Equal(t, "Jet", h.Name)

	assert.Equal(t, Stats{Entries: 1, Bytes: 4, Hits: 1, Misses: 1}, c.Stats())
}

func TestAssetCache_Placeholder(t *testing.T) {
	c := NewAssetCache()
	c.Add("broken", core.ModelHandle{ID: "broken", Placeholder: true})
	assert.Zero(t, c.Len())
}

func TestAssetCache_ReplaceRemoveReset(t *testing.T) {
	c := NewAssetCache()
	c.Add("b", core.ModelHandle{ID: "b", Data: make([]byte, 10)})
	c.Add("a", core.ModelHandle{ID: "a", Data: make([]byte, 5)})
	c.Add("a", core.ModelHandle{ID: "a", Data: make([]byte, 7)})
	assert.Equal(t, []string{"a", "b"}, c.Keys())
	assert.Equal(t, 17, c.Stats().Bytes)

	c.Remove("a")
	c.Remove("missing")
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 10, c.Stats().Bytes)

	c.Reset()
	assert.Equal(t, Stats{}, c.Stats())
}

func TestAssetCache_Concurrent(t *testing.T) {
	c := NewAssetCache()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add("x", core.ModelHandle{ID: "x"})
			c.Get("x")
		}()
	}
	wg.Wait()
	s := c.Stats()
	assert.Equal(t, 50, s.Hits+s.Misses)
}

func TestCounter(t *testing.T) {
	var c Counter
	c.Inc()
	c.Inc()
	assert.Equal(t, 2, c.Value())
	c.Set(7)
	assert.Equal(t, 7, c.Value())
}

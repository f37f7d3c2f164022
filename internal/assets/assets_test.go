package assets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aircraftstudio/skirmish/internal/api"
	"github.com/aircraftstudio/skirmish/internal/config"
	"github.com/aircraftstudio/skirmish/internal/storage/memory"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var glb = []byte("glTF\x02\x00\x00\x00payload")

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/a.glb"))
	assert.True(t, IsURL("http://example.com/a.glb"))
	assert.True(t, IsURL("/api/models/abc"))
	assert.False(t, IsURL("abc-123"))
	assert.False(t, IsURL("httpfoo"))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(glb))
	assert.ErrorIs(t, Validate([]byte("gl")), ErrInvalidAsset)
	assert.ErrorIs(t, Validate([]byte("<html>")), ErrInvalidAsset)
}

func TestPlaceholder(t *testing.T) {
	h := Placeholder("enemy-2")
	assert.True(t, h.Placeholder)
	assert.Equal(t, "enemy-2", h.ID)
}

func TestResolve_CatalogueKey(t *testing.T) {
	cat := memory.New(config.MemoryConfig{})
	require.NoError(t, cat.SaveModel(core.ModelEntry{ID: "m1", Name: "Falcon"}, glb))

	r := New(Dependencies{Catalogue: cat})
	h, err := r.Resolve(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Falcon", h.Name)
	assert.Equal(t, "/api/models/m1", h.Source)
	assert.Equal(t, glb, h.Data)

	// second lookup is served from the cache
	_, err = r.Resolve(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Cache().Hits.Value())
}

func TestResolve_CatalogueMissing(t *testing.T) {
	r := New(Dependencies{Catalogue: memory.New(config.MemoryConfig{})})
	_, err := r.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Resolve(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_CatalogueInvalidBlob(t *testing.T) {
	cat := memory.New(config.MemoryConfig{})
	require.NoError(t, cat.SaveModel(core.ModelEntry{ID: "bad"}, []byte("not a model")))

	r := New(Dependencies{Catalogue: cat})
	_, err := r.Resolve(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInvalidAsset)
	assert.Equal(t, 0, r.Cache().Len())
}

func TestResolve_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models/heron.glb":
			_, _ = w.Write(glb)
		case "/models/page.glb":
			_, _ = w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := New(Dependencies{Fetcher: api.New(srv.URL, "")})

	h, err := r.Resolve(context.Background(), srv.URL+"/models/heron.glb")
	require.NoError(t, err)
	assert.Equal(t, "heron", h.Name)

	_, err = r.Resolve(context.Background(), srv.URL+"/models/missing.glb")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Resolve(context.Background(), srv.URL+"/models/page.glb")
	assert.ErrorIs(t, err, ErrInvalidAsset)
}

func TestResolve_NoSources(t *testing.T) {
	r := New(Dependencies{})
	_, err := r.Resolve(context.Background(), "https://example.com/a.glb")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = r.Resolve(context.Background(), "key")
	assert.True(t, errors.Is(err, ErrNotFound))

	list, err := r.List(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, list)
}

func TestList_PrefersCatalogue(t *testing.T) {
	cat := memory.New(config.MemoryConfig{})
	require.NoError(t, cat.SaveModel(core.ModelEntry{ID: "m1"}, glb))

	r := New(Dependencies{Catalogue: cat, Fetcher: api.New("http://127.0.0.1:1", "")})
	list, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "m1", list[0].ID)
}

// Package assets resolves model identifiers into loadable handles. An
// identifier is either a URL served by the API or an opaque key in the
// local model catalogue.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aircraftstudio/skirmish/internal/api"
	"github.com/aircraftstudio/skirmish/internal/cache"
	"github.com/aircraftstudio/skirmish/internal/storage"
	"github.com/aircraftstudio/skirmish/pkg/core"
)

// Magic is the leading four bytes of every binary glTF file.
const Magic = "glTF"

var (
	ErrNotFound     = errors.New("asset not found")
	ErrInvalidAsset = errors.New("invalid asset")
)

// Fetcher downloads models from a remote catalogue. *api.Client satisfies it.
type Fetcher interface {
	FetchModel(ctx context.Context, ref string) ([]byte, error)
	ListModels(ctx context.Context) ([]core.ModelEntry, error)
}

var _ Fetcher = (*api.Client)(nil)

// Resolver turns identifiers into handles, caching each one it loads.
type Resolver struct {
	fetcher   Fetcher
	catalogue storage.Catalogue
	cache     *cache.AssetCache
	logger    *slog.Logger
}

// Dependencies holds what a Resolver may draw from. Either source may be nil.
type Dependencies struct {
	Fetcher   Fetcher
	Catalogue storage.Catalogue
	Cache     *cache.AssetCache
	Logger    *slog.Logger
}

// New creates a Resolver.
func New(deps Dependencies) *Resolver {
	r := &Resolver{
		fetcher:   deps.Fetcher,
		catalogue: deps.Catalogue,
		cache:     deps.Cache,
		logger:    deps.Logger,
	}
	if r.cache == nil {
		r.cache = cache.NewAssetCache()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// IsURL reports whether id names a remote asset rather than a catalogue key.
func IsURL(id string) bool {
	return strings.HasPrefix(id, "http://") ||
		strings.HasPrefix(id, "https://") ||
		strings.HasPrefix(id, "/")
}

// Validate checks that data is a binary glTF payload.
func Validate(data []byte) error {
	if len(data) < len(Magic) || !bytes.Equal(data[:len(Magic)], []byte(Magic)) {
		return ErrInvalidAsset
	}
	return nil
}

// Placeholder returns a stand-in handle for an asset that failed to load.
func Placeholder(id string) core.ModelHandle {
	return core.ModelHandle{ID: id, Name: "placeholder", Placeholder: true}
}

// Placeholder is the method form of the package function.
func (r *Resolver) Placeholder(id string) core.ModelHandle {
	return Placeholder(id)
}

// Cache exposes the resolver's cache for status output.
func (r *Resolver) Cache() *cache.AssetCache {
	return r.cache
}

// Resolve loads the model named by id.
func (r *Resolver) Resolve(ctx context.Context, id string) (core.ModelHandle, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.ModelHandle{}, fmt.Errorf("empty identifier: %w", ErrNotFound)
	}
	if h, ok := r.cache.Get(id); ok {
		return h, nil
	}

	var (
		h   core.ModelHandle
		err error
	)
	if IsURL(id) {
		h, err = r.fetch(ctx, id)
	} else {
		h, err = r.lookup(ctx, id)
	}
	if err != nil {
		return core.ModelHandle{}, err
	}

	r.cache.Add(id, h)
	r.logger.Debug("asset resolved", "id", id, "bytes", len(h.Data))
	return h, nil
}

func (r *Resolver) fetch(ctx context.Context, ref string) (core.ModelHandle, error) {
	if r.fetcher == nil {
		return core.ModelHandle{}, fmt.Errorf("%s: no remote source: %w", ref, ErrNotFound)
	}
	data, err := r.fetcher.FetchModel(ctx, ref)
	if errors.Is(err, api.ErrNotFound) {
		return core.ModelHandle{}, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return core.ModelHandle{}, fmt.Errorf("failed to fetch %s: %w", ref, err)
	}
	if err := Validate(data); err != nil {
		return core.ModelHandle{}, fmt.Errorf("%s: %w", ref, err)
	}
	name := strings.TrimSuffix(path.Base(ref), path.Ext(ref))
	return core.ModelHandle{ID: ref, Name: name, Source: ref, Data: data}, nil
}

func (r *Resolver) lookup(ctx context.Context, key string) (core.ModelHandle, error) {
	if r.catalogue == nil {
		return core.ModelHandle{}, fmt.Errorf("%s: no catalogue: %w", key, ErrNotFound)
	}
	entry, blob, err := r.catalogue.LoadModel(key)
	if errors.Is(err, storage.ErrNotFound) {
		return core.ModelHandle{}, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return core.ModelHandle{}, fmt.Errorf("failed to load %s: %w", key, err)
	}

	// entries imported by reference carry no payload of their own
	if len(blob) == 0 && entry.AssetRef != "" && IsURL(entry.AssetRef) {
		h, err := r.fetch(ctx, entry.AssetRef)
		if err != nil {
			return core.ModelHandle{}, err
		}
		h.ID, h.Name = entry.ID, entry.Name
		return h, nil
	}

	if err := Validate(blob); err != nil {
		return core.ModelHandle{}, fmt.Errorf("%s: %w", key, err)
	}
	source := entry.AssetRef
	if source == "" {
		source = "/api/models/" + entry.ID
	}
	return core.ModelHandle{ID: entry.ID, Name: entry.Name, Source: source, Data: blob}, nil
}

// List returns the models available for play, preferring the local
// catalogue over the remote one.
func (r *Resolver) List(ctx context.Context) ([]core.ModelEntry, error) {
	switch {
	case r.catalogue != nil:
		return r.catalogue.ListModels()
	case r.fetcher != nil:
		return r.fetcher.ListModels(ctx)
	}
	return nil, nil
}

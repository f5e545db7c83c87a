package engine

import (
	"context"
	"sync"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/internal/voicecatalog"
	"github.com/Astrocyte74/tts-hub/pkg/types"
)

// Registry is an ordered collection of backends keyed by engine id,
// replacing the source's dictionary of callables with a polymorphic
// interface and explicit registration order (used to pick a default when
// none is requested).
type Registry struct {
	mu        sync.RWMutex
	order     []string
	byID      map[string]Backend
	defaultID string
	favorites FavoriteLookup
}

// NewRegistry returns an empty, ready-to-use Registry. favorites may be nil
// if the deployment does not wire a favorites store.
func NewRegistry(favorites FavoriteLookup) *Registry {
	return &Registry{
		byID:      make(map[string]Backend),
		favorites: favorites,
	}
}

// Register adds backend under its own ID, appending it to registration
// order. The first backend registered becomes the default engine unless
// SetDefault is called explicitly.
func (r *Registry) Register(backend Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := backend.ID()
	if _, exists := r.byID[id]; !exists {
		r.order = append(r.order, id)
	}
	r.byID[id] = backend
	if r.defaultID == "" {
		r.defaultID = id
	}
}

// SetDefault overrides the default engine id used when a request omits
// "engine".
func (r *Registry) SetDefault(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultID = id
}

// IDs returns registered engine ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// resolve returns the backend for id, falling back to the configured
// default when id is empty.
func (r *Registry) resolve(id string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == "" {
		id = r.defaultID
	}
	backend, ok := r.byID[id]
	if !ok {
		return nil, apperr.NotFound("engine: unknown engine %q", id)
	}
	return backend, nil
}

// Dispatch resolves raw["engine"], applies favorite profile expansion,
// checks availability (unless allowUnavailable is set for read-only
// listing), prepares the request, and synthesizes it. The result always
// carries its resolving engine id.
func (r *Registry) Dispatch(ctx context.Context, raw map[string]any, allowUnavailable bool) (types.SynthResult, error) {
	engineID, _ := raw["engine"].(string)
	backend, err := r.resolve(engineID)
	if err != nil {
		return types.SynthResult{}, err
	}

	if !allowUnavailable && !backend.Available(ctx) {
		return types.SynthResult{}, apperr.EngineUnavailable("engine %q is not available", backend.ID())
	}

	raw = r.expandFavorite(ctx, raw)

	req, err := backend.Prepare(ctx, raw)
	if err != nil {
		return types.SynthResult{}, err
	}
	if req.Engine == "" {
		req.Engine = backend.ID()
	}

	result, err := backend.Synthesize(ctx, req)
	if err != nil {
		return types.SynthResult{}, err
	}
	if result.Engine == "" {
		result.Engine = backend.ID()
	}
	return result, nil
}

// Synthesize is the narrower entry point used by callers that have already
// built a normalized request (previewcache, mediajobs) rather than a raw
// client payload.
func (r *Registry) Synthesize(ctx context.Context, req types.SynthRequest) (types.SynthResult, error) {
	backend, err := r.resolve(req.Engine)
	if err != nil {
		return types.SynthResult{}, err
	}
	if !backend.Available(ctx) {
		return types.SynthResult{}, apperr.EngineUnavailable("engine %q is not available", backend.ID())
	}
	result, err := backend.Synthesize(ctx, req)
	if err != nil {
		return types.SynthResult{}, err
	}
	if result.Engine == "" {
		result.Engine = backend.ID()
	}
	return result, nil
}

// expandFavorite fills missing fields in raw from the persisted favorite
// named by raw["favoriteId"] or raw["favoriteSlug"], without overwriting
// fields the caller already supplied.
func (r *Registry) expandFavorite(ctx context.Context, raw map[string]any) map[string]any {
	if r.favorites == nil {
		return raw
	}
	idOrSlug, _ := raw["favoriteId"].(string)
	if idOrSlug == "" {
		idOrSlug, _ = raw["favoriteSlug"].(string)
	}
	if idOrSlug == "" {
		return raw
	}
	fields, ok := r.favorites.ResolveFavorite(ctx, idOrSlug)
	if !ok {
		return raw
	}
	merged := make(map[string]any, len(raw)+len(fields))
	for k, v := range fields {
		merged[k] = v
	}
	for k, v := range raw {
		merged[k] = v
	}
	return merged
}

// FetchVoices returns the voice catalog for engineID, or the default
// engine's catalog if engineID is empty.
func (r *Registry) FetchVoices(ctx context.Context, engineID string) (voicecatalog.Catalog, error) {
	backend, err := r.resolve(engineID)
	if err != nil {
		return voicecatalog.Catalog{}, err
	}
	return backend.FetchVoices(ctx)
}

// Availability reports whether engineID (or the default engine, if empty)
// is currently usable for synthesis.
func (r *Registry) Availability(ctx context.Context, engineID string) (bool, error) {
	backend, err := r.resolve(engineID)
	if err != nil {
		return false, err
	}
	return backend.Available(ctx), nil
}

// Backend exposes the underlying backend for engineID, used by components
// (previewcache, mediajobs) that need direct access beyond Dispatch's
// raw-map contract.
func (r *Registry) Backend(engineID string) (Backend, error) {
	return r.resolve(engineID)
}

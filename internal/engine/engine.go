// Package engine defines the polymorphic speech-synthesis backend contract
// and the Dispatcher that resolves a request to a registered backend,
// replacing the duck-typed callable-dictionary registry pattern with an
// explicit interface and an ordered registry.
package engine

import (
	"context"

	"github.com/Astrocyte74/tts-hub/internal/voicecatalog"
	"github.com/Astrocyte74/tts-hub/pkg/types"
)

// Backend is a concrete speech-synthesis engine plugged into the
// dispatcher.
type Backend interface {
	// ID returns the engine's registry key (lowercase, stable).
	ID() string

	// Prepare validates raw, coerces numerics, enforces enumerations, and
	// resolves voice identity into a normalized request.
	Prepare(ctx context.Context, raw map[string]any) (types.SynthRequest, error)

	// Synthesize runs req and lands a file under the output directory.
	Synthesize(ctx context.Context, req types.SynthRequest) (types.SynthResult, error)

	// FetchVoices returns the engine's voice catalog.
	FetchVoices(ctx context.Context) (voicecatalog.Catalog, error)

	// Available reports whether this backend can currently synthesize:
	// binaries on PATH, model/weights present, or a remote URL reachable.
	Available(ctx context.Context) bool

	// Defaults returns the engine's default field values, used to backfill
	// a request that omits optional fields.
	Defaults() map[string]any

	// Supports reports whether this backend implements an optional
	// capability ("cloning", "dialogue", "style", "seed", ...).
	Supports(feature string) bool

	// RequiresVoice reports whether Prepare rejects a request with no
	// voice identity at all (cloning engines do; preset-driven ones may
	// not).
	RequiresVoice() bool
}

// FavoriteLookup resolves a favorite id or slug into the persisted fields a
// request should inherit, implemented by the favorites store.
type FavoriteLookup interface {
	ResolveFavorite(ctx context.Context, idOrSlug string) (map[string]any, bool)
}

package ports

import (
	"context"

	"glot/internal/core/catalog"
	"glot/internal/engine/binder"
	"glot/internal/engine/resolve"
)

// LanguageService is the resolution surface the editor core consumes. The
// catalog behind it is immutable after startup; every method is safe to call
// from any number of concurrently open buffers.
type LanguageService interface {
	// Resolve maps a buffer identity to exactly one language. Total.
	Resolve(identity resolve.Identity) string

	// RootOf discovers the enclosing project root for a resolved language,
	// if any. Cancellable via ctx; a missing root is not an error.
	RootOf(ctx context.Context, path, language string) (string, bool)

	// InjectionsFor resolves the embedded-language spans of a buffer's hint
	// regions, recursing through sub-regions up to the configured depth.
	InjectionsFor(buf *resolve.ResolvedBuffer, regions []resolve.Region, sub resolve.SubRegionsFunc) []resolve.Injection

	// ToolingFor returns the server/formatter/comment/indent bindings for a
	// resolved language.
	ToolingFor(language string) (binder.Tooling, error)
}

// GrammarProvisioner is the surface the external grammar build step
// consumes: the concrete grammar for a language plus the pinned source to
// fetch it from.
type GrammarProvisioner interface {
	GrammarIDFor(language string) (string, bool)
	GrammarSourceFor(grammarID string) (catalog.GrammarSource, bool)
}

// ResolutionSink receives applied buffer resolutions from the background
// scheduler. Results are always applied in version order; stale results are
// dropped before reaching the sink.
type ResolutionSink interface {
	ApplyResolution(bufferID string, buf *resolve.ResolvedBuffer)
}

package app

import (
	"context"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"glot/internal/core/catalog"
	"glot/internal/engine/binder"
	"glot/internal/engine/resolve"
	"glot/internal/shared/observability"
)

// Resolve maps a buffer identity to exactly one language.
func (a *App) Resolve(identity resolve.Identity) string {
	language := a.matcher.Resolve(identity)
	if identity.Override == "" && language == a.catalog.Fallback().Name {
		observability.ResolutionFallbackTotal.Inc()
	}
	return language
}

// ResolveChecked resolves like Resolve but surfaces a configuration error
// for an override naming a language the catalog does not know.
func (a *App) ResolveChecked(identity resolve.Identity) (string, error) {
	return a.matcher.ResolveChecked(identity)
}

// RootOf walks ancestor directories for the language's root markers.
func (a *App) RootOf(ctx context.Context, path, language string) (string, bool) {
	started := time.Now()
	root, found := a.roots.RootOf(ctx, path, language)
	observability.RootWalkDuration.Observe(time.Since(started).Seconds())
	if !found {
		observability.RootNotFoundTotal.Inc()
	}
	return root, found
}

// InjectionsFor resolves the embedded-language spans of a buffer's hint
// regions, memoizing per span on buf.
func (a *App) InjectionsFor(buf *resolve.ResolvedBuffer, regions []resolve.Region, sub resolve.SubRegionsFunc) []resolve.Injection {
	injections := a.injector.Resolve(buf, regions, sub)

	observability.InjectionSpans.Observe(float64(len(injections)))
	deepest := 0
	for _, inj := range injections {
		if inj.Depth > deepest {
			deepest = inj.Depth
		}
	}
	if deepest > 0 {
		observability.InjectionDepthReached.Observe(float64(deepest))
	}
	return injections
}

// ToolingFor returns the tooling bindings for a resolved language.
func (a *App) ToolingFor(language string) (binder.Tooling, error) {
	return a.binder.ToolingFor(language)
}

// PartitionDiagnostics splits server diagnostics for a resync into those
// that survive and those the re-parse clears.
func (a *App) PartitionDiagnostics(language string, diagnostics []binder.Diagnostic) (kept, cleared []binder.Diagnostic) {
	return a.binder.PartitionDiagnostics(language, diagnostics)
}

// GrammarIDFor resolves a language to its concrete grammar id, following
// alias chains decided at catalog load.
func (a *App) GrammarIDFor(language string) (string, bool) {
	return a.catalog.GrammarID(language)
}

// GrammarSourceFor returns the pinned source a concrete grammar is
// provisioned from.
func (a *App) GrammarSourceFor(grammarID string) (catalog.GrammarSource, bool) {
	return a.catalog.GrammarSourceFor(grammarID)
}

// NativeGrammar returns the compiled-in tree-sitter language for a resolved
// language, when the binary carries one. Grammars without a native binding
// are provisioned externally from their catalog source.
func (a *App) NativeGrammar(language string) (*sitter.Language, bool) {
	grammarID, ok := a.catalog.GrammarID(language)
	if !ok {
		return nil, false
	}
	return a.grammars.Language(grammarID)
}

// NativeGrammarIDs lists the grammar ids compiled into the binary.
func (a *App) NativeGrammarIDs() []string {
	return a.grammars.Available()
}

package binder

import (
	"glot/internal/core/catalog"
	"glot/internal/core/errors"
)

// Tooling is everything the editor core needs to operate on a resolved
// language: which servers to talk to, how to format, how to toggle comments,
// how to indent.
type Tooling struct {
	Language        string
	LanguageServers []string
	Formatter       *catalog.FormatterCommand
	Comment         catalog.CommentModel
	Indent          catalog.IndentSpec
}

// Diagnostic is the minimal view of a language-server diagnostic the binder
// needs to partition on resync.
type Diagnostic struct {
	Source  string
	Message string
}

// Binder maps resolved languages to their tooling bindings. Pure lookup over
// the immutable catalog; no side effects beyond what callers do with the
// returned bindings.
type Binder struct {
	catalog *catalog.Catalog
}

func New(c *catalog.Catalog) *Binder {
	return &Binder{catalog: c}
}

// ToolingFor returns the bindings for a language. The formatter is only
// exposed when the auto-format flag is set; save is a no-op otherwise.
func (b *Binder) ToolingFor(language string) (Tooling, error) {
	d, ok := b.catalog.Get(language)
	if !ok {
		return Tooling{}, errors.Newf(errors.CodeNotFound, "unknown language %q", language)
	}

	tooling := Tooling{
		Language:        d.Name,
		LanguageServers: d.LanguageServers,
		Comment:         d.Comment,
		Indent:          d.Indent,
	}
	if d.AutoFormat {
		tooling.Formatter = d.Formatter
	}
	return tooling, nil
}

// PartitionDiagnostics splits diagnostics for a resync: those whose source
// the language marks persistent survive, everything else is cleared on the
// re-parse.
func (b *Binder) PartitionDiagnostics(language string, diagnostics []Diagnostic) (kept, cleared []Diagnostic) {
	d, ok := b.catalog.Get(language)
	if !ok || len(d.PersistentDiagnosticSources) == 0 {
		return nil, diagnostics
	}

	persistent := make(map[string]bool, len(d.PersistentDiagnosticSources))
	for _, source := range d.PersistentDiagnosticSources {
		persistent[source] = true
	}
	for _, diag := range diagnostics {
		if persistent[diag.Source] {
			kept = append(kept, diag)
		} else {
			cleared = append(cleared, diag)
		}
	}
	return kept, cleared
}

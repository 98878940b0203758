package resolve

import (
	"fmt"
	"path/filepath"
	"strings"

	"glot/internal/core/catalog"
	"glot/internal/core/errors"
)

// Identity is everything known about a buffer before any parse: where it
// lives, what its first line says, and whether the user forced a language.
type Identity struct {
	Path        string
	ShebangLine string
	Override    string
}

// Matcher resolves a buffer identity to exactly one language. It is a pure
// function of the catalog and the identity: no filesystem access, no state,
// and it can never fail to produce an answer.
type Matcher struct {
	catalog   *catalog.Catalog
	byShebang map[string]*catalog.Descriptor
}

func NewMatcher(c *catalog.Catalog) *Matcher {
	byShebang := make(map[string]*catalog.Descriptor)
	for _, d := range c.Descriptors() {
		for _, shebang := range d.Shebangs {
			// First declaration wins for a shared interpreter name; catalog
			// order is the documented precedence.
			if _, taken := byShebang[shebang]; !taken {
				byShebang[shebang] = d
			}
		}
	}
	return &Matcher{catalog: c, byShebang: byShebang}
}

// Resolve returns the language governing the identity. Total: any input,
// including a degenerate one, resolves to some language.
func (m *Matcher) Resolve(id Identity) string {
	lang, _ := m.ResolveChecked(id)
	return lang
}

// ResolveChecked behaves like Resolve but additionally reports an unknown
// explicit override as a CONFIG_ERROR referencing the override. The returned
// language is still valid in that case (the override is ignored and pattern
// matching proceeds), so callers on the interactive path never lose an
// answer.
func (m *Matcher) ResolveChecked(id Identity) (string, error) {
	var overrideErr error
	if id.Override != "" {
		if _, ok := m.catalog.Get(id.Override); ok {
			return id.Override, nil
		}
		overrideErr = errors.ConfigError(id.Override, "override",
			fmt.Sprintf("language override %q does not exist in the catalog", id.Override))
	}

	if d, ok := m.matchPath(id.Path); ok {
		return d.Name, overrideErr
	}
	if d, ok := m.matchShebang(id.ShebangLine); ok {
		return d.Name, overrideErr
	}
	return m.catalog.Fallback().Name, overrideErr
}

// MatchPath resolves a path against the catalog's file patterns without the
// shebang or fallback stages. Used for filename-shaped injection hints.
func (m *Matcher) MatchPath(path string) (*catalog.Descriptor, bool) {
	return m.matchPath(path)
}

// MatchShebang resolves a shebang line to the descriptor owning the
// interpreter, if any.
func (m *Matcher) MatchShebang(line string) (*catalog.Descriptor, bool) {
	return m.matchShebang(line)
}

type pathCandidate struct {
	descriptor *catalog.Descriptor
	kind       catalog.PatternKind
	literal    int
}

// betterThan orders candidates by the documented specificity rules:
// directory-anchored literal > anchored glob > bare glob, then the longer
// literal portion, then catalog declaration order (earlier wins).
func (a pathCandidate) betterThan(b pathCandidate) bool {
	if a.kind != b.kind {
		return a.kind > b.kind
	}
	if a.literal != b.literal {
		return a.literal > b.literal
	}
	return a.descriptor.Index() < b.descriptor.Index()
}

func (m *Matcher) matchPath(path string) (*catalog.Descriptor, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, false
	}

	normalized := strings.TrimPrefix(filepath.ToSlash(filepath.Clean(path)), "/")
	base := filepath.Base(normalized)
	suffixes := pathSuffixes(normalized)

	var best pathCandidate
	found := false
	for _, d := range m.catalog.Descriptors() {
		for _, pattern := range d.FileTypes {
			if !matchFilePattern(pattern, base, suffixes) {
				continue
			}
			candidate := pathCandidate{descriptor: d, kind: pattern.Kind, literal: pattern.Literal}
			if !found || candidate.betterThan(best) {
				best = candidate
				found = true
			}
		}
	}
	if !found {
		return nil, false
	}
	return best.descriptor, true
}

func matchFilePattern(pattern catalog.FilePattern, base string, suffixes []string) bool {
	if pattern.Kind == catalog.PatternBare {
		return pattern.Glob.Match(base)
	}
	for _, suffix := range suffixes {
		if pattern.Glob.Match(suffix) {
			return true
		}
	}
	return false
}

// pathSuffixes yields every trailing component run, longest first, so an
// anchored pattern matches the path's tail regardless of where the project
// lives on disk.
func pathSuffixes(path string) []string {
	parts := strings.Split(path, "/")
	suffixes := make([]string, 0, len(parts))
	for i := 0; i < len(parts); i++ {
		suffixes = append(suffixes, strings.Join(parts[i:], "/"))
	}
	return suffixes
}

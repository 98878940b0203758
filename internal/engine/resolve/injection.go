package resolve

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"glot/internal/core/catalog"
)

// DefaultInjectionDepth bounds nested injection resolution. The source data
// carries no explicit bound, so a conservative one is fixed here; anything
// deeper keeps the language the span last resolved to.
const DefaultInjectionDepth = 8

// HintKind distinguishes the three shapes an injection hint can take.
type HintKind int

const (
	// HintName is a bare language name or tag ("rust", a fence info string).
	HintName HintKind = iota
	// HintFilename is a path-shaped hint resolved through file patterns.
	HintFilename
	// HintShebang is a full shebang line found inside the region.
	HintShebang
)

// Span is a half-open byte range in the host buffer.
type Span struct {
	Start uint32
	End   uint32
}

// Hint is the text a parsed region offers as evidence of an embedded
// language.
type Hint struct {
	Kind HintKind
	Text string
}

// Region is one hint region produced by the external parser: a comment
// node, a string holding embedded syntax, a fenced block, and so on.
type Region struct {
	Span    Span
	Hint    Hint
	Content []byte
}

// Injection is a resolved embedded-language span.
type Injection struct {
	Span        Span
	Language    string
	Depth       int
	Fingerprint string
}

// SubRegionsFunc asks the external parser for the hint regions found inside
// an already-resolved injection span, enabling recursive resolution. The
// engine never parses; it only schedules.
type SubRegionsFunc func(region Region, language string) []Region

// InjectionResolver discovers embedded-language spans within a parsed
// buffer. It is stateless; per-buffer memoization lives on ResolvedBuffer.
type InjectionResolver struct {
	catalog  *catalog.Catalog
	matcher  *Matcher
	maxDepth int
}

func NewInjectionResolver(c *catalog.Catalog, m *Matcher, maxDepth int) *InjectionResolver {
	if maxDepth <= 0 {
		maxDepth = DefaultInjectionDepth
	}
	return &InjectionResolver{catalog: c, matcher: m, maxDepth: maxDepth}
}

func (r *InjectionResolver) MaxDepth() int {
	return r.maxDepth
}

// Resolve walks the hint regions of a buffer, resolving each to an embedded
// language and recursing into sub-regions up to the depth bound. Resolved
// spans are memoized on buf keyed by (span, content fingerprint); entries
// whose region or content changed simply miss and are re-resolved, and
// entries no longer present are dropped. An empty region list is normal and
// yields no injections.
func (r *InjectionResolver) Resolve(buf *ResolvedBuffer, regions []Region, sub SubRegionsFunc) []Injection {
	retained := make(map[spanKey]string)
	injections := r.walk(buf, regions, sub, 1, retained)
	buf.replaceSpanCache(retained)
	buf.Injections = injections
	return injections
}

func (r *InjectionResolver) walk(buf *ResolvedBuffer, regions []Region, sub SubRegionsFunc, depth int, retained map[spanKey]string) []Injection {
	if depth > r.maxDepth {
		return nil
	}

	var out []Injection
	for _, region := range regions {
		fingerprint := Fingerprint(region.Content)
		key := spanKey{span: region.Span, fingerprint: fingerprint}

		language, ok := buf.cachedSpan(key)
		if !ok {
			d, matched := r.matchHint(region.Hint)
			if !matched {
				continue
			}
			language = d.Name
		}
		retained[key] = language

		out = append(out, Injection{
			Span:        region.Span,
			Language:    language,
			Depth:       depth,
			Fingerprint: fingerprint,
		})

		if sub != nil && depth < r.maxDepth {
			out = append(out, r.walk(buf, sub(region, language), sub, depth+1, retained)...)
		}
	}
	return out
}

// matchHint resolves one hint to a descriptor. Name hints are tested against
// every descriptor's injection regex in catalog declaration order and the
// first match wins; catalog authors order specific patterns before generic
// catch-alls. Filename and shebang hints reuse the pattern matcher.
func (r *InjectionResolver) matchHint(hint Hint) (d *catalog.Descriptor, ok bool) {
	defer func() {
		// A hint-matching failure is an invariant violation: load-time
		// validation already compiled every injection regex. Log and skip
		// the injection; buffer resolution is otherwise unaffected.
		if p := recover(); p != nil {
			slog.Error("injection hint matching failed, skipping injection",
				"hint", hint.Text, "error", p)
			d, ok = nil, false
		}
	}()

	switch hint.Kind {
	case HintFilename:
		return r.matcher.MatchPath(hint.Text)
	case HintShebang:
		return r.matcher.MatchShebang(hint.Text)
	default:
		if hint.Text == "" {
			return nil, false
		}
		for _, candidate := range r.catalog.Descriptors() {
			if candidate.InjectionRegex == nil {
				continue
			}
			if candidate.InjectionRegex.MatchString(hint.Text) {
				return candidate, true
			}
		}
		return nil, false
	}
}

// Fingerprint returns the content hash used for span memoization.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:8])
}

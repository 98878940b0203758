package resolve

import (
	"fmt"
	"testing"
)

const injectionConfig = `
[[language]]
name = "host"
scope = "source.host"
file-types = ["*.host"]

[[language]]
name = "sql"
scope = "source.sql"
injection-regex = "^sql$"

[[language]]
name = "markdown"
scope = "source.md"
file-types = ["*.md"]
injection-regex = "md|markdown"

[[language]]
name = "python"
scope = "source.python"
file-types = ["*.py"]
shebangs = ["python"]
injection-regex = "py(thon)?"

[[language]]
name = "catchall"
scope = "source.catchall"
injection-regex = ".+"
`

func newInjectionResolver(t *testing.T, maxDepth int) *InjectionResolver {
	t.Helper()
	c := mustCatalog(t, injectionConfig)
	return NewInjectionResolver(c, NewMatcher(c), maxDepth)
}

func TestInjectionFirstMatchDeclarationOrder(t *testing.T) {
	r := newInjectionResolver(t, 0)
	buf := NewResolvedBuffer("host")

	// "sql" matches both the sql descriptor and the catch-all; the earlier
	// declaration wins, not the longer match.
	injections := r.Resolve(buf, []Region{
		{Span: Span{0, 10}, Hint: Hint{Kind: HintName, Text: "sql"}, Content: []byte("select 1")},
	}, nil)

	if len(injections) != 1 || injections[0].Language != "sql" {
		t.Fatalf("injections = %+v, want one sql span", injections)
	}

	// Anything the specific regexes reject still lands on the catch-all.
	injections = r.Resolve(buf, []Region{
		{Span: Span{0, 10}, Hint: Hint{Kind: HintName, Text: "mystery"}, Content: []byte("?")},
	}, nil)
	if len(injections) != 1 || injections[0].Language != "catchall" {
		t.Fatalf("injections = %+v, want the catch-all", injections)
	}
}

func TestInjectionFilenameAndShebangHints(t *testing.T) {
	r := newInjectionResolver(t, 0)
	buf := NewResolvedBuffer("host")

	injections := r.Resolve(buf, []Region{
		{Span: Span{0, 5}, Hint: Hint{Kind: HintFilename, Text: "snippet.py"}, Content: []byte("pass")},
		{Span: Span{6, 20}, Hint: Hint{Kind: HintShebang, Text: "#!/usr/bin/env python"}, Content: []byte("pass")},
	}, nil)

	if len(injections) != 2 {
		t.Fatalf("expected 2 injections, got %+v", injections)
	}
	for _, inj := range injections {
		if inj.Language != "python" {
			t.Errorf("injection %+v, want python", inj)
		}
	}
}

func TestInjectionNoHintsIsNormal(t *testing.T) {
	r := newInjectionResolver(t, 0)
	buf := NewResolvedBuffer("host")

	if injections := r.Resolve(buf, nil, nil); len(injections) != 0 {
		t.Fatalf("no hint regions must mean no injections, got %+v", injections)
	}
	if buf.CachedSpanCount() != 0 {
		t.Errorf("cache must be empty, has %d entries", buf.CachedSpanCount())
	}
}

// Two descriptors whose injection regexes match each other's hint text must
// still terminate at the depth bound: the sub-region callback below yields a
// fresh mutually-referring region forever.
func TestMutualInjectionTerminatesAtDepthBound(t *testing.T) {
	config := `
[[language]]
name = "ping"
scope = "source.ping"
injection-regex = "^pong-says-ping$"

[[language]]
name = "pong"
scope = "source.pong"
injection-regex = "^ping-says-pong$"
`
	c := mustCatalog(t, config)

	for _, depth := range []int{3, 5, 8} {
		r := NewInjectionResolver(c, NewMatcher(c), depth)
		buf := NewResolvedBuffer("ping")

		calls := 0
		sub := func(region Region, language string) []Region {
			calls++
			next := "pong-says-ping"
			if language == "ping" {
				next = "ping-says-pong"
			}
			return []Region{{
				Span:    Span{region.Span.Start + 1, region.Span.End},
				Hint:    Hint{Kind: HintName, Text: next},
				Content: []byte(next),
			}}
		}

		injections := r.Resolve(buf, []Region{
			{Span: Span{0, 100}, Hint: Hint{Kind: HintName, Text: "pong-says-ping"}, Content: []byte("x")},
		}, sub)

		if len(injections) != depth {
			t.Fatalf("depth %d: got %d injections, want exactly %d", depth, len(injections), depth)
		}
		if calls != depth-1 {
			t.Fatalf("depth %d: callback ran %d times, want %d (O(D) steps)", depth, calls, depth-1)
		}
		deepest := injections[len(injections)-1]
		if deepest.Depth != depth {
			t.Errorf("deepest span depth = %d, want %d", deepest.Depth, depth)
		}
		if deepest.Language != "ping" && deepest.Language != "pong" {
			t.Errorf("deepest span lost its language: %+v", deepest)
		}
	}
}

func TestInjectionDepthSupportsAtLeastThreeLevels(t *testing.T) {
	r := newInjectionResolver(t, 0)
	if r.MaxDepth() < 3 {
		t.Fatalf("default depth bound %d must support at least 3 nested levels", r.MaxDepth())
	}
}

func TestInjectionSpanCacheInvalidation(t *testing.T) {
	r := newInjectionResolver(t, 0)
	buf := NewResolvedBuffer("host")

	regions := []Region{
		{Span: Span{0, 10}, Hint: Hint{Kind: HintName, Text: "sql"}, Content: []byte("select 1")},
		{Span: Span{20, 40}, Hint: Hint{Kind: HintName, Text: "markdown"}, Content: []byte("# title")},
	}
	first := r.Resolve(buf, regions, nil)
	if len(first) != 2 || buf.CachedSpanCount() != 2 {
		t.Fatalf("first pass: %+v (cache %d)", first, buf.CachedSpanCount())
	}

	// Edit only the second region's content: its entry misses and is
	// re-resolved; the first entry survives untouched.
	regions[1].Content = []byte("# new title")
	second := r.Resolve(buf, regions, nil)
	if len(second) != 2 || buf.CachedSpanCount() != 2 {
		t.Fatalf("second pass: %+v (cache %d)", second, buf.CachedSpanCount())
	}
	if second[0].Fingerprint != first[0].Fingerprint {
		t.Error("untouched region's fingerprint changed")
	}
	if second[1].Fingerprint == first[1].Fingerprint {
		t.Error("edited region's fingerprint did not change")
	}

	// Dropping a region drops exactly its cache entry.
	third := r.Resolve(buf, regions[:1], nil)
	if len(third) != 1 || buf.CachedSpanCount() != 1 {
		t.Fatalf("third pass: %+v (cache %d)", third, buf.CachedSpanCount())
	}
}

func TestInjectionResolutionIdempotent(t *testing.T) {
	r := newInjectionResolver(t, 0)
	buf := NewResolvedBuffer("host")

	regions := []Region{
		{Span: Span{0, 10}, Hint: Hint{Kind: HintName, Text: "sql"}, Content: []byte("select 1")},
		{Span: Span{20, 40}, Hint: Hint{Kind: HintName, Text: "md"}, Content: []byte("# t")},
	}
	first := fmt.Sprintf("%+v", r.Resolve(buf, regions, nil))
	second := fmt.Sprintf("%+v", r.Resolve(buf, regions, nil))
	if first != second {
		t.Fatalf("resolution not idempotent:\n%s\n%s", first, second)
	}
}

package resolve

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"glot/internal/core/catalog"
)

// RootFinder walks ancestor directories looking for a language's project
// root markers. It performs bounded filesystem existence checks only and is
// context-aware so a walk can be abandoned when its buffer closes.
type RootFinder struct {
	catalog *catalog.Catalog
	ceiling string
}

// NewRootFinder builds a finder; ceiling, when non-empty, bounds the upward
// walk (the ceiling directory itself is still tested).
func NewRootFinder(c *catalog.Catalog, ceiling string) *RootFinder {
	if ceiling != "" {
		ceiling = filepath.Clean(ceiling)
	}
	return &RootFinder{catalog: c, ceiling: ceiling}
}

// RootOf discovers the project root for path under the given language's
// markers. A missing root is a normal outcome, not an error: workspace
// features degrade gracefully without one.
func (f *RootFinder) RootOf(ctx context.Context, path, language string) (string, bool) {
	d, ok := f.catalog.Get(language)
	if !ok || len(d.Roots) == 0 {
		return "", false
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}

	dir := filepath.Dir(abs)
	for {
		if ctx.Err() != nil {
			return "", false
		}
		if dirHasMarker(dir, d.Roots) {
			return dir, true
		}
		if dir == f.ceiling {
			return "", false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// dirHasMarker tests the directory against every marker in declared order.
// Markers without wildcards are a single stat; glob markers scan the
// directory listing once.
func dirHasMarker(dir string, markers []string) bool {
	var entries []os.DirEntry
	listed := false

	for _, marker := range markers {
		if !strings.ContainsAny(marker, "*?[{") {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return true
			}
			continue
		}

		g, err := glob.Compile(marker)
		if err != nil {
			continue
		}
		if !listed {
			entries, _ = os.ReadDir(dir)
			listed = true
		}
		for _, entry := range entries {
			if g.Match(entry.Name()) {
				return true
			}
		}
	}
	return false
}

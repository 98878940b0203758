package app

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"glot/internal/core/catalog"
	"glot/internal/core/config"
	"glot/internal/data/history"
	"glot/internal/engine/binder"
	"glot/internal/engine/grammar"
	"glot/internal/engine/resolve"
	"glot/internal/shared/observability"
)

// App wires the catalog, resolvers and tooling binder into the service the
// editor core and the CLI consume. Everything behind it is immutable after
// New, so App is safe for concurrent use.
type App struct {
	Config *config.Config

	catalog  *catalog.Catalog
	matcher  *resolve.Matcher
	roots    *resolve.RootFinder
	injector *resolve.InjectionResolver
	binder   *binder.Binder
	grammars *grammar.Loader
	history  *history.Store
}

// Resolution is the full decision for one file, as reported by the CLI and
// recorded in the history store.
type Resolution struct {
	Path      string
	Language  string
	Grammar   string
	Root      string
	RootFound bool
	Tooling   binder.Tooling
	Duration  time.Duration
}

func New(cfg *config.Config) (*App, error) {
	var cat *catalog.Catalog
	var err error
	if strings.TrimSpace(cfg.LanguagesPath) != "" {
		cat, err = catalog.LoadFile(cfg.LanguagesPath)
	} else {
		cat, err = catalog.LoadEmbedded()
	}
	if err != nil {
		return nil, fmt.Errorf("load language catalog: %w", err)
	}

	matcher := resolve.NewMatcher(cat)
	a := &App{
		Config:   cfg,
		catalog:  cat,
		matcher:  matcher,
		roots:    resolve.NewRootFinder(cat, cfg.Resolver.RootCeiling),
		injector: resolve.NewInjectionResolver(cat, matcher, cfg.Resolver.InjectionDepth),
		binder:   binder.New(cat),
		grammars: grammar.NewLoader(),
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("open resolution history: %w", err)
		}
		a.history = store
	}

	return a, nil
}

func (a *App) Close() error {
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}

func (a *App) Catalog() *catalog.Catalog {
	return a.catalog
}

func (a *App) History() *history.Store {
	return a.history
}

// ResolveFile performs the full decision for a file on disk: language,
// concrete grammar, project root and tooling bindings. The decision is
// recorded in the history store when one is open. Missing files are not an
// error; the identity resolves from the path alone.
func (a *App) ResolveFile(ctx context.Context, path string, override string) (Resolution, error) {
	ctx, span := observability.Tracer.Start(ctx, "resolve_file")
	defer span.End()

	started := time.Now()
	identity := resolve.Identity{
		Path:        path,
		ShebangLine: readShebang(path),
		Override:    override,
	}

	language, err := a.matcher.ResolveChecked(identity)
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{Path: path, Language: language}
	res.Grammar, _ = a.catalog.GrammarID(language)
	res.Root, res.RootFound = a.RootOf(ctx, path, language)
	res.Tooling, err = a.binder.ToolingFor(language)
	if err != nil {
		return Resolution{}, err
	}
	res.Duration = time.Since(started)

	observability.ResolutionDuration.WithLabelValues(language).Observe(res.Duration.Seconds())
	if identity.Override == "" && language == a.catalog.Fallback().Name {
		observability.ResolutionFallbackTotal.Inc()
	}

	if a.history != nil {
		record := history.Record{
			Path:       path,
			Language:   res.Language,
			Grammar:    res.Grammar,
			Root:       res.Root,
			Injections: 0,
			Duration:   res.Duration,
		}
		if err := a.history.Save(record); err != nil {
			return res, fmt.Errorf("record resolution: %w", err)
		}
	}
	return res, nil
}

// readShebang returns the first line of the file when it is a shebang line,
// and the empty string otherwise. Unreadable files resolve from path alone.
func readShebang(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 256), 256)
	if !scanner.Scan() {
		return ""
	}
	line := scanner.Text()
	if !strings.HasPrefix(line, "#!") {
		return ""
	}
	return line
}

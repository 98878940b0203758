package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"glot/internal/core/app"
	"glot/internal/core/config"
	"glot/internal/core/watcher"
	"glot/internal/shared/observability"
)

var (
	configPath    = flag.String("config", "./glot.toml", "Path to config file")
	override      = flag.String("language", "", "Force a language instead of resolving")
	watch         = flag.Bool("watch", false, "Watch the given paths and re-resolve on change")
	stats         = flag.Bool("stats", false, "Print resolution history stats and exit")
	listLanguages = flag.Bool("languages", false, "List catalog languages and exit")
	listGrammars  = flag.Bool("grammars", false, "List grammars with their pinned sources and exit")
	verbose       = flag.Bool("verbose", false, "Enable verbose logging")
	version       = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "0.3.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("glot v%s\n", VERSION)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath == "./glot.toml" && os.IsNotExist(err) {
			cfg = config.Default()
		} else {
			slog.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}

	ctx := context.Background()
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(ctx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	a, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	switch {
	case *listLanguages:
		printLanguages(a)
		return
	case *listGrammars:
		printGrammars(a)
		return
	case *stats:
		if err := printStats(a); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: glot [flags] <path>...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if *watch {
		if err := runWatch(ctx, cfg, a, flag.Args()); err != nil {
			slog.Error("watch failed", "error", err)
			os.Exit(1)
		}
		return
	}

	for _, path := range flag.Args() {
		res, err := a.ResolveFile(ctx, path, *override)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			os.Exit(1)
		}
		printResolution(a, res)
	}
}

func runWatch(ctx context.Context, cfg *config.Config, a *app.App, paths []string) error {
	var metricsServer *observability.Server
	if cfg.Observability.MetricsAddr != "" {
		metricsServer = observability.NewServer(cfg.Observability.MetricsAddr, func() observability.HealthStatus {
			return observability.HealthStatus{
				Status:    "up",
				Languages: len(a.Catalog().Descriptors()),
			}
		})
		if err := metricsServer.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = metricsServer.Stop(stopCtx)
		}()
	}

	w, err := watcher.New(cfg.Watch.Debounce, cfg.Watch.Exclude.Dirs, cfg.Watch.Exclude.Files, func(changed []string) {
		for _, path := range changed {
			res, err := a.ResolveFile(ctx, path, "")
			if err != nil {
				slog.Warn("resolution failed", "path", path, "error", err)
				continue
			}
			slog.Info("resolved",
				"path", res.Path,
				"language", res.Language,
				"grammar", res.Grammar,
				"root", res.Root,
				"duration", res.Duration)
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(paths); err != nil {
		return err
	}
	slog.Info("watching", "paths", strings.Join(paths, ", "), "debounce", cfg.Watch.Debounce)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	return nil
}

func printResolution(a *app.App, res app.Resolution) {
	fmt.Printf("%s\n", res.Path)
	fmt.Printf("  language:  %s\n", res.Language)

	if res.Grammar != "" {
		suffix := ""
		if _, ok := a.NativeGrammar(res.Language); ok {
			suffix = " (native)"
		}
		fmt.Printf("  grammar:   %s%s\n", res.Grammar, suffix)
	}

	if res.RootFound {
		fmt.Printf("  root:      %s\n", res.Root)
	}
	if len(res.Tooling.LanguageServers) > 0 {
		fmt.Printf("  servers:   %s\n", strings.Join(res.Tooling.LanguageServers, ", "))
	}
	if res.Tooling.Formatter != nil {
		formatter := res.Tooling.Formatter.Command
		if len(res.Tooling.Formatter.Args) > 0 {
			formatter += " " + strings.Join(res.Tooling.Formatter.Args, " ")
		}
		fmt.Printf("  formatter: %s\n", formatter)
	}
	if len(res.Tooling.Comment.Line) > 0 {
		fmt.Printf("  comment:   %s\n", strings.Join(res.Tooling.Comment.Line, " "))
	}
	if res.Tooling.Indent.Unit != "" {
		fmt.Printf("  indent:    %q (tab-width %d)\n", res.Tooling.Indent.Unit, res.Tooling.Indent.TabWidth)
	}
}

func printLanguages(a *app.App) {
	for _, d := range a.Catalog().Descriptors() {
		marker := " "
		if d.InjectionOnly() {
			marker = "*"
		}
		grammarID, _ := a.GrammarIDFor(d.Name)
		line := fmt.Sprintf("%s %-12s", marker, d.Name)
		if d.Icon != "" {
			line += " " + d.Icon
		}
		if grammarID != "" && grammarID != d.Name {
			line += fmt.Sprintf(" (grammar: %s)", grammarID)
		}
		fmt.Println(line)
	}
	fmt.Println("\n* injection-only")
}

func printGrammars(a *app.App) {
	native := make(map[string]bool)
	for _, id := range a.NativeGrammarIDs() {
		native[id] = true
	}

	ids := make([]string, 0)
	seen := make(map[string]bool)
	for _, d := range a.Catalog().Descriptors() {
		grammarID, ok := a.GrammarIDFor(d.Name)
		if !ok || seen[grammarID] {
			continue
		}
		seen[grammarID] = true
		ids = append(ids, grammarID)
	}
	sort.Strings(ids)

	for _, id := range ids {
		source, ok := a.GrammarSourceFor(id)
		if !ok {
			continue
		}
		line := fmt.Sprintf("%-12s", id)
		if native[id] {
			line += " [native]"
		}
		switch {
		case source.Git != "":
			line += fmt.Sprintf(" %s @ %s", source.Git, source.Rev)
			if source.Subpath != "" {
				line += fmt.Sprintf(" (%s)", source.Subpath)
			}
		case source.Path != "":
			line += " " + source.Path
		}
		fmt.Println(line)
	}
}

func printStats(a *app.App) error {
	store := a.History()
	if store == nil {
		return fmt.Errorf("history is disabled; enable [history] in the config to collect stats")
	}

	counts, err := store.LanguageCounts(time.Now().Add(-30 * 24 * time.Hour))
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		fmt.Println("no resolutions recorded in the last 30 days")
		return nil
	}

	fmt.Println("resolutions by language (last 30 days):")
	for _, c := range counts {
		fmt.Printf("  %-12s %d\n", c.Language, c.Count)
	}

	recent, err := store.Recent(10)
	if err != nil {
		return err
	}
	fmt.Println("\nmost recent:")
	for _, r := range recent {
		fmt.Printf("  %s  %-12s %s\n", r.ResolvedAt.Format(time.RFC3339), r.Language, r.Path)
	}
	return nil
}

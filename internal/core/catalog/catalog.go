package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"

	"glot/internal/core/errors"
)

// FallbackLanguage is the built-in plain text language every unresolvable
// buffer falls back to. It always exists, even when the loaded configuration
// does not declare it.
const FallbackLanguage = "text"

//go:embed languages.toml
var embeddedConfig string

type PatternKind int

const (
	// PatternBare matches against the file's base name only ("*.rs", "Makefile").
	PatternBare PatternKind = iota
	// PatternAnchored contains a separator and wildcards ("*/build.rs").
	PatternAnchored
	// PatternLiteralPath contains a separator and no wildcards (".cargo/config").
	PatternLiteralPath
)

// FilePattern is one compiled file-identity pattern. Anchored patterns are
// compiled separator-aware so a single * never crosses a path component.
type FilePattern struct {
	Raw     string
	Kind    PatternKind
	Glob    glob.Glob
	Literal int // count of non-wildcard characters, used as a tie break
}

type IndentSpec struct {
	Unit     string
	TabWidth int
}

type FormatterCommand struct {
	Command string
	Args    []string
}

// GrammarSource pins the external location a grammar is fetched from by the
// out-of-process provisioning step. Either a local path or a git remote with
// a revision pin.
type GrammarSource struct {
	Git     string
	Rev     string
	Subpath string
	Path    string
}

// Descriptor is one validated, immutable language record.
type Descriptor struct {
	Name                        string
	Scope                       string
	FileTypes                   []FilePattern
	Shebangs                    []string
	InjectionRegex              *regexp.Regexp
	Grammar                     string // raw reference; use Catalog.GrammarID for the concrete id
	Roots                       []string
	Comment                     CommentModel
	Indent                      IndentSpec
	LanguageServers             []string
	AutoFormat                  bool
	Formatter                   *FormatterCommand
	PersistentDiagnosticSources []string
	Icon                        string
	Color                       string

	index int // declaration order in the loaded configuration
}

// InjectionOnly reports whether the descriptor is reachable solely through
// embedding (no file or shebang patterns).
func (d *Descriptor) InjectionOnly() bool {
	return len(d.FileTypes) == 0 && len(d.Shebangs) == 0
}

// Index returns the descriptor's declaration position, the final tie break
// for equally specific matches.
func (d *Descriptor) Index() int {
	return d.index
}

// Catalog is the immutable language table. It is constructed once at process
// start, validated, and then shared by reference across all open buffers
// without locking. Nothing mutates it after Load returns.
type Catalog struct {
	descriptors     []*Descriptor
	byName          map[string]*Descriptor
	grammarSources  map[string]GrammarSource
	concreteGrammar map[string]string
	fallback        *Descriptor
}

// raw TOML shapes; unknown keys are ignored by the decoder, which keeps the
// format forward compatible.
type fileConfig struct {
	Language []languageConfig `toml:"language"`
	Grammar  []grammarConfig  `toml:"grammar"`
}

type languageConfig struct {
	Name                        string             `toml:"name"`
	Scope                       string             `toml:"scope"`
	FileTypes                   []string           `toml:"file-types"`
	Shebangs                    []string           `toml:"shebangs"`
	InjectionRegex              string             `toml:"injection-regex"`
	Grammar                     string             `toml:"grammar"`
	Roots                       []string           `toml:"roots"`
	CommentToken                commentTokens      `toml:"comment-token"`
	CommentTokens               commentTokens      `toml:"comment-tokens"`
	BlockCommentTokens          blockCommentTokens `toml:"block-comment-tokens"`
	Indent                      indentConfig       `toml:"indent"`
	LanguageServers             []string           `toml:"language-servers"`
	AutoFormat                  bool               `toml:"auto-format"`
	Formatter                   *formatterConfig   `toml:"formatter"`
	PersistentDiagnosticSources []string           `toml:"persistent-diagnostic-sources"`
	Icon                        string             `toml:"icon"`
	Color                       string             `toml:"color"`
}

type indentConfig struct {
	Unit     string `toml:"unit"`
	TabWidth int    `toml:"tab-width"`
}

type formatterConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

type grammarConfig struct {
	Name   string              `toml:"name"`
	Source grammarSourceConfig `toml:"source"`
}

type grammarSourceConfig struct {
	Git     string `toml:"git"`
	Rev     string `toml:"rev"`
	Subpath string `toml:"subpath"`
	Path    string `toml:"path"`
}

// LoadEmbedded builds the catalog from the configuration compiled into the
// binary.
func LoadEmbedded() (*Catalog, error) {
	return Parse(embeddedConfig)
}

// LoadFile builds the catalog from an on-disk configuration, used to replace
// the embedded table wholesale.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfig, "read language configuration")
	}
	return Parse(string(data))
}

// Parse decodes and validates a language configuration. Every validation
// failure is a ConfigError naming the offending descriptor and field; the
// caller is expected to abort startup on any error.
func Parse(data string) (*Catalog, error) {
	var cfg fileConfig
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfig, "decode language configuration")
	}
	return build(cfg)
}

func build(cfg fileConfig) (*Catalog, error) {
	c := &Catalog{
		byName:          make(map[string]*Descriptor, len(cfg.Language)),
		grammarSources:  make(map[string]GrammarSource, len(cfg.Grammar)),
		concreteGrammar: make(map[string]string, len(cfg.Language)),
	}

	for i, g := range cfg.Grammar {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			return nil, errors.ConfigError("", "grammar.name", fmt.Sprintf("grammar entry %d is missing a name", i))
		}
		if _, dup := c.grammarSources[name]; dup {
			return nil, errors.ConfigError(name, "grammar.name", "duplicate grammar entry")
		}
		src := GrammarSource(g.Source)
		if src.Path == "" {
			if src.Git == "" {
				return nil, errors.ConfigError(name, "grammar.source", "grammar source must declare git or path")
			}
			if src.Rev == "" {
				return nil, errors.ConfigError(name, "grammar.source.rev", "git grammar source must pin a revision")
			}
		}
		c.grammarSources[name] = src
	}

	patternOwner := make(map[string]string)
	for i, lang := range cfg.Language {
		name := strings.TrimSpace(lang.Name)
		if name == "" {
			return nil, errors.ConfigError("", "name", fmt.Sprintf("language entry %d is missing a name", i))
		}
		if _, dup := c.byName[name]; dup {
			return nil, errors.ConfigError(name, "name", "duplicate language id")
		}

		d := &Descriptor{
			Name:                        name,
			Scope:                       strings.TrimSpace(lang.Scope),
			Shebangs:                    normalizeShebangs(lang.Shebangs),
			Grammar:                     strings.TrimSpace(lang.Grammar),
			Roots:                       dedupeStrings(lang.Roots),
			Comment:                     normalizeCommentModel(append(lang.CommentToken, lang.CommentTokens...), lang.BlockCommentTokens),
			Indent:                      IndentSpec(lang.Indent),
			LanguageServers:             dedupeStrings(lang.LanguageServers),
			AutoFormat:                  lang.AutoFormat,
			PersistentDiagnosticSources: dedupeStrings(lang.PersistentDiagnosticSources),
			Icon:                        lang.Icon,
			Color:                       lang.Color,
			index:                       i,
		}
		if lang.Formatter != nil {
			d.Formatter = &FormatterCommand{Command: lang.Formatter.Command, Args: append([]string(nil), lang.Formatter.Args...)}
		}

		for _, raw := range lang.FileTypes {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			if owner, taken := patternOwner[raw]; taken && owner != name {
				return nil, errors.ConfigError(name, "file-types",
					fmt.Sprintf("file pattern %q already owned by %q", raw, owner))
			}
			patternOwner[raw] = name
			pattern, err := compileFilePattern(raw)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeConfig, fmt.Sprintf("invalid file pattern %q for %s", raw, name))
			}
			d.FileTypes = append(d.FileTypes, pattern)
		}

		if regex := strings.TrimSpace(lang.InjectionRegex); regex != "" {
			compiled, err := regexp.Compile(regex)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeConfig, fmt.Sprintf("invalid injection-regex for %s", name))
			}
			d.InjectionRegex = compiled
		}

		if d.InjectionOnly() && d.Scope == "" {
			return nil, errors.ConfigError(name, "scope", "injection-only language must declare a scope")
		}

		c.descriptors = append(c.descriptors, d)
		c.byName[name] = d
	}

	if err := c.resolveGrammarChains(); err != nil {
		return nil, err
	}

	c.fallback = c.byName[FallbackLanguage]
	if c.fallback == nil {
		c.fallback = &Descriptor{
			Name:  FallbackLanguage,
			Scope: "text.plain",
			index: len(c.descriptors),
		}
		c.descriptors = append(c.descriptors, c.fallback)
		c.byName[FallbackLanguage] = c.fallback
	}

	return c, nil
}

// Descriptors returns the descriptor table in declaration order. Callers must
// treat the slice as read-only.
func (c *Catalog) Descriptors() []*Descriptor {
	return c.descriptors
}

func (c *Catalog) Get(name string) (*Descriptor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// Fallback returns the built-in plain text descriptor.
func (c *Catalog) Fallback() *Descriptor {
	return c.fallback
}

// GrammarID returns the concrete grammar id for a language, resolved through
// any alias chain at load time. Languages without a grammar (plain text)
// report ok=false.
func (c *Catalog) GrammarID(language string) (string, bool) {
	id, ok := c.concreteGrammar[language]
	return id, ok
}

// GrammarSourceFor returns the pinned external source for a concrete grammar
// id, consumed by the out-of-scope fetch/build step.
func (c *Catalog) GrammarSourceFor(grammarID string) (GrammarSource, bool) {
	src, ok := c.grammarSources[grammarID]
	return src, ok
}

func compileFilePattern(raw string) (FilePattern, error) {
	kind := PatternBare
	if strings.ContainsRune(raw, '/') {
		kind = PatternAnchored
		if !strings.ContainsAny(raw, "*?[{") {
			kind = PatternLiteralPath
		}
	}

	var g glob.Glob
	var err error
	if kind == PatternBare {
		g, err = glob.Compile(raw)
	} else {
		g, err = glob.Compile(raw, '/')
	}
	if err != nil {
		return FilePattern{}, err
	}

	return FilePattern{Raw: raw, Kind: kind, Glob: g, Literal: literalLength(raw)}, nil
}

func literalLength(pattern string) int {
	count := 0
	for _, r := range pattern {
		switch r {
		case '*', '?', '[', ']', '{', '}', ',':
		default:
			count++
		}
	}
	return count
}

func normalizeShebangs(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		raw := strings.TrimSpace(value)
		if raw == "" || seen[raw] {
			continue
		}
		seen[raw] = true
		out = append(out, raw)
	}
	return out
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		raw := strings.TrimSpace(value)
		if raw == "" || seen[raw] {
			continue
		}
		seen[raw] = true
		out = append(out, raw)
	}
	return out
}



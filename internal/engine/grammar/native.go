package grammar

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Loader holds the tree-sitter languages compiled into the binary, keyed by
// concrete grammar id. Grammars outside this set are provisioned externally
// from their pinned catalog sources; the loader only answers for what it has.
type Loader struct {
	languages map[string]*sitter.Language
}

func NewLoader() *Loader {
	l := &Loader{languages: make(map[string]*sitter.Language)}

	l.languages["go"] = sitter.NewLanguage(tree_sitter_go.Language())
	l.languages["python"] = sitter.NewLanguage(tree_sitter_python.Language())
	l.languages["rust"] = sitter.NewLanguage(tree_sitter_rust.Language())
	l.languages["javascript"] = sitter.NewLanguage(tree_sitter_javascript.Language())
	l.languages["typescript"] = sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	l.languages["tsx"] = sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
	l.languages["html"] = sitter.NewLanguage(tree_sitter_html.Language())
	l.languages["css"] = sitter.NewLanguage(tree_sitter_css.Language())
	l.languages["java"] = sitter.NewLanguage(tree_sitter_java.Language())

	return l
}

// Language returns the compiled-in tree-sitter language for a grammar id.
func (l *Loader) Language(grammarID string) (*sitter.Language, bool) {
	lang, ok := l.languages[grammarID]
	return lang, ok
}

// Available lists the grammar ids with compiled-in languages.
func (l *Loader) Available() []string {
	ids := make([]string, 0, len(l.languages))
	for id := range l.languages {
		ids = append(ids, id)
	}
	return ids
}

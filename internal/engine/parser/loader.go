package parser

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// GrammarLoader owns the tree-sitter language grammars and one parser pool
// per language. Grammars are process-wide immutable once loaded.
type GrammarLoader struct {
	languages map[Language]*sitter.Language
	pools     map[Language]*ParserPool
}

func NewGrammarLoader() (*GrammarLoader, error) {
	gl := &GrammarLoader{
		languages: make(map[Language]*sitter.Language),
		pools:     make(map[Language]*ParserPool),
	}

	for _, lang := range Languages() {
		var grammar *sitter.Language
		switch lang {
		case LangJavaScript:
			grammar = sitter.NewLanguage(tree_sitter_javascript.Language())
		case LangTypeScript:
			grammar = sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
		case LangTSX:
			grammar = sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
		case LangPython:
			grammar = sitter.NewLanguage(tree_sitter_python.Language())
		case LangRust:
			grammar = sitter.NewLanguage(tree_sitter_rust.Language())
		default:
			return nil, fmt.Errorf("no grammar binding for language %q", lang)
		}
		if grammar == nil {
			return nil, fmt.Errorf("grammar for %q failed to load", lang)
		}
		gl.languages[lang] = grammar
		gl.pools[lang] = NewParserPool(grammar)
	}

	return gl, nil
}

// Grammar returns the grammar for a language, or nil when unsupported.
func (gl *GrammarLoader) Grammar(lang Language) *sitter.Language {
	return gl.languages[lang]
}

// Pool returns the parser pool for a language, or nil when unsupported.
func (gl *GrammarLoader) Pool(lang Language) *ParserPool {
	return gl.pools[lang]
}

package parser

import (
	"errors"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"lattice/internal/shared/observability"
)

// ParseResult hands a concrete syntax tree to the scope builder. The tree
// owns C-side memory; callers must Close it once the scope forest is built.
type ParseResult struct {
	Path     string
	Language Language
	Source   []byte
	Tree     *sitter.Tree
}

func (r *ParseResult) Root() *sitter.Node {
	if r == nil || r.Tree == nil {
		return nil
	}
	return r.Tree.RootNode()
}

func (r *ParseResult) Close() {
	if r != nil && r.Tree != nil {
		r.Tree.Close()
		r.Tree = nil
	}
}

// Parser turns source bytes into syntax trees. It never interprets the tree
// itself; that is the scope builder's job.
type Parser struct {
	loader *GrammarLoader
}

func NewParser(loader *GrammarLoader) *Parser {
	return &Parser{loader: loader}
}

// IsSupportedPath reports whether the path maps to a known language.
func (p *Parser) IsSupportedPath(path string) bool {
	return DetectLanguage(path) != LangUnknown
}

// ParseFile parses content as the language detected from path. A partially
// erroneous source still yields a tree; tree-sitter marks broken regions
// with ERROR nodes and the scope builder tolerates them.
func (p *Parser) ParseFile(path string, content []byte) (*ParseResult, error) {
	lang := DetectLanguage(path)
	if lang == LangUnknown {
		return nil, errors.New("unsupported language")
	}

	pool := p.loader.Pool(lang)
	if pool == nil {
		return nil, errors.New("grammar not loaded: " + lang.String())
	}

	sp := pool.Get()
	defer pool.Put(sp)

	start := time.Now()
	tree := sp.Parse(content, nil)
	observability.ParsingDuration.WithLabelValues(lang.String()).Observe(time.Since(start).Seconds())
	if tree == nil {
		return nil, errors.New("parse failed")
	}

	return &ParseResult{
		Path:     path,
		Language: lang,
		Source:   content,
		Tree:     tree,
	}, nil
}

package scope

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"lattice/internal/engine/parser"
	"lattice/internal/shared/observability"
)

// BuildFile converts one file's syntax tree into a scope forest with
// per-scope symbol tables, plus the file's import/export/reference records.
//
// A malformed or partial tree yields a best-effort partial forest; unknown
// node shapes bump FileAnalysis.Malformed and the walk continues.
func BuildFile(res *parser.ParseResult) *FileAnalysis {
	b := newBuilder(res)

	root := res.Root()
	if root != nil {
		switch res.Language {
		case parser.LangJavaScript, parser.LangTypeScript, parser.LangTSX:
			(&ecmaWalker{b: b, lang: res.Language}).walkChildren(root)
		case parser.LangPython:
			(&pythonWalker{b: b}).walkChildren(root)
		case parser.LangRust:
			(&rustWalker{b: b}).walkChildren(root)
		}
	}

	lang := res.Language.String()
	observability.ScopesBuilt.WithLabelValues(lang).Add(float64(len(b.file.Scopes)))
	symbols := 0
	for _, s := range b.file.Scopes {
		symbols += len(s.Symbols)
	}
	observability.SymbolsIndexed.WithLabelValues(lang).Add(float64(symbols))

	return b.file
}

type builder struct {
	source []byte
	file   *FileAnalysis
	stack  []*Scope
}

func newBuilder(res *parser.ParseResult) *builder {
	file := &FileAnalysis{
		Path:     res.Path,
		Language: res.Language,
		Scopes:   make(map[ScopeID]*Scope),
	}

	rootLoc := Location{File: res.Path, StartLine: 1, StartColumn: 1}
	if root := res.Root(); root != nil {
		rootLoc = nodeLocation(res.Path, root)
	}
	module := &Scope{
		ID:       DeriveScopeID(ScopeModule, "", rootLoc),
		Kind:     ScopeModule,
		Symbols:  make(map[string]SymbolEntry),
		Location: rootLoc,
	}
	file.Root = module.ID
	file.Scopes[module.ID] = module

	return &builder{
		source: res.Source,
		file:   file,
		stack:  []*Scope{module},
	}
}

func (b *builder) current() *Scope {
	return b.stack[len(b.stack)-1]
}

func (b *builder) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(b.source[node.StartByte():node.EndByte()])
}

func (b *builder) location(node *sitter.Node) Location {
	return nodeLocation(b.file.Path, node)
}

func nodeLocation(path string, node *sitter.Node) Location {
	start := node.StartPosition()
	end := node.EndPosition()
	return Location{
		File:        path,
		StartLine:   int(start.Row) + 1,
		StartColumn: int(start.Column) + 1,
		EndLine:     int(end.Row) + 1,
		EndColumn:   int(end.Column) + 1,
	}
}

// openScope pushes a child scope whose region starts at the given node,
// typically the body's opening delimiter rather than the declaration keyword.
func (b *builder) openScope(kind ScopeKind, name string, node *sitter.Node, isMethod bool) *Scope {
	loc := b.location(node)
	parent := b.current()
	s := &Scope{
		ID:       DeriveScopeID(kind, name, loc),
		Kind:     kind,
		Name:     name,
		Parent:   parent.ID,
		Symbols:  make(map[string]SymbolEntry),
		Location: loc,
		IsMethod: isMethod,
	}
	parent.Children = append(parent.Children, s.ID)
	b.file.Scopes[s.ID] = s
	b.stack = append(b.stack, s)
	return s
}

func (b *builder) closeScope() {
	if len(b.stack) > 1 {
		b.stack = b.stack[:len(b.stack)-1]
	}
}

// declare registers a symbol in the current scope. The first declaration of a
// name wins; a later same-named entry in the same scope is dropped, keeping
// results deterministic.
func (b *builder) declare(entry SymbolEntry) {
	b.declareIn(b.current(), entry)
}

func (b *builder) declareIn(s *Scope, entry SymbolEntry) {
	if entry.Name == "" {
		return
	}
	if existing, ok := s.Symbols[entry.Name]; ok && existing.Location.Before(entry.Location) {
		return
	}
	s.Symbols[entry.Name] = entry
}

// declareHoisted registers a var-style binding in the nearest enclosing
// function or module scope, skipping block scopes.
func (b *builder) declareHoisted(entry SymbolEntry) {
	entry.Hoisted = true
	for i := len(b.stack) - 1; i >= 0; i-- {
		s := b.stack[i]
		if s.Kind == ScopeFunction || s.Kind == ScopeModule {
			b.declareIn(s, entry)
			return
		}
	}
	b.declareIn(b.stack[0], entry)
}

func (b *builder) addReference(name string, path []string, node *sitter.Node) {
	if name == "" {
		return
	}
	b.file.References = append(b.file.References, Reference{
		Name:     name,
		Path:     path,
		Location: b.location(node),
		Scope:    b.current().ID,
	})
}

func (b *builder) addImport(imp Import) {
	b.file.Imports = append(b.file.Imports, imp)
}

func (b *builder) addExport(exp Export) {
	b.file.Exports = append(b.file.Exports, exp)
}

func (b *builder) markMalformed() {
	b.file.Malformed++
}

// fieldChild returns the named-field child, nil-safe.
func fieldChild(node *sitter.Node, field string) *sitter.Node {
	if node == nil {
		return nil
	}
	return node.ChildByFieldName(field)
}

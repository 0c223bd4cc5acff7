package scope

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type rustKind int

const (
	rustOther rustKind = iota
	rustUseDeclaration
	rustFunctionItem
	rustStructItem
	rustEnumItem
	rustTraitItem
	rustImplItem
	rustModItem
	rustTypeItem
	rustConstItem
	rustStaticItem
	rustLetDeclaration
	rustBlock
	rustCallExpression
	rustMacroInvocation
	rustLineComment
	rustBlockComment
	rustError
)

var rustKinds = map[string]rustKind{
	"use_declaration":  rustUseDeclaration,
	"function_item":    rustFunctionItem,
	"struct_item":      rustStructItem,
	"enum_item":        rustEnumItem,
	"trait_item":       rustTraitItem,
	"impl_item":        rustImplItem,
	"mod_item":         rustModItem,
	"type_item":        rustTypeItem,
	"const_item":       rustConstItem,
	"static_item":      rustStaticItem,
	"let_declaration":  rustLetDeclaration,
	"block":            rustBlock,
	"call_expression":  rustCallExpression,
	"macro_invocation": rustMacroInvocation,
	"line_comment":     rustLineComment,
	"block_comment":    rustBlockComment,
	"ERROR":            rustError,
}

type rustWalker struct {
	b *builder
}

func (w *rustWalker) walkChildren(node *sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		w.walk(node.Child(i))
	}
}

func (w *rustWalker) walk(node *sitter.Node) {
	if node == nil {
		return
	}

	switch rustKinds[node.Kind()] {
	case rustUseDeclaration:
		w.handleUse(node)
	case rustFunctionItem:
		w.handleFunction(node, w.b.current().Kind == ScopeClass)
	case rustStructItem:
		w.handleNamedBody(node, SymbolStruct)
	case rustEnumItem:
		w.handleNamedBody(node, SymbolEnum)
	case rustTraitItem:
		w.handleNamedBody(node, SymbolTrait)
	case rustImplItem:
		w.handleImpl(node)
	case rustModItem:
		w.handleMod(node)
	case rustTypeItem:
		w.b.declare(SymbolEntry{
			Name:     w.b.text(fieldChild(node, "name")),
			Kind:     SymbolTypeAlias,
			Location: w.b.location(node),
			Exported: rustPub(w.b, node),
		})
	case rustConstItem, rustStaticItem:
		w.b.declare(SymbolEntry{
			Name:     w.b.text(fieldChild(node, "name")),
			Kind:     SymbolConstant,
			Location: w.b.location(node),
			Exported: rustPub(w.b, node),
		})
		if value := fieldChild(node, "value"); value != nil {
			w.walk(value)
		}
	case rustLetDeclaration:
		for _, ident := range rustPatternIdentifiers(fieldChild(node, "pattern")) {
			w.b.declare(SymbolEntry{
				Name:     w.b.text(ident),
				Kind:     SymbolVariable,
				Location: w.b.location(ident),
			})
		}
		if value := fieldChild(node, "value"); value != nil {
			w.walk(value)
		}
	case rustBlock:
		w.b.openScope(ScopeBlock, "", node, false)
		w.walkChildren(node)
		w.b.closeScope()
	case rustCallExpression:
		w.handleCall(node)
	case rustMacroInvocation:
		if macro := fieldChild(node, "macro"); macro != nil && macro.Kind() == "identifier" {
			w.b.addReference(w.b.text(macro)+"!", nil, macro)
		}
		w.walkChildren(node)
	case rustLineComment, rustBlockComment:
		// skip
	case rustError:
		w.b.markMalformed()
		w.walkChildren(node)
	default:
		w.walkChildren(node)
	}
}

func (w *rustWalker) handleFunction(node *sitter.Node, isMethod bool) {
	name := w.b.text(fieldChild(node, "name"))
	kind := SymbolFunction
	if isMethod {
		kind = SymbolMethod
	}
	w.b.declare(SymbolEntry{
		Name:     name,
		Kind:     kind,
		Location: w.b.location(node),
		Exported: rustPub(w.b, node) || isMethod,
	})

	body := fieldChild(node, "body")
	if body == nil {
		// declaration without body (trait method signature)
		return
	}
	w.b.openScope(ScopeFunction, name, body, isMethod)
	if params := fieldChild(node, "parameters"); params != nil {
		w.bindParameters(params)
	}
	// The function scope already covers the body block.
	w.walkChildren(body)
	w.b.closeScope()
}

func (w *rustWalker) handleNamedBody(node *sitter.Node, kind SymbolKind) {
	name := w.b.text(fieldChild(node, "name"))
	w.b.declare(SymbolEntry{
		Name:     name,
		Kind:     kind,
		Location: w.b.location(node),
		Exported: rustPub(w.b, node),
	})
	if body := fieldChild(node, "body"); body != nil {
		w.b.openScope(ScopeClass, name, body, false)
		w.walkChildren(body)
		w.b.closeScope()
	}
}

// handleImpl opens a class-like scope named after the implemented type;
// functions inside are method-flagged so self/Self anchor here.
func (w *rustWalker) handleImpl(node *sitter.Node) {
	typeName := w.b.text(fieldChild(node, "type"))
	body := fieldChild(node, "body")
	if body == nil {
		w.b.markMalformed()
		return
	}
	w.b.openScope(ScopeClass, typeName, body, false)
	w.walkChildren(body)
	w.b.closeScope()
}

func (w *rustWalker) handleMod(node *sitter.Node) {
	name := w.b.text(fieldChild(node, "name"))
	w.b.declare(SymbolEntry{
		Name:     name,
		Kind:     SymbolModule,
		Location: w.b.location(node),
		Exported: rustPub(w.b, node),
	})
	// `mod name;` without a body points at another file; the module path
	// resolver owns that edge.
	if body := fieldChild(node, "body"); body != nil {
		w.b.openScope(ScopeModule, name, body, false)
		w.walkChildren(body)
		w.b.closeScope()
	}
}

func (w *rustWalker) handleCall(node *sitter.Node) {
	fn := fieldChild(node, "function")
	if fn != nil {
		switch fn.Kind() {
		case "identifier":
			w.b.addReference(w.b.text(fn), nil, fn)
		case "scoped_identifier":
			if root, path, ok := splitRustPath(w.b.text(fn)); ok {
				w.b.addReference(root, path, fn)
			}
		case "field_expression":
			value := fieldChild(fn, "value")
			field := fieldChild(fn, "field")
			if value != nil && field != nil && value.Kind() == "identifier" {
				w.b.addReference(w.b.text(value), []string{w.b.text(field)}, fn)
			}
		}
	}
	if args := fieldChild(node, "arguments"); args != nil {
		w.walkChildren(args)
	}
}

// handleUse flattens a use declaration into import records. Nested lists
// expand into one record per leaf.
func (w *rustWalker) handleUse(node *sitter.Node) {
	arg := fieldChild(node, "argument")
	if arg == nil {
		w.b.markMalformed()
		return
	}
	loc := w.b.location(node)
	w.expandUse(arg, "", loc, rustPub(w.b, node))
}

func (w *rustWalker) expandUse(node *sitter.Node, prefix string, loc Location, pub bool) {
	join := func(a, b string) string {
		if a == "" {
			return b
		}
		return a + "::" + b
	}

	switch node.Kind() {
	case "identifier", "crate", "self", "super":
		full := join(prefix, w.b.text(node))
		w.declareUse(full, lastRustSegment(full), "", loc, pub)
	case "scoped_identifier":
		full := join(prefix, w.b.text(node))
		w.declareUse(full, lastRustSegment(full), "", loc, pub)
	case "use_as_clause":
		path := fieldChild(node, "path")
		alias := fieldChild(node, "alias")
		full := join(prefix, w.b.text(path))
		w.declareUse(full, w.b.text(alias), lastRustSegment(full), loc, pub)
	case "scoped_use_list":
		path := fieldChild(node, "path")
		list := fieldChild(node, "list")
		newPrefix := join(prefix, w.b.text(path))
		if list != nil {
			for i := uint(0); i < list.ChildCount(); i++ {
				child := list.Child(i)
				switch child.Kind() {
				case "identifier", "scoped_identifier", "use_as_clause", "scoped_use_list", "use_wildcard", "self", "crate", "super":
					w.expandUse(child, newPrefix, loc, pub)
				}
			}
		}
	case "use_wildcard":
		inner := prefix
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			switch child.Kind() {
			case "identifier", "scoped_identifier", "crate", "self", "super":
				inner = join(prefix, w.b.text(child))
			}
		}
		w.b.addImport(Import{
			Specifier: inner,
			IsGlob:    true,
			Location:  loc,
		})
		if pub {
			w.b.addExport(Export{ExportedName: "*", ReexportOf: inner, Location: loc})
		}
	default:
		w.b.markMalformed()
	}
}

func (w *rustWalker) declareUse(specifier, local, original string, loc Location, pub bool) {
	if local == "self" {
		// `use path::{self}` binds the module under its own name.
		local = lastRustSegment(strings.TrimSuffix(specifier, "::self"))
		specifier = strings.TrimSuffix(specifier, "::self")
		original = ""
	}
	w.b.addImport(Import{
		LocalName:    local,
		Specifier:    specifier,
		OriginalName: original,
		Location:     loc,
	})
	w.b.declare(SymbolEntry{
		Name:     local,
		Kind:     SymbolImport,
		Location: loc,
		Exported: pub,
	})
	if pub {
		w.b.addExport(Export{
			ExportedName: local,
			LocalName:    original,
			ReexportOf:   specifier,
			Location:     loc,
		})
	}
}

func (w *rustWalker) bindParameters(params *sitter.Node) {
	for i := uint(0); i < params.ChildCount(); i++ {
		p := params.Child(i)
		switch p.Kind() {
		case "parameter":
			for _, ident := range rustPatternIdentifiers(fieldChild(p, "pattern")) {
				w.b.declare(SymbolEntry{
					Name:     w.b.text(ident),
					Kind:     SymbolParameter,
					Location: w.b.location(ident),
				})
			}
		case "self_parameter":
			w.b.declare(SymbolEntry{
				Name:     "self",
				Kind:     SymbolParameter,
				Location: w.b.location(p),
			})
		}
	}
}

func rustPatternIdentifiers(node *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Kind() {
		case "identifier":
			out = append(out, n)
			return
		case "type_annotation":
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			visit(n.Child(i))
		}
	}
	visit(node)
	return out
}

// splitRustPath turns "crate::utils::helpers::run" into ("crate",
// ["utils","helpers","run"]).
func splitRustPath(path string) (string, []string, bool) {
	segments := strings.Split(path, "::")
	if len(segments) == 0 || segments[0] == "" {
		return "", nil, false
	}
	return segments[0], segments[1:], true
}

func lastRustSegment(path string) string {
	segments := strings.Split(path, "::")
	return segments[len(segments)-1]
}

// rustPub reports whether the item carries a pub visibility modifier.
func rustPub(b *builder, node *sitter.Node) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "visibility_modifier" {
			return strings.HasPrefix(b.text(child), "pub")
		}
	}
	return false
}

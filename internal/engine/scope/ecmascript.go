package scope

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"lattice/internal/engine/parser"
)

// ecmaKind is the typed node-kind set for the ECMAScript family. JS, TS and
// TSX share one grammar lineage; kinds only present in TS simply never occur
// in JS trees.
type ecmaKind int

const (
	ecmaOther ecmaKind = iota
	ecmaImportStatement
	ecmaExportStatement
	ecmaFunctionDeclaration
	ecmaGeneratorFunctionDeclaration
	ecmaClassDeclaration
	ecmaAbstractClassDeclaration
	ecmaMethodDefinition
	ecmaFieldDefinition
	ecmaVariableDeclaration
	ecmaLexicalDeclaration
	ecmaArrowFunction
	ecmaFunctionExpression
	ecmaStatementBlock
	ecmaForStatement
	ecmaForInStatement
	ecmaCallExpression
	ecmaNewExpression
	ecmaInterfaceDeclaration
	ecmaTypeAliasDeclaration
	ecmaEnumDeclaration
	ecmaInternalModule
	ecmaComment
	ecmaError
)

var ecmaKinds = map[string]ecmaKind{
	"import_statement":               ecmaImportStatement,
	"export_statement":               ecmaExportStatement,
	"function_declaration":           ecmaFunctionDeclaration,
	"generator_function_declaration": ecmaGeneratorFunctionDeclaration,
	"class_declaration":              ecmaClassDeclaration,
	"abstract_class_declaration":     ecmaAbstractClassDeclaration,
	"method_definition":              ecmaMethodDefinition,
	"public_field_definition":        ecmaFieldDefinition,
	"field_definition":               ecmaFieldDefinition,
	"variable_declaration":           ecmaVariableDeclaration,
	"lexical_declaration":            ecmaLexicalDeclaration,
	"arrow_function":                 ecmaArrowFunction,
	"function_expression":            ecmaFunctionExpression,
	"statement_block":                ecmaStatementBlock,
	"for_statement":                  ecmaForStatement,
	"for_in_statement":               ecmaForInStatement,
	"call_expression":                ecmaCallExpression,
	"new_expression":                 ecmaNewExpression,
	"interface_declaration":          ecmaInterfaceDeclaration,
	"type_alias_declaration":         ecmaTypeAliasDeclaration,
	"enum_declaration":               ecmaEnumDeclaration,
	"internal_module":                ecmaInternalModule,
	"comment":                        ecmaComment,
	"ERROR":                          ecmaError,
}

type ecmaWalker struct {
	b    *builder
	lang parser.Language
}

func (w *ecmaWalker) walkChildren(node *sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		w.walk(node.Child(i))
	}
}

func (w *ecmaWalker) walk(node *sitter.Node) {
	if node == nil {
		return
	}

	switch ecmaKinds[node.Kind()] {
	case ecmaImportStatement:
		w.handleImport(node)
	case ecmaExportStatement:
		w.handleExport(node)
	case ecmaFunctionDeclaration, ecmaGeneratorFunctionDeclaration:
		w.handleFunctionDeclaration(node, false)
	case ecmaClassDeclaration, ecmaAbstractClassDeclaration:
		w.handleClassDeclaration(node, false)
	case ecmaMethodDefinition:
		w.handleMethodDefinition(node)
	case ecmaFieldDefinition:
		w.handleFieldDefinition(node)
	case ecmaVariableDeclaration:
		w.handleVariableDeclaration(node, true, false)
	case ecmaLexicalDeclaration:
		w.handleVariableDeclaration(node, false, false)
	case ecmaArrowFunction, ecmaFunctionExpression:
		w.handleFunctionValue(node, "")
	case ecmaStatementBlock:
		w.b.openScope(ScopeBlock, "", node, false)
		w.walkChildren(node)
		w.b.closeScope()
	case ecmaForStatement, ecmaForInStatement:
		// The loop header's let bindings live in a scope covering the whole
		// statement.
		w.b.openScope(ScopeBlock, "", node, false)
		w.walkChildren(node)
		w.b.closeScope()
	case ecmaCallExpression, ecmaNewExpression:
		w.handleCall(node)
	case ecmaInterfaceDeclaration:
		w.handleNamedBody(node, SymbolInterface, false)
	case ecmaEnumDeclaration:
		w.handleNamedBody(node, SymbolEnum, false)
	case ecmaTypeAliasDeclaration:
		w.b.declare(SymbolEntry{
			Name:     w.b.text(fieldChild(node, "name")),
			Kind:     SymbolTypeAlias,
			Location: w.b.location(node),
		})
	case ecmaInternalModule:
		w.handleNamedBody(node, SymbolModule, false)
	case ecmaComment:
		// skip
	case ecmaError:
		w.b.markMalformed()
		w.walkChildren(node)
	default:
		w.walkChildren(node)
	}
}

// handleFunctionDeclaration registers the function name in the enclosing
// scope (hoisted) and opens the function scope at the body.
func (w *ecmaWalker) handleFunctionDeclaration(node *sitter.Node, exported bool) {
	name := w.b.text(fieldChild(node, "name"))
	w.b.declare(SymbolEntry{
		Name:     name,
		Kind:     SymbolFunction,
		Location: w.b.location(node),
		Exported: exported,
		Hoisted:  true,
	})
	w.openFunctionScopeNamed(name, node, false)
}

// handleClassDeclaration puts the class name in the enclosing scope; members
// live in a class scope that starts at the class body's opening brace.
func (w *ecmaWalker) handleClassDeclaration(node *sitter.Node, exported bool) {
	name := w.b.text(fieldChild(node, "name"))
	w.b.declare(SymbolEntry{
		Name:     name,
		Kind:     SymbolClass,
		Location: w.b.location(node),
		Exported: exported,
	})

	body := fieldChild(node, "body")
	if body == nil {
		w.b.markMalformed()
		return
	}
	w.b.openScope(ScopeClass, name, body, false)
	w.walkChildren(body)
	w.b.closeScope()
}

func (w *ecmaWalker) handleNamedBody(node *sitter.Node, kind SymbolKind, exported bool) {
	name := w.b.text(fieldChild(node, "name"))
	w.b.declare(SymbolEntry{
		Name:     name,
		Kind:     kind,
		Location: w.b.location(node),
		Exported: exported,
	})
	if body := fieldChild(node, "body"); body != nil {
		w.b.openScope(ScopeClass, name, body, false)
		w.walkChildren(body)
		w.b.closeScope()
	}
}

func (w *ecmaWalker) handleMethodDefinition(node *sitter.Node) {
	name := w.b.text(fieldChild(node, "name"))
	w.b.declare(SymbolEntry{
		Name:     name,
		Kind:     SymbolMethod,
		Location: w.b.location(node),
	})
	w.openFunctionScopeNamed(name, node, true)
}

func (w *ecmaWalker) handleFieldDefinition(node *sitter.Node) {
	w.b.declare(SymbolEntry{
		Name:     w.b.text(fieldChild(node, "name")),
		Kind:     SymbolVariable,
		Location: w.b.location(node),
	})
	if value := fieldChild(node, "value"); value != nil {
		w.walk(value)
	}
}

// handleVariableDeclaration covers both var (hoisted to the nearest function
// or module scope) and let/const (block scoped, ordering checked).
func (w *ecmaWalker) handleVariableDeclaration(node *sitter.Node, hoisted, exported bool) {
	isConst := strings.HasPrefix(w.b.text(node), "const")
	for i := uint(0); i < node.ChildCount(); i++ {
		decl := node.Child(i)
		if decl.Kind() != "variable_declarator" {
			continue
		}
		nameNode := fieldChild(decl, "name")
		value := fieldChild(decl, "value")

		for _, ident := range patternIdentifiers(nameNode) {
			name := w.b.text(ident)
			kind := SymbolVariable
			if isConst {
				kind = SymbolConstant
			}
			entry := SymbolEntry{
				Name:     name,
				Kind:     kind,
				Location: w.b.location(decl),
				Exported: exported,
			}
			if hoisted {
				w.b.declareHoisted(entry)
			} else {
				w.b.declare(entry)
			}
		}

		if value == nil {
			continue
		}
		if k := ecmaKinds[value.Kind()]; k == ecmaArrowFunction || k == ecmaFunctionExpression {
			w.handleFunctionValue(value, w.b.text(nameNode))
		} else {
			w.walk(value)
		}
	}
}

// handleFunctionValue opens a scope for a function expression or arrow
// function; name is the variable it is bound to, when known.
func (w *ecmaWalker) handleFunctionValue(node *sitter.Node, name string) {
	if name == "" {
		name = w.b.text(fieldChild(node, "name"))
	}
	w.openFunctionScopeNamed(name, node, false)
}

// openFunctionScopeNamed opens the scope at the body, binds parameters inside
// it, and walks the body.
func (w *ecmaWalker) openFunctionScopeNamed(name string, node *sitter.Node, isMethod bool) {
	body := fieldChild(node, "body")
	if body == nil {
		w.b.markMalformed()
		return
	}

	w.b.openScope(ScopeFunction, name, body, isMethod)

	if params := fieldChild(node, "parameters"); params != nil {
		w.bindParameters(params)
	} else if param := fieldChild(node, "parameter"); param != nil {
		// single-parameter arrow function without parentheses
		w.bindParameters(param)
	}

	if ecmaKinds[body.Kind()] == ecmaStatementBlock {
		// The function scope already covers the body block.
		w.walkChildren(body)
	} else {
		w.walk(body)
	}
	w.b.closeScope()
}

func (w *ecmaWalker) bindParameters(params *sitter.Node) {
	for _, ident := range patternIdentifiers(params) {
		w.b.declare(SymbolEntry{
			Name:     w.b.text(ident),
			Kind:     SymbolParameter,
			Location: w.b.location(ident),
		})
	}
}

// handleCall records a reference for the callee: a bare identifier, or a
// member chain rooted at an identifier or self keyword.
func (w *ecmaWalker) handleCall(node *sitter.Node) {
	callee := fieldChild(node, "function")
	if callee == nil {
		callee = fieldChild(node, "constructor")
	}
	if callee != nil {
		switch callee.Kind() {
		case "identifier":
			w.b.addReference(w.b.text(callee), nil, callee)
		case "member_expression":
			if root, path, ok := w.flattenMember(callee); ok {
				w.b.addReference(root, path, callee)
			}
		}
	}
	if args := fieldChild(node, "arguments"); args != nil {
		w.walkChildren(args)
	}
}

// flattenMember turns a.b.c into ("a", ["b","c"]). Chains not rooted at an
// identifier or this are skipped.
func (w *ecmaWalker) flattenMember(node *sitter.Node) (string, []string, bool) {
	var segments []string
	cur := node
	for cur != nil && cur.Kind() == "member_expression" {
		prop := fieldChild(cur, "property")
		if prop == nil {
			return "", nil, false
		}
		segments = append([]string{w.b.text(prop)}, segments...)
		cur = fieldChild(cur, "object")
	}
	if cur == nil {
		return "", nil, false
	}
	switch cur.Kind() {
	case "identifier", "this":
		return w.b.text(cur), segments, true
	default:
		return "", nil, false
	}
}

// handleImport records import bindings and declares their local names in the
// module scope so the scope chain can see them.
func (w *ecmaWalker) handleImport(node *sitter.Node) {
	source := stripQuotes(w.b.text(fieldChild(node, "source")))
	loc := w.b.location(node)

	declareLocal := func(imp Import) {
		w.b.addImport(imp)
		w.b.declareIn(w.b.file.RootScope(), SymbolEntry{
			Name:     imp.LocalName,
			Kind:     SymbolImport,
			Location: imp.Location,
			Hoisted:  true,
		})
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		clause := node.Child(i)
		if clause.Kind() != "import_clause" {
			continue
		}
		for j := uint(0); j < clause.ChildCount(); j++ {
			child := clause.Child(j)
			switch child.Kind() {
			case "identifier":
				declareLocal(Import{
					LocalName: w.b.text(child),
					Specifier: source,
					IsDefault: true,
					Location:  loc,
				})
			case "namespace_import":
				for k := uint(0); k < child.ChildCount(); k++ {
					if sub := child.Child(k); sub.Kind() == "identifier" {
						declareLocal(Import{
							LocalName:   w.b.text(sub),
							Specifier:   source,
							IsNamespace: true,
							Location:    loc,
						})
					}
				}
			case "named_imports":
				for k := uint(0); k < child.ChildCount(); k++ {
					spec := child.Child(k)
					if spec.Kind() != "import_specifier" {
						continue
					}
					name := w.b.text(fieldChild(spec, "name"))
					alias := w.b.text(fieldChild(spec, "alias"))
					local, original := name, ""
					if alias != "" {
						local, original = alias, name
					}
					declareLocal(Import{
						LocalName:    local,
						Specifier:    source,
						OriginalName: original,
						Location:     loc,
					})
				}
			}
		}
	}
}

// handleExport covers exported declarations, export clauses, re-exports and
// default exports.
func (w *ecmaWalker) handleExport(node *sitter.Node) {
	source := stripQuotes(w.b.text(fieldChild(node, "source")))
	loc := w.b.location(node)

	isDefault := false
	hasStar := false
	namespaceAlias := ""
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "default":
			isDefault = true
		case "*":
			hasStar = true
		case "namespace_export":
			// export * as X from './mod' binds the whole target namespace
			// under X.
			hasStar = true
			for j := uint(0); j < child.ChildCount(); j++ {
				switch sub := child.Child(j); sub.Kind() {
				case "identifier", "string":
					namespaceAlias = stripQuotes(w.b.text(sub))
				}
			}
		}
	}

	if hasStar && source != "" {
		name := "*"
		if namespaceAlias != "" {
			name = namespaceAlias
		}
		w.b.addExport(Export{ExportedName: name, ReexportOf: source, Location: loc})
		return
	}

	if decl := fieldChild(node, "declaration"); decl != nil {
		w.exportDeclaration(decl, isDefault, loc)
		return
	}
	if value := fieldChild(node, "value"); value != nil {
		// export default <expression>
		w.b.addExport(Export{ExportedName: "default", IsDefault: true, Location: loc})
		w.walk(value)
		return
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		clause := node.Child(i)
		if clause.Kind() != "export_clause" {
			continue
		}
		for j := uint(0); j < clause.ChildCount(); j++ {
			spec := clause.Child(j)
			if spec.Kind() != "export_specifier" {
				continue
			}
			name := w.b.text(fieldChild(spec, "name"))
			alias := w.b.text(fieldChild(spec, "alias"))
			exported := name
			if alias != "" {
				exported = alias
			}
			w.b.addExport(Export{
				ExportedName: exported,
				LocalName:    name,
				ReexportOf:   source,
				Location:     loc,
			})
		}
	}
}

// exportDeclaration registers the declaration normally, then flags its names
// exported and records export entries.
func (w *ecmaWalker) exportDeclaration(decl *sitter.Node, isDefault bool, loc Location) {
	switch ecmaKinds[decl.Kind()] {
	case ecmaFunctionDeclaration, ecmaGeneratorFunctionDeclaration:
		name := w.b.text(fieldChild(decl, "name"))
		w.handleFunctionDeclaration(decl, true)
		w.markExported(name, isDefault, loc)
	case ecmaClassDeclaration, ecmaAbstractClassDeclaration:
		name := w.b.text(fieldChild(decl, "name"))
		w.handleClassDeclaration(decl, true)
		w.markExported(name, isDefault, loc)
	case ecmaVariableDeclaration:
		w.handleVariableDeclaration(decl, true, true)
		w.exportDeclaredNames(decl, loc)
	case ecmaLexicalDeclaration:
		w.handleVariableDeclaration(decl, false, true)
		w.exportDeclaredNames(decl, loc)
	case ecmaInterfaceDeclaration:
		name := w.b.text(fieldChild(decl, "name"))
		w.handleNamedBody(decl, SymbolInterface, true)
		w.markExported(name, isDefault, loc)
	case ecmaEnumDeclaration:
		name := w.b.text(fieldChild(decl, "name"))
		w.handleNamedBody(decl, SymbolEnum, true)
		w.markExported(name, isDefault, loc)
	case ecmaTypeAliasDeclaration:
		name := w.b.text(fieldChild(decl, "name"))
		w.walk(decl)
		w.markExported(name, isDefault, loc)
	default:
		w.walk(decl)
	}
}

func (w *ecmaWalker) markExported(name string, isDefault bool, loc Location) {
	if name == "" {
		return
	}
	root := w.b.file.RootScope()
	if entry, ok := root.Symbols[name]; ok {
		entry.Exported = true
		root.Symbols[name] = entry
	}
	exported := name
	if isDefault {
		exported = "default"
	}
	w.b.addExport(Export{
		ExportedName: exported,
		LocalName:    name,
		IsDefault:    isDefault,
		Location:     loc,
	})
}

func (w *ecmaWalker) exportDeclaredNames(decl *sitter.Node, loc Location) {
	for i := uint(0); i < decl.ChildCount(); i++ {
		d := decl.Child(i)
		if d.Kind() != "variable_declarator" {
			continue
		}
		for _, ident := range patternIdentifiers(fieldChild(d, "name")) {
			w.markExported(w.b.text(ident), false, loc)
		}
	}
}

// patternIdentifiers collects every identifier bound by a parameter or
// destructuring pattern.
func patternIdentifiers(node *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Kind() {
		case "identifier", "shorthand_property_identifier_pattern":
			out = append(out, n)
			return
		case "type_annotation", "string", "number":
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			visit(n.Child(i))
		}
	}
	visit(node)
	return out
}

func stripQuotes(s string) string {
	return strings.Trim(s, "'\"`")
}

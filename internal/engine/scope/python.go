package scope

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type pyKind int

const (
	pyOther pyKind = iota
	pyImportStatement
	pyImportFromStatement
	pyFutureImportStatement
	pyFunctionDefinition
	pyClassDefinition
	pyDecoratedDefinition
	pyAssignment
	pyAugmentedAssignment
	pyForStatement
	pyWithStatement
	pyLambda
	pyCall
	pyComment
	pyError
)

var pyKinds = map[string]pyKind{
	"import_statement":        pyImportStatement,
	"import_from_statement":   pyImportFromStatement,
	"future_import_statement": pyFutureImportStatement,
	"function_definition":     pyFunctionDefinition,
	"class_definition":        pyClassDefinition,
	"decorated_definition":    pyDecoratedDefinition,
	"assignment":              pyAssignment,
	"augmented_assignment":    pyAugmentedAssignment,
	"for_statement":           pyForStatement,
	"with_statement":          pyWithStatement,
	"lambda":                  pyLambda,
	"call":                    pyCall,
	"comment":                 pyComment,
	"ERROR":                   pyError,
}

// pythonWalker builds the scope forest for Python. Python scoping is
// function-and-class based: control-flow bodies do not open scopes, so
// assignments inside if/for at module level land in the module scope.
type pythonWalker struct {
	b *builder
}

func (w *pythonWalker) walkChildren(node *sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		w.walk(node.Child(i))
	}
}

func (w *pythonWalker) walk(node *sitter.Node) {
	if node == nil {
		return
	}

	switch pyKinds[node.Kind()] {
	case pyImportStatement:
		w.handleImport(node)
	case pyImportFromStatement:
		w.handleFromImport(node)
	case pyFutureImportStatement:
		// __future__ flags bind nothing the resolver cares about.
	case pyFunctionDefinition:
		w.handleFunction(node, w.inClassBody())
	case pyClassDefinition:
		w.handleClass(node)
	case pyDecoratedDefinition:
		if def := fieldChild(node, "definition"); def != nil {
			w.walk(def)
		}
	case pyAssignment, pyAugmentedAssignment:
		w.handleAssignment(node)
	case pyForStatement:
		// Loop targets bind in the enclosing scope; no block scope in Python.
		for _, ident := range pythonTargetIdentifiers(fieldChild(node, "left")) {
			w.b.declare(SymbolEntry{
				Name:     w.b.text(ident),
				Kind:     SymbolVariable,
				Location: w.b.location(ident),
			})
		}
		if right := fieldChild(node, "right"); right != nil {
			w.walk(right)
		}
		if body := fieldChild(node, "body"); body != nil {
			w.walkChildren(body)
		}
	case pyWithStatement:
		w.walkChildren(node)
	case pyLambda:
		w.b.openScope(ScopeFunction, "", node, false)
		if params := fieldChild(node, "parameters"); params != nil {
			w.bindParameters(params)
		}
		if body := fieldChild(node, "body"); body != nil {
			w.walk(body)
		}
		w.b.closeScope()
	case pyCall:
		w.handleCall(node)
	case pyComment:
		// skip
	case pyError:
		w.b.markMalformed()
		w.walkChildren(node)
	default:
		w.walkChildren(node)
	}
}

func (w *pythonWalker) inClassBody() bool {
	return w.b.current().Kind == ScopeClass
}

func (w *pythonWalker) handleFunction(node *sitter.Node, isMethod bool) {
	name := w.b.text(fieldChild(node, "name"))
	kind := SymbolFunction
	if isMethod {
		kind = SymbolMethod
	}
	w.b.declare(SymbolEntry{
		Name:     name,
		Kind:     kind,
		Location: w.b.location(node),
		Exported: pythonPublic(name),
	})

	body := fieldChild(node, "body")
	if body == nil {
		w.b.markMalformed()
		return
	}
	w.b.openScope(ScopeFunction, name, body, isMethod)
	if params := fieldChild(node, "parameters"); params != nil {
		w.bindParameters(params)
	}
	w.walkChildren(body)
	w.b.closeScope()
}

func (w *pythonWalker) handleClass(node *sitter.Node) {
	name := w.b.text(fieldChild(node, "name"))
	w.b.declare(SymbolEntry{
		Name:     name,
		Kind:     SymbolClass,
		Location: w.b.location(node),
		Exported: pythonPublic(name),
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

func (w *pythonWalker) handleAssignment(node *sitter.Node) {
	left := fieldChild(node, "left")
	right := fieldChild(node, "right")

	if w.captureDunderAll(left, right) {
		return
	}

	for _, ident := range pythonTargetIdentifiers(left) {
		name := w.b.text(ident)
		kind := SymbolVariable
		if name == strings.ToUpper(name) && name != strings.ToLower(name) {
			kind = SymbolConstant
		}
		w.b.declare(SymbolEntry{
			Name:     name,
			Kind:     kind,
			Location: w.b.location(ident),
			Exported: pythonPublic(name),
		})
	}
	if right != nil {
		w.walk(right)
	}
}

// captureDunderAll records `__all__ = [...]` at module level for export
// filtering.
func (w *pythonWalker) captureDunderAll(left, right *sitter.Node) bool {
	if left == nil || right == nil {
		return false
	}
	if w.b.current().Kind != ScopeModule || left.Kind() != "identifier" || w.b.text(left) != "__all__" {
		return false
	}
	if right.Kind() != "list" && right.Kind() != "tuple" {
		return false
	}
	var names []string
	for i := uint(0); i < right.ChildCount(); i++ {
		child := right.Child(i)
		if child.Kind() == "string" {
			names = append(names, stripQuotes(w.b.text(child)))
		}
	}
	w.b.file.DunderAll = names
	return true
}

func (w *pythonWalker) handleCall(node *sitter.Node) {
	fn := fieldChild(node, "function")
	if fn != nil {
		switch fn.Kind() {
		case "identifier":
			w.b.addReference(w.b.text(fn), nil, fn)
		case "attribute":
			if root, path, ok := w.flattenAttribute(fn); ok {
				w.b.addReference(root, path, fn)
			}
		}
	}
	if args := fieldChild(node, "arguments"); args != nil {
		w.walkChildren(args)
	}
}

// flattenAttribute turns a.b.c into ("a", ["b","c"]).
func (w *pythonWalker) flattenAttribute(node *sitter.Node) (string, []string, bool) {
	var segments []string
	cur := node
	for cur != nil && cur.Kind() == "attribute" {
		attr := fieldChild(cur, "attribute")
		if attr == nil {
			return "", nil, false
		}
		segments = append([]string{w.b.text(attr)}, segments...)
		cur = fieldChild(cur, "object")
	}
	if cur == nil || cur.Kind() != "identifier" {
		return "", nil, false
	}
	return w.b.text(cur), segments, true
}

// handleImport handles `import a.b.c` and `import a.b as x`. A plain dotted
// import binds its first segment.
func (w *pythonWalker) handleImport(node *sitter.Node) {
	loc := w.b.location(node)
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "dotted_name", "identifier":
			module := w.b.text(child)
			local := strings.SplitN(module, ".", 2)[0]
			w.declareImport(Import{
				LocalName:   local,
				Specifier:   module,
				IsNamespace: true,
				Location:    loc,
			})
		case "aliased_import":
			name := fieldChild(child, "name")
			alias := fieldChild(child, "alias")
			w.declareImport(Import{
				LocalName:   w.b.text(alias),
				Specifier:   w.b.text(name),
				IsNamespace: true,
				Location:    loc,
			})
		}
	}
}

// handleFromImport handles `from X import a, b as c` including relative
// forms and `from X import *`.
func (w *pythonWalker) handleFromImport(node *sitter.Node) {
	loc := w.b.location(node)

	module := ""
	if mod := fieldChild(node, "module_name"); mod != nil {
		module = w.b.text(mod)
	}

	sawImport := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "import":
			sawImport = true
		case "wildcard_import":
			w.b.addImport(Import{
				Specifier: module,
				IsGlob:    true,
				Location:  loc,
			})
		case "dotted_name", "identifier":
			if !sawImport {
				continue
			}
			name := w.b.text(child)
			w.declareImport(Import{
				LocalName:    name,
				Specifier:    module,
				OriginalName: name,
				Location:     loc,
			})
		case "aliased_import":
			if !sawImport {
				continue
			}
			name := w.b.text(fieldChild(child, "name"))
			alias := w.b.text(fieldChild(child, "alias"))
			w.declareImport(Import{
				LocalName:    alias,
				Specifier:    module,
				OriginalName: name,
				Location:     loc,
			})
		}
	}
}

func (w *pythonWalker) declareImport(imp Import) {
	w.b.addImport(imp)
	w.b.declare(SymbolEntry{
		Name:     imp.LocalName,
		Kind:     SymbolImport,
		Location: imp.Location,
	})
}

func (w *pythonWalker) bindParameters(params *sitter.Node) {
	for i := uint(0); i < params.ChildCount(); i++ {
		p := params.Child(i)
		var ident *sitter.Node
		switch p.Kind() {
		case "identifier":
			ident = p
		case "typed_parameter", "default_parameter", "typed_default_parameter":
			ident = firstChildOfKind(p, "identifier")
		case "list_splat_pattern", "dictionary_splat_pattern":
			ident = firstChildOfKind(p, "identifier")
		}
		if ident != nil {
			w.b.declare(SymbolEntry{
				Name:     w.b.text(ident),
				Kind:     SymbolParameter,
				Location: w.b.location(ident),
			})
		}
	}
}

// pythonTargetIdentifiers collects assignment-target identifiers, including
// tuple unpacking. Attribute and subscript targets bind nothing new.
func pythonTargetIdentifiers(node *sitter.Node) []*sitter.Node {
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
		case "pattern_list", "tuple_pattern", "list_pattern":
			for i := uint(0); i < n.ChildCount(); i++ {
				visit(n.Child(i))
			}
		case "attribute", "subscript":
			return
		}
	}
	visit(node)
	return out
}

func firstChildOfKind(node *sitter.Node, kind string) *sitter.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child.Kind() == kind {
			return child
		}
	}
	return nil
}

// pythonPublic follows the underscore convention: leading underscore means
// module-private.
func pythonPublic(name string) bool {
	return name != "" && !strings.HasPrefix(name, "_")
}

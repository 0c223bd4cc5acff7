// Package modpath turns import specifier strings into concrete target files,
// one rule set per language's module system. Resolution is a pure function of
// (specifier, importing file, tree view): the same inputs always produce the
// same Result, so callers may memoize freely.
//
// Resolution never fails hard. A specifier with no on-disk candidate still
// yields a deterministic best-guess path marked Unresolved, so the rest of
// the graph stays buildable.
package modpath

import (
	"lattice/internal/engine/parser"
)

// Result is the outcome of resolving one import specifier.
type Result struct {
	Specifier string
	// Path is the project-relative target file. Empty for external targets.
	Path string
	// External marks package/crate references outside the analyzed tree.
	External bool
	// ExternalName carries the package or crate name for external targets.
	ExternalName string
	// Unresolved marks a best-guess Path with no candidate on disk.
	Unresolved bool
}

// Resolve dispatches to the language's module system rules.
func Resolve(lang parser.Language, specifier, fromFile string, tree FileTreeView) Result {
	switch lang {
	case parser.LangJavaScript:
		return resolveECMAScript(specifier, fromFile, tree, jsExtensions)
	case parser.LangTypeScript, parser.LangTSX:
		return resolveTypeScript(specifier, fromFile, tree)
	case parser.LangPython:
		return resolvePython(specifier, fromFile, tree)
	case parser.LangRust:
		return resolveRust(specifier, fromFile, tree)
	default:
		return Result{Specifier: specifier, External: true, ExternalName: specifier}
	}
}

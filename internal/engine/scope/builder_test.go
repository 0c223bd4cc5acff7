package scope

import (
	"testing"

	"lattice/internal/engine/parser"
)

func analyze(t *testing.T, path, source string) *FileAnalysis {
	t.Helper()
	loader, err := parser.NewGrammarLoader()
	if err != nil {
		t.Fatalf("grammar loader: %v", err)
	}
	p := parser.NewParser(loader)
	res, err := p.ParseFile(path, []byte(source))
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	defer res.Close()
	return BuildFile(res)
}

func findScope(f *FileAnalysis, kind ScopeKind, name string) *Scope {
	for _, s := range f.Scopes {
		if s.Kind == kind && s.Name == name {
			return s
		}
	}
	return nil
}

func TestECMAScriptDeclarationsLandInParentScope(t *testing.T) {
	f := analyze(t, "app.js", `
function compute(x) {
  let inner = x * 2
  return inner
}

class Engine {
  start() {
    this.running = true
  }
}
`)
	root := f.RootScope()
	if root == nil {
		t.Fatal("no root scope")
	}

	fn, ok := root.Symbols["compute"]
	if !ok {
		t.Fatal("compute not registered in module scope")
	}
	if fn.Kind != SymbolFunction || !fn.Hoisted {
		t.Errorf("compute = %v hoisted=%v, want hoisted function", fn.Kind, fn.Hoisted)
	}
	if cls, ok := root.Symbols["Engine"]; !ok || cls.Kind != SymbolClass {
		t.Errorf("Engine entry = %+v, want class in module scope", cls)
	}

	fnScope := findScope(f, ScopeFunction, "compute")
	if fnScope == nil {
		t.Fatal("no function scope for compute")
	}
	if _, ok := fnScope.Symbols["inner"]; !ok {
		t.Error("inner should live in compute's scope, not the module")
	}
	if _, ok := root.Symbols["inner"]; ok {
		t.Error("inner leaked into module scope")
	}
	if _, ok := fnScope.Symbols["x"]; !ok {
		t.Error("parameter x missing from compute's scope")
	}

	clsScope := findScope(f, ScopeClass, "Engine")
	if clsScope == nil {
		t.Fatal("no class scope for Engine")
	}
	if m, ok := clsScope.Symbols["start"]; !ok || m.Kind != SymbolMethod {
		t.Errorf("start entry = %+v, want method in class body scope", m)
	}
	start := findScope(f, ScopeFunction, "start")
	if start == nil || !start.IsMethod {
		t.Error("start scope should be method-flagged")
	}
}

func TestECMAScriptVarHoistsLetDoesNot(t *testing.T) {
	f := analyze(t, "app.js", `
function f() {
  if (true) {
    var hoisted = 1
    let blocked = 2
  }
}
`)
	fn := findScope(f, ScopeFunction, "f")
	if fn == nil {
		t.Fatal("no scope for f")
	}
	entry, ok := fn.Symbols["hoisted"]
	if !ok {
		t.Fatal("var binding should land in the enclosing function scope")
	}
	if !entry.Hoisted {
		t.Error("var binding should carry the hoisted flag")
	}
	if _, ok := fn.Symbols["blocked"]; ok {
		t.Error("let binding leaked out of its block")
	}
	var block *Scope
	for _, s := range f.Scopes {
		if s.Kind == ScopeBlock {
			if _, ok := s.Symbols["blocked"]; ok {
				block = s
			}
		}
	}
	if block == nil {
		t.Error("let binding missing from every block scope")
	}
}

func TestECMAScriptImportsAndExports(t *testing.T) {
	f := analyze(t, "app.js", `
import dflt from './a'
import * as ns from './b'
import { one, two as due } from './c'

export function shipped() {}
export default shipped
export { helper } from './d'
export * from './e'
export * as grouped from './f'
`)
	byLocal := map[string]Import{}
	for _, imp := range f.Imports {
		byLocal[imp.LocalName] = imp
	}
	if imp := byLocal["dflt"]; !imp.IsDefault || imp.Specifier != "./a" {
		t.Errorf("default import = %+v", imp)
	}
	if imp := byLocal["ns"]; !imp.IsNamespace || imp.Specifier != "./b" {
		t.Errorf("namespace import = %+v", imp)
	}
	if imp := byLocal["due"]; imp.OriginalName != "two" || imp.Specifier != "./c" {
		t.Errorf("renamed import = %+v", imp)
	}
	if _, ok := byLocal["one"]; !ok {
		t.Error("plain named import missing")
	}

	byName := map[string]Export{}
	for _, exp := range f.Exports {
		byName[exp.ExportedName] = exp
	}
	if exp := byName["shipped"]; exp.LocalName != "shipped" || exp.ReexportOf != "" {
		t.Errorf("declaration export = %+v", exp)
	}
	if _, ok := byName["default"]; !ok {
		t.Error("default export missing")
	}
	if exp := byName["helper"]; exp.ReexportOf != "./d" {
		t.Errorf("named re-export = %+v", exp)
	}
	if exp := byName["*"]; exp.ReexportOf != "./e" {
		t.Errorf("star re-export = %+v", exp)
	}
	if exp := byName["grouped"]; exp.ReexportOf != "./f" || exp.LocalName != "" {
		t.Errorf("namespace re-export = %+v, want whole-namespace binding of ./f", exp)
	}

	if entry, ok := f.RootScope().Symbols["shipped"]; !ok || !entry.Exported {
		t.Error("shipped should be flagged exported in the module scope")
	}
}

func TestScopeIDsStableAcrossRebuilds(t *testing.T) {
	source := "function a() {}\nfunction b() { let x = 1 }\n"
	first := analyze(t, "same.js", source)
	second := analyze(t, "same.js", source)

	if first.Root != second.Root {
		t.Errorf("root ids differ: %s vs %s", first.Root, second.Root)
	}
	if len(first.Scopes) != len(second.Scopes) {
		t.Fatalf("scope counts differ: %d vs %d", len(first.Scopes), len(second.Scopes))
	}
	for id := range first.Scopes {
		if _, ok := second.Scopes[id]; !ok {
			t.Errorf("scope %s missing from rebuild", id)
		}
	}

	other := analyze(t, "other.js", source)
	if other.Root == first.Root {
		t.Error("identical source in a different file should not share scope ids")
	}
}

func TestPythonScopesAndBindings(t *testing.T) {
	f := analyze(t, "app.py", `
__all__ = ['Shape', 'area']

import os.path
from math import sqrt as root_of

class Shape:
    def area(self):
        return 0

def area(shape):
    for item in [shape]:
        pass
    return item
`)
	if len(f.DunderAll) != 2 || f.DunderAll[0] != "Shape" || f.DunderAll[1] != "area" {
		t.Errorf("__all__ = %v", f.DunderAll)
	}

	if imp := f.ImportByLocalName("os"); imp == nil || !imp.IsNamespace {
		t.Errorf("dotted import binding = %+v, want namespace binding for first segment", imp)
	}
	if imp := f.ImportByLocalName("root_of"); imp == nil || imp.OriginalName != "sqrt" || imp.Specifier != "math" {
		t.Errorf("renamed from-import = %+v", imp)
	}

	cls := findScope(f, ScopeClass, "Shape")
	if cls == nil {
		t.Fatal("no class scope for Shape")
	}
	if m, ok := cls.Symbols["area"]; !ok || m.Kind != SymbolMethod {
		t.Errorf("area in class scope = %+v, want method", m)
	}
	method := findScope(f, ScopeFunction, "area")
	_ = method // two scopes share the name; the method one must be flagged
	flagged := false
	for _, s := range f.Scopes {
		if s.Kind == ScopeFunction && s.Name == "area" && s.IsMethod {
			flagged = true
		}
	}
	if !flagged {
		t.Error("method scope for Shape.area should be method-flagged")
	}

	// Python has no block scopes: the loop target belongs to the function.
	var freeFn *Scope
	for _, s := range f.Scopes {
		if s.Kind == ScopeFunction && s.Name == "area" && !s.IsMethod {
			freeFn = s
		}
	}
	if freeFn == nil {
		t.Fatal("no scope for module-level area")
	}
	if _, ok := freeFn.Symbols["item"]; !ok {
		t.Error("for-loop target should bind in the enclosing function scope")
	}
}

func TestRustUseExpansionAndVisibility(t *testing.T) {
	f := analyze(t, "src/lib.rs", `
use crate::utils::{helpers, io as eio};
pub use crate::utils::helpers::run;

pub fn public_entry() {}

fn private_entry() {}

pub struct Counter {
    n: u64,
}

impl Counter {
    pub fn incr(&mut self) {
        self.n += 1;
    }
}

pub mod inner {
    pub fn nested() {}
}
`)
	if imp := f.ImportByLocalName("helpers"); imp == nil || imp.Specifier != "crate::utils::helpers" {
		t.Errorf("list import = %+v", imp)
	}
	if imp := f.ImportByLocalName("eio"); imp == nil || imp.OriginalName != "io" || imp.Specifier != "crate::utils::io" {
		t.Errorf("aliased import = %+v", imp)
	}

	root := f.RootScope()
	if e, ok := root.Symbols["public_entry"]; !ok || !e.Exported {
		t.Errorf("public_entry = %+v, want exported", e)
	}
	if e, ok := root.Symbols["private_entry"]; !ok || e.Exported {
		t.Errorf("private_entry = %+v, want unexported", e)
	}
	if e, ok := root.Symbols["run"]; !ok || !e.Exported {
		t.Errorf("pub use binding = %+v, want exported import", e)
	}

	found := false
	for _, exp := range f.Exports {
		if exp.ExportedName == "run" && exp.ReexportOf == "crate::utils::helpers::run" {
			found = true
		}
	}
	if !found {
		t.Errorf("pub use should record a re-export, have %+v", f.Exports)
	}

	var implScope *Scope
	for _, s := range f.Scopes {
		if s.Kind == ScopeClass && s.Name == "Counter" {
			if _, ok := s.Symbols["incr"]; ok {
				implScope = s
			}
		}
	}
	if implScope == nil {
		t.Fatal("impl block should open a class scope holding incr")
	}
	if m := implScope.Symbols["incr"]; m.Kind != SymbolMethod || !m.Exported {
		t.Errorf("incr = %+v, want exported method", m)
	}

	inner := findScope(f, ScopeModule, "inner")
	if inner == nil {
		t.Fatal("inline mod should open a module scope")
	}
	if _, ok := inner.Symbols["nested"]; !ok {
		t.Error("nested fn missing from inline module scope")
	}
}

func TestRustGlobUse(t *testing.T) {
	f := analyze(t, "src/lib.rs", "pub use crate::prelude::*;\nuse crate::other::*;\n")
	globs := 0
	for _, imp := range f.Imports {
		if imp.IsGlob {
			globs++
		}
	}
	if globs != 2 {
		t.Errorf("glob imports = %d, want 2", globs)
	}
	star := false
	for _, exp := range f.Exports {
		if exp.ExportedName == "*" && exp.ReexportOf == "crate::prelude" {
			star = true
		}
	}
	if !star {
		t.Errorf("pub use glob should record a star re-export, have %+v", f.Exports)
	}
}

func TestReferencesRecordMemberPaths(t *testing.T) {
	f := analyze(t, "app.js", "import * as utils from './utils'\nutils.string.capitalize('x')\n")
	var ref *Reference
	for i := range f.References {
		if f.References[i].Name == "utils" {
			ref = &f.References[i]
		}
	}
	if ref == nil {
		t.Fatalf("no reference to utils, have %+v", f.References)
	}
	if len(ref.Path) != 2 || ref.Path[0] != "string" || ref.Path[1] != "capitalize" {
		t.Errorf("path = %v, want [string capitalize]", ref.Path)
	}
	if ref.Scope != f.Root {
		t.Errorf("reference scope = %s, want module scope", ref.Scope)
	}
}

func TestMalformedSourceStillAnalyzes(t *testing.T) {
	f := analyze(t, "broken.py", "def broken(:\n    pass\n\ndef intact():\n    pass\n")
	if f.RootScope() == nil {
		t.Fatal("even broken files need a module scope")
	}
	if _, ok := f.RootScope().Symbols["intact"]; !ok {
		t.Error("declarations after a broken region should still register")
	}
}

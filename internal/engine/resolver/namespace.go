package resolver

import (
	"strings"

	"lattice/internal/engine/modpath"
	"lattice/internal/engine/parser"
	"lattice/internal/engine/scope"
)

// exportEntry is one name in a module's public surface. Either def is set
// (concrete binding in that module) or the entry is a marker pointing into
// another module that must be chased per-hop.
type exportEntry struct {
	def *Definition
	// marker fields: targetSpec names the module to chase, resolved relative
	// to fromFile. targetName is the name to look up there; empty means the
	// binding is the target namespace itself.
	targetSpec string
	targetName string
	fromFile   string
	likely     bool
}

// lookupExport finds one exported name in a module, chasing re-export chains
// hop by hop. rest carries member-path segments to traverse once the name
// lands on a namespace. The chain is re-derived per hop so that intermediate
// module edits invalidate naturally.
func (r *Resolver) lookupExport(st *state, file *scope.FileAnalysis, name string, rest []string) (*ResolvedSymbol, Status) {
	if !st.enter(file.Path, name) {
		return nil, StatusCircular
	}
	st.touch(file.Path)

	table := r.exportTable(st, file)
	entry, ok := table[name]
	if !ok {
		return nil, StatusUnresolved
	}
	return r.chase(st, file, entry, rest)
}

// resolveMember walks a dotted member path through a module's exports:
// path[0] is looked up in the module, remaining segments traverse nested
// namespaces.
func (r *Resolver) resolveMember(st *state, file *scope.FileAnalysis, path []string) (*ResolvedSymbol, Status) {
	if len(path) == 0 {
		return moduleSymbol(file), StatusResolved
	}
	if !st.enter(file.Path, path[0]) {
		return nil, StatusCircular
	}
	st.touch(file.Path)

	table := r.exportTable(st, file)
	entry, ok := table[path[0]]
	if !ok {
		// Python allows members that are submodules never imported by the
		// package itself: utils.string resolves as module utils/string.py.
		if file.Language == parser.LangPython {
			if sym, status := r.memberAsSubmodule(st, file, path); sym != nil || status == StatusCircular {
				return sym, status
			}
		}
		return nil, StatusUnresolved
	}
	return r.chase(st, file, entry, path[1:])
}

// chase materializes one export entry, recursing through markers. rest holds
// member-path segments still to traverse after this entry lands.
func (r *Resolver) chase(st *state, file *scope.FileAnalysis, entry exportEntry, rest []string) (*ResolvedSymbol, Status) {
	if entry.def != nil {
		conf := ConfidenceExact
		if entry.likely || len(rest) > 0 {
			conf = ConfidenceLikely
		}
		// A concrete def that is itself a namespace binding keeps delegating.
		if entry.def.Symbol.Kind == scope.SymbolModule && len(rest) > 0 {
			if next := r.snap.File(entry.def.File); next != nil && next.Path != file.Path {
				return r.resolveMember(st, next, rest)
			}
		}
		return &ResolvedSymbol{Definition: *entry.def, Confidence: conf, Source: SourceImport}, StatusResolved
	}

	from := entry.fromFile
	owner := r.snap.File(from)
	if owner == nil {
		return nil, StatusUnresolved
	}
	res := modpath.Resolve(owner.Language, entry.targetSpec, from, r.snap.Tree())
	if res.External {
		return &ResolvedSymbol{
			Confidence:   ConfidenceLikely,
			Source:       SourceExternal,
			ExternalName: res.ExternalName,
		}, StatusExternal
	}
	if res.Unresolved {
		return nil, StatusUnresolved
	}
	next := r.snap.File(res.Path)
	if next == nil {
		return nil, StatusUnresolved
	}

	if entry.targetName == "" ||
		(owner.Language == parser.LangRust && rustFileOwnsName(res.Path, entry.targetName)) {
		// Whole-namespace marker: the next path segment is looked up in the
		// target module.
		return r.resolveMember(st, next, rest)
	}
	path := append([]string{entry.targetName}, rest...)
	return r.resolveMember(st, next, path)
}

// memberAsSubmodule probes <package>/<name>.py style siblings for Python
// namespace access that bypasses the package's own imports.
func (r *Resolver) memberAsSubmodule(st *state, file *scope.FileAnalysis, path []string) (*ResolvedSymbol, Status) {
	res := modpath.Resolve(parser.LangPython, "."+path[0], file.Path, r.snap.Tree())
	if res.Unresolved || res.External {
		return nil, StatusUnresolved
	}
	sub := r.snap.File(res.Path)
	if sub == nil {
		return nil, StatusUnresolved
	}
	st.touch(sub.Path)
	if len(path) == 1 {
		return moduleSymbol(sub), StatusResolved
	}
	return r.resolveMember(st, sub, path[1:])
}

// exportTable computes the public surface of one module: explicit exports
// plus the per-language implicit rules. Tables are cheap relative to parsing
// and derived fresh per resolution so snapshot swaps stay correct.
func (r *Resolver) exportTable(st *state, file *scope.FileAnalysis) map[string]exportEntry {
	table := make(map[string]exportEntry)
	root := file.RootScope()

	switch {
	case file.Language.IsECMAScript():
		r.ecmaExports(st, file, root, table)
	case file.Language == parser.LangPython:
		r.pythonExports(file, root, table)
	case file.Language == parser.LangRust:
		r.rustExports(st, file, root, table)
	}
	return table
}

// ecmaExports: only explicit export statements count; star re-exports merge
// the target's table without overriding explicit names.
func (r *Resolver) ecmaExports(st *state, file *scope.FileAnalysis, root *scope.Scope, table map[string]exportEntry) {
	var stars []string
	for i := range file.Exports {
		exp := &file.Exports[i]
		if exp.ExportedName == "*" && exp.ReexportOf != "" {
			stars = append(stars, exp.ReexportOf)
			continue
		}
		if exp.ReexportOf != "" {
			table[exp.ExportedName] = exportEntry{
				targetSpec: exp.ReexportOf,
				targetName: exp.LocalName,
				fromFile:   file.Path,
			}
			continue
		}
		table[exp.ExportedName] = r.localExport(file, root, exp)
	}

	for _, spec := range stars {
		res := modpath.Resolve(file.Language, spec, file.Path, r.snap.Tree())
		if res.External || res.Unresolved {
			continue
		}
		target := r.snap.File(res.Path)
		if target == nil || !st.enter(target.Path, "*") {
			continue
		}
		st.touch(target.Path)
		for name, entry := range r.exportTable(st, target) {
			if name == "default" {
				continue
			}
			if _, taken := table[name]; !taken {
				table[name] = entry
			}
		}
	}
}

// localExport turns an export-of-local into a concrete entry, detecting the
// case where the local name is itself a namespace import being re-exported.
func (r *Resolver) localExport(file *scope.FileAnalysis, root *scope.Scope, exp *scope.Export) exportEntry {
	local := exp.LocalName
	if local == "" {
		local = exp.ExportedName
	}
	if imp := file.ImportByLocalName(local); imp != nil {
		name := imp.OriginalName
		if imp.IsNamespace || imp.IsDefault {
			name = ""
		}
		if imp.IsDefault {
			name = "default"
		}
		return exportEntry{targetSpec: imp.Specifier, targetName: name, fromFile: file.Path}
	}
	if root != nil {
		if entry, ok := root.Symbols[local]; ok {
			return exportEntry{def: &Definition{Symbol: entry, Scope: root.ID, File: file.Path}}
		}
	}
	// export default <expression> and similar anonymous exports.
	return exportEntry{def: &Definition{
		Symbol: scope.SymbolEntry{Name: exp.ExportedName, Kind: scope.SymbolVariable, Location: exp.Location},
		File:   file.Path,
	}}
}

// pythonExports: every public top-level binding is exported unless __all__
// narrows the set. Imports in the module re-export under their local name,
// which is how package __init__.py files aggregate submodules.
func (r *Resolver) pythonExports(file *scope.FileAnalysis, root *scope.Scope, table map[string]exportEntry) {
	allowed := func(name string) bool {
		if file.DunderAll != nil {
			for _, n := range file.DunderAll {
				if n == name {
					return true
				}
			}
			return false
		}
		return !strings.HasPrefix(name, "_")
	}

	if root != nil {
		for name, entry := range root.Symbols {
			if !allowed(name) {
				continue
			}
			if entry.Kind == scope.SymbolImport {
				continue // handled below with the import's target
			}
			def := Definition{Symbol: entry, Scope: root.ID, File: file.Path}
			table[name] = exportEntry{def: &def}
		}
	}
	for i := range file.Imports {
		imp := &file.Imports[i]
		if imp.IsGlob || !allowed(imp.LocalName) {
			continue
		}
		name := imp.OriginalName
		if imp.IsNamespace {
			name = ""
		}
		table[imp.LocalName] = exportEntry{
			targetSpec: imp.Specifier,
			targetName: name,
			fromFile:   file.Path,
		}
	}
}

// rustExports: pub items only, plus methods from impl blocks injected under
// their own name so Type::method paths land without type analysis.
func (r *Resolver) rustExports(st *state, file *scope.FileAnalysis, root *scope.Scope, table map[string]exportEntry) {
	if root == nil {
		return
	}
	for name, entry := range root.Symbols {
		if !entry.Exported {
			continue
		}
		if entry.Kind == scope.SymbolImport {
			if imp := file.ImportByLocalName(name); imp != nil {
				targetName := name
				if imp.OriginalName != "" {
					targetName = imp.OriginalName
				}
				table[name] = exportEntry{
					targetSpec: imp.Specifier,
					targetName: targetName,
					fromFile:   file.Path,
				}
				continue
			}
		}
		def := Definition{Symbol: entry, Scope: root.ID, File: file.Path}
		table[name] = exportEntry{def: &def}
	}

	// pub use glob re-exports merge the target module's surface.
	for i := range file.Exports {
		exp := &file.Exports[i]
		if exp.ExportedName != "*" || exp.ReexportOf == "" {
			continue
		}
		res := modpath.Resolve(file.Language, exp.ReexportOf, file.Path, r.snap.Tree())
		if res.External || res.Unresolved {
			continue
		}
		target := r.snap.File(res.Path)
		if target == nil || !st.enter(target.Path, "*") {
			continue
		}
		st.touch(target.Path)
		for name, entry := range r.exportTable(st, target) {
			if _, taken := table[name]; !taken {
				table[name] = entry
			}
		}
	}

	// Impl methods surface as likely matches under the bare method name.
	for _, child := range root.Children {
		sc := file.ScopeByID(child)
		if sc == nil || sc.Kind != scope.ScopeClass {
			continue
		}
		for name, entry := range sc.Symbols {
			if entry.Kind != scope.SymbolMethod || !entry.Exported {
				continue
			}
			if _, taken := table[name]; taken {
				continue
			}
			def := Definition{Symbol: entry, Scope: sc.ID, File: file.Path}
			table[name] = exportEntry{def: &def, likely: true}
		}
	}
}

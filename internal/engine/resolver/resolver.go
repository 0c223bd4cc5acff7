package resolver

import (
	"fmt"
	"strings"

	"lattice/internal/engine/modpath"
	"lattice/internal/engine/parser"
	"lattice/internal/engine/scope"
	"lattice/internal/shared/observability"
)

// Resolver answers "what does this name refer to" questions against a
// Snapshot. Safe for concurrent use; all lookups are read-only against the
// snapshot and the memo cache synchronizes itself.
type Resolver struct {
	snap *Snapshot
	memo *memoCache
}

func New(snap *Snapshot) *Resolver {
	return &Resolver{snap: snap, memo: newMemoCache()}
}

// Snapshot returns the snapshot this resolver reads from.
func (r *Resolver) Snapshot() *Snapshot { return r.snap }

// Rebase points the resolver at a new snapshot and drops memo entries whose
// consulted files changed between the two.
func (r *Resolver) Rebase(snap *Snapshot, changed []string) {
	r.snap = snap
	for _, path := range changed {
		r.memo.invalidateFile(path)
	}
}

// state accumulates the files a single resolution touched, so the memo cache
// can invalidate precisely when one of them changes.
type state struct {
	consulted map[string]struct{}
	visited   map[string]struct{}
	circular  bool
}

func newState() *state {
	return &state{
		consulted: make(map[string]struct{}),
		visited:   make(map[string]struct{}),
	}
}

func (s *state) touch(path string) {
	if path != "" {
		s.consulted[path] = struct{}{}
	}
}

func (s *state) enter(path, name string) bool {
	key := path + "\x00" + name
	if _, seen := s.visited[key]; seen {
		s.circular = true
		return false
	}
	s.visited[key] = struct{}{}
	return true
}

func (s *state) files() []string {
	out := make([]string, 0, len(s.consulted))
	for f := range s.consulted {
		out = append(out, f)
	}
	return out
}

// Resolve resolves one reference recorded in fromFile. A nil ResolvedSymbol
// with StatusUnresolved means no binding was found; the miss is data, not an
// error.
func (r *Resolver) Resolve(fromFile string, ref scope.Reference) (*ResolvedSymbol, Status) {
	key := memoKey(fromFile, ref)
	if sym, status, ok := r.memo.get(key); ok {
		observability.MemoCacheHits.Inc()
		return sym, status
	}
	observability.MemoCacheMisses.Inc()

	st := newState()
	sym, status := r.resolve(st, fromFile, ref)
	if st.circular && status == StatusUnresolved {
		status = StatusCircular
	}
	r.memo.put(key, sym, status, st.files())
	if sym != nil {
		observability.Resolutions.WithLabelValues(sym.Source.String(), sym.Confidence.String()).Inc()
	}
	return sym, status
}

func memoKey(fromFile string, ref scope.Reference) string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%s\x00%d:%d",
		fromFile, ref.Name, strings.Join(ref.Path, "."), ref.Scope,
		ref.Location.StartLine, ref.Location.StartColumn)
}

func (r *Resolver) resolve(st *state, fromFile string, ref scope.Reference) (*ResolvedSymbol, Status) {
	file := r.snap.File(fromFile)
	if file == nil {
		return nil, StatusUnresolved
	}
	st.touch(fromFile)

	// 1. Scope-chain walk, innermost first. Within the reference's own scope
	// a non-hoisted declaration must not sit after the use site.
	sc := file.ScopeByID(ref.Scope)
	for sc != nil {
		if entry, ok := sc.Symbols[ref.Name]; ok {
			usable := entry.Hoisted || sc.ID != ref.Scope || !ref.Location.Before(entry.Location)
			if usable {
				if entry.Kind == scope.SymbolImport {
					if imp := file.ImportByLocalName(ref.Name); imp != nil {
						return r.resolveThroughImport(st, file, imp, ref)
					}
				}
				return r.localHit(file, sc, entry, ref), StatusResolved
			}
		}
		sc = file.ScopeByID(sc.Parent)
	}

	// 2. Self keywords bind to enclosing anchors, not symbol tables.
	if sym := r.resolveSelfKeyword(file, ref); sym != nil {
		return sym, StatusResolved
	}

	// 3. Rust path roots: a qualified crate::/self::/super:: call site names
	// the module tree directly, no use binding involved.
	if file.Language == parser.LangRust && len(ref.Path) > 0 {
		switch ref.Name {
		case "crate", "self", "super":
			return r.resolveRustPathRef(st, file, ref)
		}
	}

	// 4. Import fallthrough for bindings the walker recorded only as import
	// statements (e.g. Rust use paths referenced by their full path).
	if imp := file.ImportByLocalName(ref.Name); imp != nil {
		return r.resolveThroughImport(st, file, imp, ref)
	}

	// Glob imports make every export of their target visible without a
	// local binding. A hit here is a guess, not a certainty.
	if sym, status := r.resolveThroughGlobs(st, file, ref); sym != nil || status == StatusCircular {
		return sym, status
	}

	// 5. Language prelude.
	if entry, ok := preludeLookup(file.Language, ref.Name); ok {
		return &ResolvedSymbol{
			Definition:   Definition{Symbol: entry},
			Confidence:   ConfidenceExact,
			Source:       SourceExternal,
			ExternalName: preludeName(file.Language),
		}, StatusExternal
	}

	return nil, StatusUnresolved
}

// localHit wraps a scope-chain match. Member paths hanging off a local
// binding (obj.method) resolve to the binding itself; chasing fields would
// need type inference.
func (r *Resolver) localHit(file *scope.FileAnalysis, sc *scope.Scope, entry scope.SymbolEntry, ref scope.Reference) *ResolvedSymbol {
	conf := ConfidenceExact
	if len(ref.Path) > 0 {
		conf = ConfidenceLikely
	}
	return &ResolvedSymbol{
		Definition: Definition{Symbol: entry, Scope: sc.ID, File: file.Path},
		Confidence: conf,
		Source:     SourceLocal,
	}
}

// resolveSelfKeyword handles this/self/cls/super/Self. The instance keywords
// anchor to the nearest method-flagged function scope, the type keywords to
// the nearest class scope.
func (r *Resolver) resolveSelfKeyword(file *scope.FileAnalysis, ref scope.Reference) *ResolvedSymbol {
	// Rust has no super.member syntax; super is always a module path root.
	if file.Language == parser.LangRust && ref.Name == "super" {
		return nil
	}

	wantClass := false
	switch ref.Name {
	case "this", "self", "cls":
	case "super", "Self":
		wantClass = true
	default:
		return nil
	}

	sc := file.ScopeByID(ref.Scope)
	for sc != nil {
		hit := false
		if wantClass {
			hit = sc.Kind == scope.ScopeClass
		} else {
			hit = sc.Kind == scope.ScopeFunction && sc.IsMethod
		}
		if hit {
			kind := scope.SymbolClass
			if !wantClass {
				kind = scope.SymbolMethod
			}
			return &ResolvedSymbol{
				Definition: Definition{
					Symbol: scope.SymbolEntry{Name: sc.Name, Kind: kind, Location: sc.Location},
					Scope:  sc.ID,
					File:   file.Path,
				},
				Confidence: ConfidenceExact,
				Source:     SourceLocal,
			}
		}
		sc = file.ScopeByID(sc.Parent)
	}
	return nil
}

// resolveThroughImport follows one import binding to its definition in the
// target module, delegating into namespaces for member paths.
func (r *Resolver) resolveThroughImport(st *state, file *scope.FileAnalysis, imp *scope.Import, ref scope.Reference) (*ResolvedSymbol, Status) {
	res := modpath.Resolve(file.Language, imp.Specifier, file.Path, r.snap.Tree())
	if res.External {
		return &ResolvedSymbol{
			Definition: Definition{
				Symbol: scope.SymbolEntry{Name: ref.Name, Kind: scope.SymbolImport, Location: imp.Location},
				File:   file.Path,
			},
			Confidence:   ConfidenceLikely,
			Source:       SourceExternal,
			ExternalName: res.ExternalName,
		}, StatusExternal
	}
	if res.Unresolved {
		return nil, StatusUnresolved
	}

	target := r.snap.File(res.Path)
	if target == nil {
		return nil, StatusUnresolved
	}
	st.touch(target.Path)

	// Namespace bindings delegate member paths into the target's export
	// table; the bare name is the module itself.
	if imp.IsNamespace {
		if len(ref.Path) == 0 {
			return moduleSymbol(target), StatusResolved
		}
		return r.resolveMember(st, target, ref.Path)
	}

	wanted := imp.LocalName
	if imp.OriginalName != "" {
		wanted = imp.OriginalName
	}
	if imp.IsDefault {
		wanted = "default"
	}
	if file.Language == parser.LangRust {
		return r.resolveRustUse(st, imp, res.Path, wanted, ref)
	}

	sym, status := r.lookupExport(st, target, wanted, ref.Path)
	if sym == nil || status != StatusResolved {
		return sym, status
	}
	out := *sym
	out.Source = SourceImport
	return &out, status
}

// resolveRustUse disambiguates whether a use path named a module or an item.
// When the path resolved to the module whose name matches the trailing
// segment, the binding is the module itself and member paths traverse it.
func (r *Resolver) resolveRustUse(st *state, imp *scope.Import, targetPath, wanted string, ref scope.Reference) (*ResolvedSymbol, Status) {
	target := r.snap.File(targetPath)
	if target == nil {
		return nil, StatusUnresolved
	}
	if rustFileOwnsName(targetPath, wanted) {
		if len(ref.Path) == 0 {
			return moduleSymbol(target), StatusResolved
		}
		return r.resolveMember(st, target, ref.Path)
	}
	sym, status := r.lookupExport(st, target, wanted, ref.Path)
	if sym == nil || status != StatusResolved {
		return sym, status
	}
	out := *sym
	out.Source = SourceImport
	return &out, status
}

// resolveRustPathRef resolves a fully qualified path reference the same way
// a use specifier would: the module path resolver finds the file owning the
// longest module prefix, the trailing segment is looked up there.
func (r *Resolver) resolveRustPathRef(st *state, file *scope.FileAnalysis, ref scope.Reference) (*ResolvedSymbol, Status) {
	spec := ref.Name + "::" + strings.Join(ref.Path, "::")
	res := modpath.Resolve(parser.LangRust, spec, file.Path, r.snap.Tree())
	if res.External {
		return &ResolvedSymbol{
			Definition: Definition{
				Symbol: scope.SymbolEntry{Name: ref.Name, Kind: scope.SymbolImport, Location: ref.Location},
				File:   file.Path,
			},
			Confidence:   ConfidenceLikely,
			Source:       SourceExternal,
			ExternalName: res.ExternalName,
		}, StatusExternal
	}
	if res.Unresolved {
		return nil, StatusUnresolved
	}
	target := r.snap.File(res.Path)
	if target == nil {
		return nil, StatusUnresolved
	}
	st.touch(target.Path)

	wanted := ref.Path[len(ref.Path)-1]
	if rustFileOwnsName(res.Path, wanted) {
		return moduleSymbol(target), StatusResolved
	}
	sym, status := r.lookupExport(st, target, wanted, nil)
	if sym == nil || status != StatusResolved {
		return sym, status
	}
	out := *sym
	out.Source = SourceImport
	return &out, status
}

// rustFileOwnsName reports whether a resolved file is the module named by the
// trailing use-path segment (utils/helpers.rs or utils/helpers/mod.rs for
// "helpers").
func rustFileOwnsName(path, name string) bool {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if base == name+".rs" {
		return true
	}
	if base == "mod.rs" {
		dir := path[:len(path)-len("/mod.rs")]
		if i := strings.LastIndexByte(dir, '/'); i >= 0 {
			dir = dir[i+1:]
		}
		return dir == name
	}
	return false
}

// resolveThroughGlobs scans wildcard imports (Python from-import-*, Rust
// use-glob) for the name.
func (r *Resolver) resolveThroughGlobs(st *state, file *scope.FileAnalysis, ref scope.Reference) (*ResolvedSymbol, Status) {
	for i := range file.Imports {
		imp := &file.Imports[i]
		if !imp.IsGlob {
			continue
		}
		res := modpath.Resolve(file.Language, imp.Specifier, file.Path, r.snap.Tree())
		if res.External || res.Unresolved {
			continue
		}
		target := r.snap.File(res.Path)
		if target == nil {
			continue
		}
		st.touch(target.Path)
		sym, status := r.lookupExport(st, target, ref.Name, ref.Path)
		if status == StatusCircular {
			return nil, status
		}
		if sym != nil {
			out := *sym
			out.Confidence = ConfidenceLikely
			if status == StatusResolved {
				out.Source = SourceImport
			}
			return &out, status
		}
	}
	return nil, StatusUnresolved
}

func moduleSymbol(target *scope.FileAnalysis) *ResolvedSymbol {
	root := target.RootScope()
	def := Definition{File: target.Path}
	if root != nil {
		def.Scope = root.ID
		def.Symbol = scope.SymbolEntry{Name: root.Name, Kind: scope.SymbolModule, Location: root.Location}
	}
	return &ResolvedSymbol{Definition: def, Confidence: ConfidenceExact, Source: SourceImport}
}

package resolver

import (
	"sort"
	"time"

	"lattice/internal/engine/modpath"
	"lattice/internal/shared/observability"
)

// ResolveFile resolves every reference and import recorded for one file and
// returns the misses as diagnostics.
func (r *Resolver) ResolveFile(path string) []Diagnostic {
	file := r.snap.File(path)
	if file == nil {
		return nil
	}
	start := time.Now()
	var diags []Diagnostic

	if file.Malformed > 0 {
		diags = append(diags, Diagnostic{Kind: DiagMalformedScope, File: path})
	}

	for i := range file.Imports {
		imp := &file.Imports[i]
		res := modpath.Resolve(file.Language, imp.Specifier, path, r.snap.Tree())
		if res.Unresolved {
			observability.UnresolvedImports.Inc()
			diags = append(diags, Diagnostic{
				Kind:      DiagUnresolvedImport,
				File:      path,
				Name:      imp.LocalName,
				Specifier: imp.Specifier,
				Location:  imp.Location,
			})
		}
	}

	for i := range file.References {
		ref := file.References[i]
		sym, status := r.Resolve(path, ref)
		switch status {
		case StatusCircular:
			diags = append(diags, Diagnostic{
				Kind:     DiagCircularReexport,
				File:     path,
				Name:     ref.Name,
				Location: ref.Location,
			})
		case StatusUnresolved:
			if sym == nil {
				observability.UnresolvedReferences.Inc()
				diags = append(diags, Diagnostic{
					Kind:     DiagUnresolvedReference,
					File:     path,
					Name:     ref.Name,
					Location: ref.Location,
				})
			}
		}
	}

	observability.ResolveDuration.Observe(time.Since(start).Seconds())
	return diags
}

// ResolveAll runs ResolveFile over the whole snapshot in path order.
func (r *Resolver) ResolveAll() []Diagnostic {
	paths := make([]string, 0, r.snap.FileCount())
	for path := range r.snap.Files() {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	var diags []Diagnostic
	for _, path := range paths {
		diags = append(diags, r.ResolveFile(path)...)
	}
	return diags
}

package modpath

import (
	"path"
	"strings"

	"lattice/internal/shared/util"
)

var (
	jsExtensions = []string{".js", ".mjs", ".cjs"}
	tsExtensions = []string{".ts", ".tsx", ".js", ".jsx"}
)

// resolveECMAScript handles `./` and `../` specifiers relative to the
// importing file's directory. Probe order: exact path, each extension
// appended, then index.* inside a same-named directory. Non-relative
// specifiers are external package references; node_modules is never probed.
func resolveECMAScript(specifier, fromFile string, tree FileTreeView, extensions []string) Result {
	if !isRelativeSpecifier(specifier) {
		return Result{Specifier: specifier, External: true, ExternalName: packageName(specifier)}
	}

	base := path.Join(path.Dir(util.NormalizePath(fromFile)), specifier)
	base = util.NormalizePath(base)

	if tree.Exists(base) && !tree.IsDir(base) {
		return Result{Specifier: specifier, Path: base}
	}
	for _, ext := range extensions {
		if candidate := base + ext; tree.Exists(candidate) && !tree.IsDir(candidate) {
			return Result{Specifier: specifier, Path: candidate}
		}
	}
	if tree.IsDir(base) {
		for _, ext := range extensions {
			if candidate := path.Join(base, "index"+ext); tree.Exists(candidate) {
				return Result{Specifier: specifier, Path: candidate}
			}
		}
	}

	// Deterministic best guess keeps the graph buildable; the edge is
	// reported as an unresolved import.
	return Result{Specifier: specifier, Path: base + extensions[0], Unresolved: true}
}

// resolveTypeScript follows the ESM convention of writing JS extensions for
// TS files: when the literal extension is .js/.mjs/.jsx, the corresponding
// .ts/.tsx candidates are probed before the generic list.
func resolveTypeScript(specifier, fromFile string, tree FileTreeView) Result {
	if !isRelativeSpecifier(specifier) {
		return Result{Specifier: specifier, External: true, ExternalName: packageName(specifier)}
	}

	rewrites := map[string][]string{
		".js":  {".ts", ".tsx"},
		".mjs": {".mts"},
		".jsx": {".tsx"},
	}
	ext := path.Ext(specifier)
	if tsCandidates, ok := rewrites[ext]; ok {
		stem := strings.TrimSuffix(specifier, ext)
		base := util.NormalizePath(path.Join(path.Dir(util.NormalizePath(fromFile)), stem))
		for _, tsExt := range tsCandidates {
			if candidate := base + tsExt; tree.Exists(candidate) && !tree.IsDir(candidate) {
				return Result{Specifier: specifier, Path: candidate}
			}
		}
	}

	return resolveECMAScript(specifier, fromFile, tree, tsExtensions)
}

func isRelativeSpecifier(specifier string) bool {
	return strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") ||
		specifier == "." || specifier == ".."
}

// packageName extracts the bare package identity from a non-relative
// specifier: "lodash/fp" -> "lodash", "@scope/pkg/util" -> "@scope/pkg".
func packageName(specifier string) string {
	parts := strings.Split(specifier, "/")
	if strings.HasPrefix(specifier, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

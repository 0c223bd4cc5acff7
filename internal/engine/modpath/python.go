package modpath

import (
	"path"
	"strings"

	"lattice/internal/shared/util"
)

// resolvePython resolves bare/dotted module specifiers sibling-first: the
// importing file's own directory is probed before walking up toward the
// project root (mirrors sys.path[0] semantics). Leading dots walk up that
// many parent directories from the importing file, one dot meaning the same
// directory. Each segment resolves to <name>.py or <name>/__init__.py with
// the plain file preferred.
func resolvePython(specifier, fromFile string, tree FileTreeView) Result {
	fromDir := path.Dir(util.NormalizePath(fromFile))
	if fromDir == "." {
		fromDir = ""
	}

	dots := 0
	for dots < len(specifier) && specifier[dots] == '.' {
		dots++
	}
	rest := specifier[dots:]

	if dots > 0 {
		base := fromDir
		for i := 1; i < dots; i++ {
			base = parentDir(base)
		}
		if target, ok := probePythonModule(base, rest, tree); ok {
			return Result{Specifier: specifier, Path: target}
		}
		guess := pythonGuessPath(base, rest)
		return Result{Specifier: specifier, Path: guess, Unresolved: true}
	}

	// Sibling-first, then ancestors up to the project root. Two unrelated
	// directories with same-named modules each resolve to their own sibling.
	for base := fromDir; ; base = parentDir(base) {
		if target, ok := probePythonModule(base, rest, tree); ok {
			return Result{Specifier: specifier, Path: target}
		}
		if base == "" {
			break
		}
	}

	// Bare specifiers with no candidate are treated as stdlib or installed
	// packages.
	first := strings.SplitN(rest, ".", 2)[0]
	return Result{Specifier: specifier, External: true, ExternalName: first}
}

// probePythonModule resolves the dotted path under base. An empty dotted
// path (from `from . import x`) targets the package __init__.py itself.
func probePythonModule(base, dotted string, tree FileTreeView) (string, bool) {
	if dotted == "" {
		init := path.Join(base, "__init__.py")
		if tree.Exists(init) {
			return util.NormalizePath(init), true
		}
		return "", false
	}

	joined := path.Join(base, strings.ReplaceAll(dotted, ".", "/"))
	joined = util.NormalizePath(joined)

	if candidate := joined + ".py"; tree.Exists(candidate) && !tree.IsDir(candidate) {
		return candidate, true
	}
	if candidate := path.Join(joined, "__init__.py"); tree.Exists(candidate) {
		return util.NormalizePath(candidate), true
	}
	return "", false
}

func pythonGuessPath(base, dotted string) string {
	if dotted == "" {
		return util.NormalizePath(path.Join(base, "__init__.py"))
	}
	return util.NormalizePath(path.Join(base, strings.ReplaceAll(dotted, ".", "/"))) + ".py"
}

func parentDir(dir string) string {
	if dir == "" || dir == "." {
		return ""
	}
	parent := path.Dir(dir)
	if parent == "." || parent == "/" {
		return ""
	}
	return parent
}

package modpath

import (
	"path"
	"strings"

	"lattice/internal/shared/util"
)

// resolveRust handles `crate`, `self` and `super` rooted paths. The crate
// root is the nearest lib.rs/main.rs found walking upward from the importing
// file, optionally under src/ confirmed by a sibling Cargo.toml. Each path
// segment resolves to <segment>.rs or <segment>/mod.rs, file preferred.
// Unknown roots are external-crate references.
func resolveRust(specifier, fromFile string, tree FileTreeView) Result {
	segments := strings.Split(specifier, "::")
	if len(segments) == 0 || segments[0] == "" {
		return Result{Specifier: specifier, External: true, ExternalName: specifier}
	}

	from := util.NormalizePath(fromFile)
	fromDir := path.Dir(from)
	if fromDir == "." {
		fromDir = ""
	}

	rest := segments[1:]
	var baseDir string
	switch segments[0] {
	case "crate":
		rootFile, ok := findCrateRoot(fromDir, tree)
		if !ok {
			guess := rustGuessPath("", rest)
			return Result{Specifier: specifier, Path: guess, Unresolved: true}
		}
		baseDir = path.Dir(rootFile)
		if baseDir == "." {
			baseDir = ""
		}
	case "self":
		baseDir = rustModuleDir(from)
	case "super":
		baseDir = parentDir(rustModuleDir(from))
		for len(rest) > 0 && rest[0] == "super" {
			baseDir = parentDir(baseDir)
			rest = rest[1:]
		}
	default:
		// A bare root can name a sibling module of the importing file
		// (`use server::serve;` next to server.rs); only when no sibling
		// exists is it an external crate.
		selfDir := rustModuleDir(from)
		for cut := len(segments); cut >= 1; cut-- {
			if target, ok := probeRustModule(selfDir, segments[:cut], tree); ok {
				return Result{Specifier: specifier, Path: target}
			}
		}
		return Result{Specifier: specifier, External: true, ExternalName: segments[0]}
	}
	if len(rest) == 0 {
		// `use crate;` style paths point at the module itself.
		if target, ok := probeRustModule(baseDir, nil, tree); ok {
			return Result{Specifier: specifier, Path: target}
		}
		return Result{Specifier: specifier, Path: rustGuessPath(baseDir, nil), Unresolved: true}
	}

	// The final segment may name an item inside the module rather than a
	// module file; probe the longest module prefix first, trimming one
	// trailing segment at a time.
	for cut := len(rest); cut >= 1; cut-- {
		if target, ok := probeRustModule(baseDir, rest[:cut], tree); ok {
			return Result{Specifier: specifier, Path: target}
		}
	}
	// A single remaining segment may be an item defined in the base module
	// itself rather than a module file.
	if len(rest) == 1 {
		if target, ok := probeRustModule(baseDir, nil, tree); ok {
			return Result{Specifier: specifier, Path: target}
		}
	}

	return Result{Specifier: specifier, Path: rustGuessPath(baseDir, rest), Unresolved: true}
}

// probeRustModule resolves dir + segments to <...>/seg.rs or <...>/seg/mod.rs.
func probeRustModule(baseDir string, segments []string, tree FileTreeView) (string, bool) {
	if len(segments) == 0 {
		for _, name := range []string{"lib.rs", "main.rs", "mod.rs"} {
			if candidate := util.NormalizePath(path.Join(baseDir, name)); tree.Exists(candidate) {
				return candidate, true
			}
		}
		return "", false
	}

	joined := path.Join(append([]string{baseDir}, segments...)...)
	joined = util.NormalizePath(joined)

	if candidate := joined + ".rs"; tree.Exists(candidate) && !tree.IsDir(candidate) {
		return candidate, true
	}
	if candidate := path.Join(joined, "mod.rs"); tree.Exists(candidate) {
		return util.NormalizePath(candidate), true
	}
	return "", false
}

// findCrateRoot walks upward from dir looking for lib.rs or main.rs; a hit
// under src/ is confirmed by a Cargo.toml next to the src directory.
func findCrateRoot(dir string, tree FileTreeView) (string, bool) {
	for d := dir; ; d = parentDir(d) {
		for _, name := range []string{"lib.rs", "main.rs"} {
			candidate := util.NormalizePath(path.Join(d, name))
			if !tree.Exists(candidate) {
				continue
			}
			if path.Base(d) == "src" {
				manifest := util.NormalizePath(path.Join(parentDir(d), "Cargo.toml"))
				if tree.Exists(manifest) {
					return candidate, true
				}
			}
			return candidate, true
		}
		if d == "" {
			return "", false
		}
	}
}

// rustModuleDir returns the directory a file's `self::` paths are rooted in:
// mod.rs/lib.rs/main.rs own their directory, any other file owns a child
// directory named after it.
func rustModuleDir(file string) string {
	base := path.Base(file)
	dir := path.Dir(file)
	if dir == "." {
		dir = ""
	}
	switch base {
	case "mod.rs", "lib.rs", "main.rs":
		return dir
	default:
		return util.NormalizePath(path.Join(dir, strings.TrimSuffix(base, ".rs")))
	}
}

func rustGuessPath(baseDir string, segments []string) string {
	if len(segments) == 0 {
		return util.NormalizePath(path.Join(baseDir, "mod.rs"))
	}
	joined := path.Join(append([]string{baseDir}, segments...)...)
	return util.NormalizePath(joined) + ".rs"
}

package app

import (
	"io/fs"
	"path/filepath"

	"github.com/gobwas/glob"

	"lattice/internal/core/errors"
)

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.AddContext(
				errors.Wrap(err, errors.CodeValidationError, "compile glob"), "pattern", p)
		}
		out = append(out, g)
	}
	return out, nil
}

// walkRoot collects supported source files under one root as
// project-relative slash paths, honoring the exclude globs. Patterns match
// both the base name and the relative path, so "**/node_modules" and
// "vendor" both work.
func walkRoot(a *App, absRoot string, dirGlobs, fileGlobs []glob.Glob) ([]string, error) {
	var files []string
	err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := a.relPath(path)
		if relErr != nil {
			return relErr
		}

		if d.IsDir() {
			if rel != "" && rel != "." && matchesAny(dirGlobs, d.Name(), rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !a.parser.IsSupportedPath(rel) {
			return nil
		}
		if matchesAny(fileGlobs, d.Name(), rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, errors.AddContext(
			errors.Wrap(err, errors.CodeInternal, "walk scan root"), errors.CtxPath, absRoot)
	}
	return files, nil
}

func matchesAny(globs []glob.Glob, base, rel string) bool {
	for _, g := range globs {
		if g.Match(base) || g.Match(rel) {
			return true
		}
	}
	return false
}

// Package resolver binds references to definitions across files. It walks
// scope chains, follows imports through the module path resolver, and chases
// namespace re-export chains. Everything operates on an immutable Snapshot;
// resolution is a pure function of (reference, snapshot) and is safe to run
// from many goroutines at once.
package resolver

import (
	"lattice/internal/engine/modpath"
	"lattice/internal/engine/scope"
)

// Snapshot is the resolution context: every per-file scope analysis plus the
// file tree view the module path resolver probes. It is assembled once after
// the parallel per-file builds and never mutated; an edit produces a new
// Snapshot.
type Snapshot struct {
	files map[string]*scope.FileAnalysis
	tree  modpath.FileTreeView
}

func NewSnapshot(analyses []*scope.FileAnalysis, tree modpath.FileTreeView) *Snapshot {
	files := make(map[string]*scope.FileAnalysis, len(analyses))
	for _, a := range analyses {
		files[a.Path] = a
	}
	return &Snapshot{files: files, tree: tree}
}

// File returns the analysis for a project-relative path, or nil.
func (s *Snapshot) File(path string) *scope.FileAnalysis {
	return s.files[path]
}

// FileCount reports how many files the snapshot holds.
func (s *Snapshot) FileCount() int {
	return len(s.files)
}

// Files returns the underlying analysis map. Callers must treat it as
// read-only.
func (s *Snapshot) Files() map[string]*scope.FileAnalysis {
	return s.files
}

// Tree exposes the file tree view for module path resolution.
func (s *Snapshot) Tree() modpath.FileTreeView {
	return s.tree
}

// WithFile returns a new Snapshot that replaces (or adds) one file's
// analysis. The original snapshot is untouched, so in-flight resolutions
// keep a consistent view.
func (s *Snapshot) WithFile(a *scope.FileAnalysis) *Snapshot {
	files := make(map[string]*scope.FileAnalysis, len(s.files)+1)
	for k, v := range s.files {
		files[k] = v
	}
	files[a.Path] = a
	return &Snapshot{files: files, tree: s.tree}
}

// WithoutFile returns a new Snapshot that drops one file.
func (s *Snapshot) WithoutFile(path string) *Snapshot {
	files := make(map[string]*scope.FileAnalysis, len(s.files))
	for k, v := range s.files {
		if k != path {
			files[k] = v
		}
	}
	return &Snapshot{files: files, tree: s.tree}
}

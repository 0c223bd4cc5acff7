package modpath

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"lattice/internal/shared/util"
)

// FileTreeView is a read-only view of the analyzed tree. The resolvers only
// ever ask "does this path exist" and "what is in this directory", so the
// view can be backed by a real filesystem or an in-memory fixture.
//
// All paths are project-relative with forward slashes.
type FileTreeView interface {
	Exists(path string) bool
	IsDir(path string) bool
	List(dir string) []string
}

// OSTree is a FileTreeView over a real directory root.
type OSTree struct {
	root string
}

func NewOSTree(root string) *OSTree {
	return &OSTree{root: root}
}

func (t *OSTree) abs(p string) string {
	return filepath.Join(t.root, filepath.FromSlash(p))
}

func (t *OSTree) Exists(p string) bool {
	_, err := os.Stat(t.abs(p))
	return err == nil
}

func (t *OSTree) IsDir(p string) bool {
	info, err := os.Stat(t.abs(p))
	return err == nil && info.IsDir()
}

func (t *OSTree) List(dir string) []string {
	entries, err := os.ReadDir(t.abs(dir))
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// MemTree is an in-memory FileTreeView for tests. Populate it with file
// paths; directories are implied.
type MemTree struct {
	files map[string]bool
	dirs  map[string]bool
}

func NewMemTree(paths ...string) *MemTree {
	t := &MemTree{
		files: make(map[string]bool),
		dirs:  map[string]bool{"": true, ".": true},
	}
	for _, p := range paths {
		t.Add(p)
	}
	return t
}

func (t *MemTree) Add(p string) {
	p = util.NormalizePath(p)
	t.files[p] = true
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		t.dirs[dir] = true
	}
}

func (t *MemTree) Exists(p string) bool {
	p = util.NormalizePath(p)
	return t.files[p] || t.dirs[p]
}

func (t *MemTree) IsDir(p string) bool {
	return t.dirs[util.NormalizePath(p)]
}

func (t *MemTree) List(dir string) []string {
	dir = util.NormalizePath(dir)
	seen := make(map[string]bool)
	prefix := dir + "/"
	if dir == "" {
		prefix = ""
	}
	for f := range t.files {
		if !strings.HasPrefix(f, prefix) {
			continue
		}
		rest := strings.TrimPrefix(f, prefix)
		seen[strings.SplitN(rest, "/", 2)[0]] = true
	}
	for d := range t.dirs {
		if !strings.HasPrefix(d, prefix) || d == dir {
			continue
		}
		rest := strings.TrimPrefix(d, prefix)
		seen[strings.SplitN(rest, "/", 2)[0]] = true
	}
	return util.SortedStringKeys(seen)
}

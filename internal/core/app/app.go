// Package app wires the scanner, parser, scope builder and resolver into the
// scan/resolve pipeline behind the CLI and watch mode.
package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"

	"lattice/internal/core/config"
	"lattice/internal/core/errors"
	"lattice/internal/data/cache"
	"lattice/internal/engine/modpath"
	"lattice/internal/engine/parser"
	"lattice/internal/engine/resolver"
	"lattice/internal/engine/scope"
	"lattice/internal/shared/observability"
	"lattice/internal/shared/util"
)

type App struct {
	Config *config.Config

	// Root is the absolute project root; every analysis path is relative to
	// it with forward slashes.
	Root string

	parser *parser.Parser
	store  *cache.Store

	mu       sync.RWMutex
	snapshot *resolver.Snapshot
	res      *resolver.Resolver
	hashes   map[string]string
}

func New(cfg *config.Config, root string) (*App, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "resolve project root")
	}

	loader, err := parser.NewGrammarLoader()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "load grammars")
	}

	a := &App{
		Config: cfg,
		Root:   absRoot,
		parser: parser.NewParser(loader),
		hashes: make(map[string]string),
	}

	if cfg.Cache.Enabled {
		storePath := cfg.Cache.Path
		if !filepath.IsAbs(storePath) {
			storePath = filepath.Join(absRoot, storePath)
		}
		store, err := cache.Open(storePath)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "open result cache")
		}
		a.store = store
	}

	empty := resolver.NewSnapshot(nil, modpath.NewOSTree(absRoot))
	a.snapshot = empty
	a.res = resolver.New(empty)
	return a, nil
}

func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// Resolver returns the current resolver. The returned value reads from an
// immutable snapshot and stays consistent even while a rescan runs.
func (a *App) Resolver() *resolver.Resolver {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.res
}

// Snapshot returns the current analysis snapshot.
func (a *App) Snapshot() *resolver.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// absRoot resolves a configured scan root against the project root.
func (a *App) absRoot(root string) string {
	if filepath.IsAbs(root) {
		return root
	}
	return filepath.Join(a.Root, root)
}

// relPath converts an absolute or root-relative OS path into the canonical
// project-relative slash form.
func (a *App) relPath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return util.NormalizePath(path), nil
	}
	rel, err := filepath.Rel(a.Root, path)
	if err != nil {
		return "", err
	}
	return util.NormalizePath(rel), nil
}

// analyzeFile parses and scope-builds one file. Returns the analysis and the
// content hash, or nil when the file is gone or unsupported.
func (a *App) analyzeFile(relPath string) (*scope.FileAnalysis, string, error) {
	if !a.parser.IsSupportedPath(relPath) {
		return nil, "", nil
	}
	lang := parser.DetectLanguage(relPath)
	if !a.Config.LanguageEnabled(lang) {
		return nil, "", nil
	}

	content, err := os.ReadFile(filepath.Join(a.Root, filepath.FromSlash(relPath)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", nil
		}
		return nil, "", errors.AddContext(
			errors.Wrap(err, errors.CodeInternal, "read source"), errors.CtxPath, relPath)
	}

	hash := hashContent(content)

	res, err := a.parser.ParseFile(relPath, content)
	if err != nil {
		wrapped := errors.Wrap(err, errors.CodeNotSupported, "parse source")
		wrapped = errors.AddContext(wrapped, errors.CtxPath, relPath)
		return nil, "", errors.AddContext(wrapped, errors.CtxLanguage, lang.String())
	}
	defer res.Close()

	return scope.BuildFile(res), hash, nil
}

// Scan analyzes every file under the configured roots in parallel and swaps
// in a fresh snapshot.
func (a *App) Scan(ctx context.Context) (int, error) {
	files, err := a.scanDirectories()
	if err != nil {
		return 0, err
	}

	workers := a.Config.Resolver.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	type result struct {
		analysis *scope.FileAnalysis
		hash     string
	}
	jobs := make(chan string)
	results := make(chan result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				analysis, hash, err := a.analyzeFile(path)
				if err != nil {
					slog.Warn("failed to analyze file", "path", path, "error", err)
					continue
				}
				if analysis != nil {
					results <- result{analysis: analysis, hash: hash}
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, path := range files {
			select {
			case jobs <- path:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	analyses := make([]*scope.FileAnalysis, 0, len(files))
	hashes := make(map[string]string, len(files))
	for r := range results {
		analyses = append(analyses, r.analysis)
		hashes[r.analysis.Path] = r.hash
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	snap := resolver.NewSnapshot(analyses, modpath.NewOSTree(a.Root))
	a.mu.Lock()
	a.snapshot = snap
	a.res = resolver.New(snap)
	a.hashes = hashes
	a.mu.Unlock()

	observability.FilesIndexed.Set(float64(len(analyses)))
	slog.Info("scan complete", "files", len(analyses), "workers", workers)
	return len(analyses), nil
}

// Rescan re-analyzes a batch of changed paths against the current snapshot
// and rebases the resolver so only affected memo entries drop.
func (a *App) Rescan(paths []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := a.snapshot
	changed := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := a.relPath(p)
		if err != nil {
			slog.Warn("skipping path outside project root", "path", p, "error", err)
			continue
		}
		analysis, hash, err := a.analyzeFile(rel)
		if err != nil {
			slog.Warn("failed to analyze file", "path", rel, "error", err)
			continue
		}
		if analysis == nil {
			if _, known := a.hashes[rel]; known {
				snap = snap.WithoutFile(rel)
				delete(a.hashes, rel)
				changed = append(changed, rel)
				if a.store != nil {
					if err := a.store.DropFile(rel); err != nil {
						slog.Warn("failed to drop cached result", "path", rel, "error", err)
					}
				}
			}
			continue
		}
		if a.hashes[rel] == hash {
			continue // content unchanged, keep memoized answers
		}
		snap = snap.WithFile(analysis)
		a.hashes[rel] = hash
		changed = append(changed, rel)
	}

	if len(changed) == 0 {
		return nil
	}
	a.snapshot = snap
	a.res.Rebase(snap, changed)
	observability.FilesIndexed.Set(float64(snap.FileCount()))
	slog.Debug("rescan applied", "changed", len(changed))
	return nil
}

func (a *App) scanDirectories() ([]string, error) {
	dirGlobs, err := compileGlobs(a.Config.Exclude.Dirs)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "exclude dir pattern")
	}
	fileGlobs, err := compileGlobs(a.Config.Exclude.Files)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "exclude file pattern")
	}

	seen := make(map[string]bool)
	var files []string
	for _, root := range a.Config.Paths.Roots {
		list, err := walkRoot(a, a.absRoot(root), dirGlobs, fileGlobs)
		if err != nil {
			return nil, err
		}
		for _, f := range list {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// NewRunID mints the identifier used to stamp one scan's persisted results.
func NewRunID() string {
	return uuid.NewString()
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

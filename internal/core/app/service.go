package app

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"lattice/internal/data/cache"
	"lattice/internal/engine/resolver"
	"lattice/internal/shared/observability"
)

// RunScan performs a full scan-and-resolve pass: walk the roots, parse and
// scope-build every file, resolve every reference, persist the outcome.
func (a *App) RunScan(ctx context.Context) (*Report, error) {
	runID := NewRunID()
	ctx, span := observability.Tracer.Start(ctx, "app.RunScan",
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	start := time.Now()
	filesScanned, err := a.Scan(ctx)
	if err != nil {
		return nil, err
	}

	diags := a.resolveAll(ctx)
	report := &Report{
		RunID:        runID,
		FilesScanned: filesScanned,
		Diagnostics:  diags,
		Duration:     time.Since(start),
	}
	a.attachSuggestions(report)

	if a.store != nil {
		a.persist(report)
	}
	span.SetAttributes(
		attribute.Int("scan.files", filesScanned),
		attribute.Int("scan.diagnostics", len(diags)),
	)
	return report, nil
}

// RunRescan applies a change batch and re-resolves the whole snapshot.
// The memo cache keeps answers whose consulted files did not change, so this
// is much cheaper than it reads.
func (a *App) RunRescan(ctx context.Context, changed []string) (*Report, error) {
	runID := NewRunID()
	ctx, span := observability.Tracer.Start(ctx, "app.RunRescan",
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	start := time.Now()
	if err := a.Rescan(changed); err != nil {
		return nil, err
	}

	diags := a.resolveAll(ctx)
	report := &Report{
		RunID:        runID,
		FilesScanned: a.Snapshot().FileCount(),
		Diagnostics:  diags,
		Duration:     time.Since(start),
	}
	a.attachSuggestions(report)

	if a.store != nil {
		a.persist(report)
	}
	return report, nil
}

func (a *App) resolveAll(ctx context.Context) []resolver.Diagnostic {
	_, span := observability.Tracer.Start(ctx, "app.resolveAll")
	defer span.End()
	return a.Resolver().ResolveAll()
}

// attachSuggestions fills "did you mean" candidates for unresolved
// references.
func (a *App) attachSuggestions(report *Report) {
	limit := a.Config.Resolver.MaxSuggestions
	if limit <= 0 {
		return
	}
	res := a.Resolver()
	snap := res.Snapshot()

	report.Suggestions = make(map[int][]string)
	for i, d := range report.Diagnostics {
		if d.Kind != resolver.DiagUnresolvedReference {
			continue
		}
		file := snap.File(d.File)
		if file == nil {
			continue
		}
		for _, ref := range file.References {
			if ref.Name != d.Name || ref.Location != d.Location {
				continue
			}
			for _, s := range res.SuggestSimilar(d.File, ref, limit) {
				report.Suggestions[i] = append(report.Suggestions[i], s.Definition.Symbol.Name)
			}
			break
		}
	}
}

// persist writes per-file outcomes and the run record to the sqlite cache.
func (a *App) persist(report *Report) {
	a.mu.RLock()
	snap := a.snapshot
	hashes := make(map[string]string, len(a.hashes))
	for k, v := range a.hashes {
		hashes[k] = v
	}
	a.mu.RUnlock()

	byFile := make(map[string][]cache.StoredDiagnostic)
	unresolved := make(map[string]int)
	for _, d := range report.Diagnostics {
		byFile[d.File] = append(byFile[d.File], cache.StoredDiagnostic{
			Kind:      d.Kind.String(),
			Name:      d.Name,
			Specifier: d.Specifier,
			Line:      d.Location.StartLine,
			Column:    d.Location.StartColumn,
		})
		if d.Kind == resolver.DiagUnresolvedReference {
			unresolved[d.File]++
		}
	}

	for path, analysis := range snap.Files() {
		hash := hashes[path]
		if hash == "" {
			continue
		}
		err := a.store.SaveFileResult(cache.FileResult{
			Path:            path,
			ContentHash:     hash,
			RunID:           report.RunID,
			Language:        analysis.Language.String(),
			ReferenceCount:  len(analysis.References),
			UnresolvedCount: unresolved[path],
			Diagnostics:     byFile[path],
		})
		if err != nil {
			slog.Warn("failed to persist file result", "path", path, "error", err)
		}
	}

	err := a.store.SaveRun(cache.Run{
		ID:              report.RunID,
		Timestamp:       time.Now().UTC(),
		FileCount:       report.FilesScanned,
		DiagnosticCount: len(report.Diagnostics),
	})
	if err != nil {
		slog.Warn("failed to persist run record", "run", report.RunID, "error", err)
	}
}

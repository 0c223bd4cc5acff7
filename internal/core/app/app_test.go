package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lattice/internal/core/config"
	"lattice/internal/core/errors"
	"lattice/internal/engine/resolver"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func newTestApp(t *testing.T, root string) *App {
	t.Helper()
	a, err := New(config.Default(), root)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestRunScanEndToEnd(t *testing.T) {
	root := writeProject(t, map[string]string{
		"lib/math.js":       "export function add(a, b) { return a + b }\n",
		"main.js":           "import { add } from './lib/math'\nadd(1, 2)\nmissing_fn()\n",
		"node_modules/x.js": "broken(((\n",
	})
	a := newTestApp(t, root)

	report, err := a.RunScan(context.Background())
	if err != nil {
		t.Fatalf("run scan: %v", err)
	}
	if report.FilesScanned != 2 {
		t.Errorf("files scanned = %d, want 2 (node_modules excluded)", report.FilesScanned)
	}
	counts := report.Counts()
	if counts[resolver.DiagUnresolvedReference] != 1 {
		t.Errorf("unresolved references = %d, want 1 (%+v)", counts[resolver.DiagUnresolvedReference], report.Diagnostics)
	}
	if report.RunID == "" {
		t.Error("report needs a run id")
	}
}

func TestRescanPicksUpEdits(t *testing.T) {
	root := writeProject(t, map[string]string{
		"main.py": "helper()\n",
	})
	a := newTestApp(t, root)

	report, err := a.RunScan(context.Background())
	if err != nil {
		t.Fatalf("run scan: %v", err)
	}
	if len(report.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %+v, want one unresolved reference", report.Diagnostics)
	}

	// Define the missing function and rescan.
	path := filepath.Join(root, "main.py")
	if err := os.WriteFile(path, []byte("def helper():\n    pass\n\nhelper()\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	report, err = a.RunRescan(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if !report.Clean() {
		t.Errorf("diagnostics after fix = %+v, want none", report.Diagnostics)
	}

	// Deleting the file empties the snapshot.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, err := a.RunRescan(context.Background(), []string{path}); err != nil {
		t.Fatalf("rescan after delete: %v", err)
	}
	if a.Snapshot().FileCount() != 0 {
		t.Errorf("file count = %d, want 0 after deletion", a.Snapshot().FileCount())
	}
}

func TestRescanSkipsUnchangedContent(t *testing.T) {
	root := writeProject(t, map[string]string{
		"a.py": "x = 1\n",
	})
	a := newTestApp(t, root)
	if _, err := a.RunScan(context.Background()); err != nil {
		t.Fatal(err)
	}

	before := a.Snapshot()
	if err := a.Rescan([]string{filepath.Join(root, "a.py")}); err != nil {
		t.Fatal(err)
	}
	if a.Snapshot() != before {
		t.Error("rescan of unchanged content should keep the snapshot")
	}
}

func TestReportRenderAndSuggestions(t *testing.T) {
	root := writeProject(t, map[string]string{
		"main.py": "def compute_total(items):\n    pass\n\ncompute_totl([])\n",
	})
	a := newTestApp(t, root)

	report, err := a.RunScan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	if err := report.Render(&sb); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, "compute_totl") {
		t.Errorf("report missing the unresolved name:\n%s", out)
	}
	if !strings.Contains(out, "did you mean compute_total") {
		t.Errorf("report missing the suggestion:\n%s", out)
	}
}

func TestReportErrCarriesDiagnosticCode(t *testing.T) {
	clean := &Report{}
	if err := clean.Err(); err != nil {
		t.Fatalf("clean report should carry no error, got %v", err)
	}

	cases := []struct {
		kind resolver.DiagnosticKind
		code errors.ErrorCode
	}{
		{resolver.DiagUnresolvedReference, errors.CodeUnresolvedReference},
		{resolver.DiagUnresolvedImport, errors.CodeUnresolvedImport},
		{resolver.DiagCircularReexport, errors.CodeCircularReexport},
		{resolver.DiagMalformedScope, errors.CodeMalformedScope},
	}
	for _, tc := range cases {
		report := &Report{Diagnostics: []resolver.Diagnostic{{Kind: tc.kind, File: "main.js", Name: "x"}}}
		err := report.Err()
		if err == nil {
			t.Fatalf("%v: expected an error", tc.kind)
		}
		if !errors.IsCode(err, tc.code) {
			t.Errorf("%v: code = %v, want %v", tc.kind, err, tc.code)
		}
	}
}

func TestScanPersistsToCache(t *testing.T) {
	root := writeProject(t, map[string]string{
		"main.js": "nowhere()\n",
	})
	cfg := config.Default()
	cfg.Cache.Enabled = true
	a, err := New(cfg, root)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()

	if _, err := a.RunScan(context.Background()); err != nil {
		t.Fatal(err)
	}

	runs, err := a.store.RecentRuns(1)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 1 || runs[0].DiagnosticCount != 1 {
		t.Errorf("runs = %+v, want one run with one diagnostic", runs)
	}
}

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"lattice/internal/core/app"
	"lattice/internal/core/config"
	"lattice/internal/engine/resolver"
	"lattice/internal/engine/scope"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestFiles(t *testing.T, tmpDir string) {
	files := map[string]string{
		// JavaScript with a namespace re-export chain.
		"web/lib/string.js": `export function capitalize(s) { return s }
function internal() {}
`,
		"web/lib/index.js": `export * as strings from './string'
`,
		"web/main.js": `import { strings } from './lib/index'
strings.capitalize('x')
misspeled_call()
`,
		// Python package with __init__ aggregation.
		"py/pkg/__init__.py": `from .helpers import greet
`,
		"py/pkg/helpers.py": `def greet(name):
    return name
`,
		"py/main.py": `import pkg
pkg.greet("world")
`,
		// Rust crate with a pub use re-export.
		"rs/src/main.rs": `mod api;
use crate::api::serve;

fn main() {
    serve();
}
`,
		"rs/src/api/mod.rs": `mod server;
pub use server::serve;
`,
		"rs/src/api/server.rs": `pub fn serve() {}
`,
	}
	for rel, content := range files {
		path := filepath.Join(tmpDir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestFullPipelineIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFiles(t, tmpDir)

	cfg := config.Default()
	cfg.Cache.Enabled = true

	appInstance, err := app.New(cfg, tmpDir)
	require.NoError(t, err)
	defer appInstance.Close()

	ctx := context.Background()
	report, err := appInstance.RunScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, report.FilesScanned)

	// The only diagnostic is the misspelled JavaScript call.
	counts := report.Counts()
	assert.Equal(t, 1, counts[resolver.DiagUnresolvedReference], "diagnostics: %+v", report.Diagnostics)
	assert.Zero(t, counts[resolver.DiagUnresolvedImport])
	assert.Zero(t, counts[resolver.DiagCircularReexport])

	res := appInstance.Resolver()
	snap := appInstance.Snapshot()

	// JavaScript: member access through the namespace re-export lands on the
	// concrete definition.
	sym, status := resolveName(t, res, snap, "web/main.js", "strings")
	require.Equal(t, resolver.StatusResolved, status)
	assert.Equal(t, "web/lib/string.js", sym.Definition.File)
	assert.Equal(t, "capitalize", sym.Definition.Symbol.Name)

	// Python: import aggregation through __init__.py.
	sym, status = resolveName(t, res, snap, "py/main.py", "pkg")
	require.Equal(t, resolver.StatusResolved, status)
	assert.Equal(t, "py/pkg/helpers.py", sym.Definition.File)
	assert.Equal(t, "greet", sym.Definition.Symbol.Name)

	// Rust: use path through a pub use re-export.
	sym, status = resolveName(t, res, snap, "rs/src/main.rs", "serve")
	require.Equal(t, resolver.StatusResolved, status)
	assert.Equal(t, "rs/src/api/server.rs", sym.Definition.File)
}

func TestRescanIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFiles(t, tmpDir)

	appInstance, err := app.New(config.Default(), tmpDir)
	require.NoError(t, err)
	defer appInstance.Close()

	ctx := context.Background()
	report, err := appInstance.RunScan(ctx)
	require.NoError(t, err)
	require.Len(t, report.Diagnostics, 1)

	// Define the misspelled function and rescan only the changed file.
	mainJS := filepath.Join(tmpDir, "web", "main.js")
	fixed := `import { strings } from './lib/index'
strings.capitalize('x')
function misspeled_call() {}
misspeled_call()
`
	require.NoError(t, os.WriteFile(mainJS, []byte(fixed), 0644))

	report, err = appInstance.RunRescan(ctx, []string{mainJS})
	require.NoError(t, err)
	assert.True(t, report.Clean(), "diagnostics: %+v", report.Diagnostics)

	// Removing the re-export hub breaks the chain again.
	require.NoError(t, os.Remove(filepath.Join(tmpDir, "web", "lib", "index.js")))
	report, err = appInstance.RunRescan(ctx, []string{filepath.Join(tmpDir, "web", "lib", "index.js")})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts()[resolver.DiagUnresolvedImport], "diagnostics: %+v", report.Diagnostics)
}

// resolveName finds the first reference with the given name in a file and
// resolves it.
func resolveName(t *testing.T, res *resolver.Resolver, snap *resolver.Snapshot, file, name string) (*resolver.ResolvedSymbol, resolver.Status) {
	t.Helper()
	analysis := snap.File(file)
	require.NotNil(t, analysis, "missing analysis for %s", file)
	var ref *scope.Reference
	for i := range analysis.References {
		if analysis.References[i].Name == name {
			ref = &analysis.References[i]
			break
		}
	}
	require.NotNil(t, ref, "no reference named %q in %s", name, file)
	return res.Resolve(file, *ref)
}

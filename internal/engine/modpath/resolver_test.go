package modpath

import (
	"reflect"
	"testing"

	"lattice/internal/engine/parser"
)

func TestResolveJavaScript(t *testing.T) {
	tree := NewMemTree(
		"src/app.js",
		"src/math.js",
		"src/utils/index.js",
		"src/exact.mjs",
	)

	tests := []struct {
		specifier string
		from      string
		path      string
		external  bool
		missing   bool
	}{
		{"./math", "src/app.js", "src/math.js", false, false},
		{"./math.js", "src/app.js", "src/math.js", false, false},
		{"./exact", "src/app.js", "src/exact.mjs", false, false},
		{"./utils", "src/app.js", "src/utils/index.js", false, false},
		{"../src/math", "src/app.js", "src/math.js", false, false},
		{"./missing", "src/app.js", "src/missing.js", false, true},
		{"lodash", "src/app.js", "", true, false},
		{"@scope/pkg/util", "src/app.js", "", true, false},
	}

	for _, tt := range tests {
		got := Resolve(parser.LangJavaScript, tt.specifier, tt.from, tree)
		if got.Path != tt.path || got.External != tt.external || got.Unresolved != tt.missing {
			t.Errorf("Resolve(js, %q, %q) = %+v, expected path=%q external=%v unresolved=%v",
				tt.specifier, tt.from, got, tt.path, tt.external, tt.missing)
		}
	}
}

func TestResolveJavaScriptExternalName(t *testing.T) {
	tree := NewMemTree("src/app.js")

	got := Resolve(parser.LangJavaScript, "@scope/pkg/deep/util", "src/app.js", tree)
	if !got.External || got.ExternalName != "@scope/pkg" {
		t.Errorf("expected external @scope/pkg, got %+v", got)
	}
}

func TestResolveTypeScriptExtensionRewrite(t *testing.T) {
	tree := NewMemTree(
		"src/app.ts",
		"src/helpers.ts",
		"src/widget.tsx",
		"src/legacy.js",
	)

	tests := []struct {
		specifier string
		path      string
	}{
		// ESM convention: TS sources import each other with .js extensions.
		{"./helpers.js", "src/helpers.ts"},
		{"./widget.jsx", "src/widget.tsx"},
		{"./helpers", "src/helpers.ts"},
		// A real JS file still wins when no TS candidate exists.
		{"./legacy.js", "src/legacy.js"},
	}

	for _, tt := range tests {
		got := Resolve(parser.LangTypeScript, tt.specifier, "src/app.ts", tree)
		if got.Path != tt.path || got.Unresolved {
			t.Errorf("Resolve(ts, %q) = %+v, expected %q", tt.specifier, got, tt.path)
		}
	}
}

func TestResolvePythonSiblingFirst(t *testing.T) {
	// Monorepo case: two unrelated packages each contain a helpers module.
	tree := NewMemTree(
		"package_a/caller.py",
		"package_a/helpers.py",
		"package_b/caller.py",
		"package_b/helpers.py",
		"shared.py",
	)

	a := Resolve(parser.LangPython, "helpers", "package_a/caller.py", tree)
	if a.Path != "package_a/helpers.py" {
		t.Errorf("package_a import resolved to %q, expected its own sibling", a.Path)
	}
	b := Resolve(parser.LangPython, "helpers", "package_b/caller.py", tree)
	if b.Path != "package_b/helpers.py" {
		t.Errorf("package_b import resolved to %q, expected its own sibling", b.Path)
	}

	// Falls back toward the project root when no sibling matches.
	s := Resolve(parser.LangPython, "shared", "package_a/caller.py", tree)
	if s.Path != "shared.py" {
		t.Errorf("shared import resolved to %q, expected root fallback", s.Path)
	}
}

func TestResolvePythonRelative(t *testing.T) {
	tree := NewMemTree(
		"pkg/__init__.py",
		"pkg/api.py",
		"pkg/sub/__init__.py",
		"pkg/sub/impl.py",
	)

	tests := []struct {
		specifier string
		from      string
		path      string
	}{
		{".impl", "pkg/sub/__init__.py", "pkg/sub/impl.py"},
		{"..api", "pkg/sub/impl.py", "pkg/api.py"},
		{".", "pkg/api.py", "pkg/__init__.py"},
		{"sub.impl", "pkg/api.py", "pkg/sub/impl.py"},
	}

	for _, tt := range tests {
		got := Resolve(parser.LangPython, tt.specifier, tt.from, tree)
		if got.Path != tt.path || got.Unresolved {
			t.Errorf("Resolve(python, %q, %q) = %+v, expected %q", tt.specifier, tt.from, got, tt.path)
		}
	}
}

func TestResolvePythonPrefersFileOverPackage(t *testing.T) {
	tree := NewMemTree(
		"app/main.py",
		"app/config.py",
		"app/config/__init__.py",
	)

	got := Resolve(parser.LangPython, "config", "app/main.py", tree)
	if got.Path != "app/config.py" {
		t.Errorf("expected plain file preferred over package, got %q", got.Path)
	}
}

func TestResolvePythonExternal(t *testing.T) {
	tree := NewMemTree("app/main.py")

	got := Resolve(parser.LangPython, "numpy.linalg", "app/main.py", tree)
	if !got.External || got.ExternalName != "numpy" {
		t.Errorf("expected external numpy, got %+v", got)
	}
}

func TestResolveRustCratePaths(t *testing.T) {
	tree := NewMemTree(
		"Cargo.toml",
		"src/main.rs",
		"src/lib.rs",
		"src/utils/mod.rs",
		"src/utils/helpers.rs",
		"src/parser.rs",
	)

	tests := []struct {
		specifier string
		from      string
		path      string
	}{
		{"crate::utils::helpers", "src/main.rs", "src/utils/helpers.rs"},
		{"crate::utils", "src/main.rs", "src/utils/mod.rs"},
		{"crate::parser", "src/utils/helpers.rs", "src/parser.rs"},
		{"self::helpers", "src/utils/mod.rs", "src/utils/helpers.rs"},
		{"super::super::parser", "src/utils/helpers.rs", "src/parser.rs"},
		{"super::parser", "src/utils/mod.rs", "src/parser.rs"},
	}

	for _, tt := range tests {
		got := Resolve(parser.LangRust, tt.specifier, tt.from, tree)
		if got.Path != tt.path || got.Unresolved || got.External {
			t.Errorf("Resolve(rust, %q, %q) = %+v, expected %q", tt.specifier, tt.from, got, tt.path)
		}
	}
}

func TestResolveRustItemInModule(t *testing.T) {
	tree := NewMemTree(
		"Cargo.toml",
		"src/lib.rs",
		"src/utils.rs",
	)

	// run is a function inside utils.rs, not a module file.
	got := Resolve(parser.LangRust, "crate::utils::run", "src/lib.rs", tree)
	if got.Path != "src/utils.rs" || got.Unresolved {
		t.Errorf("expected item path to land on src/utils.rs, got %+v", got)
	}
}

func TestResolveRustBareSiblingModule(t *testing.T) {
	tree := NewMemTree(
		"Cargo.toml",
		"src/main.rs",
		"src/utils.rs",
		"src/utils/helpers.rs",
		"src/api/mod.rs",
		"src/api/server.rs",
	)

	tests := []struct {
		specifier string
		from      string
		path      string
	}{
		// A bare root names a child module of the importing file's own
		// module before it names an external crate.
		{"server::serve", "src/api/mod.rs", "src/api/server.rs"},
		{"helpers::run", "src/utils.rs", "src/utils/helpers.rs"},
	}
	for _, tt := range tests {
		got := Resolve(parser.LangRust, tt.specifier, tt.from, tree)
		if got.Path != tt.path || got.Unresolved || got.External {
			t.Errorf("Resolve(rust, %q, %q) = %+v, expected %q", tt.specifier, tt.from, got, tt.path)
		}
	}

	got := Resolve(parser.LangRust, "tokio::spawn", "src/api/mod.rs", tree)
	if !got.External || got.ExternalName != "tokio" {
		t.Errorf("expected external crate tokio, got %+v", got)
	}
}

func TestResolveRustExternalCrate(t *testing.T) {
	tree := NewMemTree("Cargo.toml", "src/lib.rs")

	got := Resolve(parser.LangRust, "serde::Deserialize", "src/lib.rs", tree)
	if !got.External || got.ExternalName != "serde" {
		t.Errorf("expected external crate serde, got %+v", got)
	}
}

func TestResolveIsPure(t *testing.T) {
	tree := NewMemTree(
		"src/app.ts",
		"src/helpers.ts",
		"pkg/__init__.py",
		"pkg/api.py",
		"Cargo.toml",
		"src/lib.rs",
		"src/utils/mod.rs",
	)

	calls := []struct {
		lang      parser.Language
		specifier string
		from      string
	}{
		{parser.LangTypeScript, "./helpers.js", "src/app.ts"},
		{parser.LangPython, ".api", "pkg/__init__.py"},
		{parser.LangRust, "crate::utils", "src/lib.rs"},
		{parser.LangJavaScript, "./nope", "src/app.ts"},
	}

	for _, c := range calls {
		first := Resolve(c.lang, c.specifier, c.from, tree)
		second := Resolve(c.lang, c.specifier, c.from, tree)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("Resolve(%v, %q, %q) not stable: %+v vs %+v", c.lang, c.specifier, c.from, first, second)
		}
	}
}

func TestMemTreeList(t *testing.T) {
	tree := NewMemTree("a/x.py", "a/y.py", "a/b/z.py")
	got := tree.List("a")
	expected := []string{"b", "x.py", "y.py"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("List(a) = %v, expected %v", got, expected)
	}
}

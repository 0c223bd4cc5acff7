package parser

import (
	"testing"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	loader, err := NewGrammarLoader()
	if err != nil {
		t.Fatalf("load grammars: %v", err)
	}
	return NewParser(loader)
}

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		path string
		want Language
	}{
		{"src/index.js", LangJavaScript},
		{"src/worker.mjs", LangJavaScript},
		{"src/app.TS", LangTypeScript},
		{"src/view.tsx", LangTSX},
		{"pkg/__init__.py", LangPython},
		{"src/main.rs", LangRust},
		{"README.md", LangUnknown},
		{"Makefile", LangUnknown},
	}
	for _, tc := range cases {
		if got := DetectLanguage(tc.path); got != tc.want {
			t.Errorf("DetectLanguage(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestParseFileAllLanguages(t *testing.T) {
	p := newTestParser(t)
	sources := map[string]string{
		"a.js":  "function f() { return 1 }",
		"a.ts":  "const x: number = 1",
		"a.tsx": "const el = <div/>",
		"a.py":  "def f():\n    return 1\n",
		"a.rs":  "fn f() -> i32 { 1 }",
	}
	for path, src := range sources {
		res, err := p.ParseFile(path, []byte(src))
		if err != nil {
			t.Errorf("ParseFile(%q): %v", path, err)
			continue
		}
		root := res.Root()
		if root == nil {
			t.Errorf("ParseFile(%q): nil root", path)
		} else if root.HasError() {
			t.Errorf("ParseFile(%q): unexpected parse errors in %q", path, src)
		}
		res.Close()
	}
}

func TestParseFileRejectsUnknownExtension(t *testing.T) {
	p := newTestParser(t)
	if _, err := p.ParseFile("notes.txt", []byte("hello")); err == nil {
		t.Fatal("expected an error for an unsupported extension")
	}
}

func TestParseBrokenSourceStillYieldsTree(t *testing.T) {
	p := newTestParser(t)
	res, err := p.ParseFile("broken.js", []byte("function ((( {"))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	defer res.Close()
	if res.Root() == nil {
		t.Fatal("broken source should still produce a tree")
	}
	if !res.Root().HasError() {
		t.Error("broken source should carry ERROR nodes")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	p := newTestParser(t)
	res, err := p.ParseFile("a.py", []byte("x = 1\n"))
	if err != nil {
		t.Fatal(err)
	}
	res.Close()
	res.Close()
	if res.Root() != nil {
		t.Error("closed result should have no root")
	}
}

package resolver

import (
	"lattice/internal/engine/parser"
	"lattice/internal/engine/scope"
)

// Prelude tables: names every file of a language sees without importing
// anything. Deliberately the common core, not an exhaustive catalogue; an
// unknown builtin surfaces as an unresolved reference, which is the honest
// answer.

var ecmaPrelude = preludeSet(
	"console", "Math", "JSON", "Object", "Array", "String", "Number",
	"Boolean", "Symbol", "BigInt", "Promise", "Error", "TypeError",
	"RangeError", "SyntaxError", "Map", "Set", "WeakMap", "WeakSet",
	"RegExp", "Date", "Proxy", "Reflect", "Intl",
	"parseInt", "parseFloat", "isNaN", "isFinite", "encodeURIComponent",
	"decodeURIComponent", "structuredClone",
	"setTimeout", "clearTimeout", "setInterval", "clearInterval",
	"queueMicrotask", "fetch", "URL", "URLSearchParams", "AbortController",
	"TextEncoder", "TextDecoder", "atob", "btoa",
	"globalThis", "undefined", "NaN", "Infinity",
	"require", "module", "exports", "process", "Buffer", "__dirname", "__filename",
	"window", "document", "navigator", "location",
)

var pythonPrelude = preludeSet(
	"print", "len", "range", "enumerate", "zip", "map", "filter", "sorted",
	"reversed", "sum", "min", "max", "abs", "round", "divmod", "pow",
	"any", "all", "iter", "next",
	"str", "int", "float", "complex", "bool", "bytes", "bytearray",
	"list", "dict", "set", "frozenset", "tuple", "object", "type", "slice",
	"isinstance", "issubclass", "callable", "super",
	"getattr", "setattr", "hasattr", "delattr", "vars", "dir",
	"repr", "format", "hash", "id", "hex", "oct", "bin", "ord", "chr",
	"open", "input", "exec", "eval", "compile", "globals", "locals",
	"staticmethod", "classmethod", "property",
	"Exception", "BaseException", "ValueError", "TypeError", "KeyError",
	"IndexError", "AttributeError", "RuntimeError", "StopIteration",
	"NotImplementedError", "FileNotFoundError", "OSError", "IOError",
	"ZeroDivisionError", "OverflowError", "ImportError", "KeyboardInterrupt",
	"None", "True", "False", "NotImplemented", "Ellipsis",
	"__name__", "__file__", "__doc__",
)

var rustPrelude = preludeSet(
	"Option", "Some", "None", "Result", "Ok", "Err",
	"String", "Vec", "Box", "Rc", "Arc", "Cell", "RefCell",
	"Copy", "Clone", "Drop", "Default", "Debug", "Display",
	"PartialEq", "Eq", "PartialOrd", "Ord", "Hash",
	"Iterator", "IntoIterator", "Extend", "FromIterator",
	"From", "Into", "TryFrom", "TryInto", "AsRef", "AsMut",
	"ToOwned", "ToString", "Send", "Sync", "Sized", "Fn", "FnMut", "FnOnce",
	"drop", "std", "core", "alloc",
	"println!", "print!", "eprintln!", "eprint!", "format!", "write!",
	"writeln!", "vec!", "panic!", "assert!", "assert_eq!", "assert_ne!",
	"debug_assert!", "matches!", "todo!", "unimplemented!", "unreachable!",
	"dbg!", "include_str!", "include_bytes!", "env!", "concat!", "stringify!",
)

func preludeSet(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

func preludeLookup(lang parser.Language, name string) (scope.SymbolEntry, bool) {
	var table map[string]struct{}
	switch {
	case lang.IsECMAScript():
		table = ecmaPrelude
	case lang == parser.LangPython:
		table = pythonPrelude
	case lang == parser.LangRust:
		table = rustPrelude
	default:
		return scope.SymbolEntry{}, false
	}
	if _, ok := table[name]; !ok {
		return scope.SymbolEntry{}, false
	}
	return scope.SymbolEntry{Name: name, Kind: scope.SymbolVariable}, true
}

func preludeName(lang parser.Language) string {
	switch {
	case lang.IsECMAScript():
		return "ecmascript:builtin"
	case lang == parser.LangPython:
		return "python:builtin"
	case lang == parser.LangRust:
		return "rust:prelude"
	default:
		return "builtin"
	}
}

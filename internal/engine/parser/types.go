package parser

import (
	"path/filepath"
	"strings"
)

// Language is the closed set of languages the engine understands. Adding a
// language means extending this enum and every switch over it.
type Language int

const (
	LangUnknown Language = iota
	LangJavaScript
	LangTypeScript
	LangTSX
	LangPython
	LangRust
)

func (l Language) String() string {
	switch l {
	case LangJavaScript:
		return "javascript"
	case LangTypeScript:
		return "typescript"
	case LangTSX:
		return "tsx"
	case LangPython:
		return "python"
	case LangRust:
		return "rust"
	default:
		return "unknown"
	}
}

// IsECMAScript reports whether the language is in the JS/TS family, which
// shares hoisting and module-resolution behavior.
func (l Language) IsECMAScript() bool {
	switch l {
	case LangJavaScript, LangTypeScript, LangTSX:
		return true
	default:
		return false
	}
}

// Languages lists every supported language, in enum order.
func Languages() []Language {
	return []Language{LangJavaScript, LangTypeScript, LangTSX, LangPython, LangRust}
}

// DetectLanguage maps a file path to its language by extension.
func DetectLanguage(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".cjs", ".jsx":
		return LangJavaScript
	case ".ts", ".mts", ".cts":
		return LangTypeScript
	case ".tsx":
		return LangTSX
	case ".py":
		return LangPython
	case ".rs":
		return LangRust
	default:
		return LangUnknown
	}
}

// SupportedExtensions returns the extensions the scanner should pick up.
func SupportedExtensions() []string {
	return []string{".js", ".mjs", ".cjs", ".jsx", ".ts", ".mts", ".cts", ".tsx", ".py", ".rs"}
}

package scope

import (
	"lattice/internal/engine/parser"
)

// Location pins a syntax element to a file region. Comparison is by value.
type Location struct {
	File        string
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// Before reports whether l starts strictly before other in the same file.
func (l Location) Before(other Location) bool {
	if l.StartLine != other.StartLine {
		return l.StartLine < other.StartLine
	}
	return l.StartColumn < other.StartColumn
}

type ScopeKind int

const (
	ScopeModule ScopeKind = iota
	ScopeFunction
	ScopeClass
	ScopeBlock
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeModule:
		return "module"
	case ScopeFunction:
		return "function"
	case ScopeClass:
		return "class"
	case ScopeBlock:
		return "block"
	default:
		return "unknown"
	}
}

type SymbolKind int

const (
	SymbolFunction SymbolKind = iota
	SymbolMethod
	SymbolClass
	SymbolStruct
	SymbolEnum
	SymbolTrait
	SymbolInterface
	SymbolTypeAlias
	SymbolVariable
	SymbolConstant
	SymbolParameter
	SymbolImport
	SymbolModule
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunction:
		return "function"
	case SymbolMethod:
		return "method"
	case SymbolClass:
		return "class"
	case SymbolStruct:
		return "struct"
	case SymbolEnum:
		return "enum"
	case SymbolTrait:
		return "trait"
	case SymbolInterface:
		return "interface"
	case SymbolTypeAlias:
		return "type"
	case SymbolVariable:
		return "variable"
	case SymbolConstant:
		return "constant"
	case SymbolParameter:
		return "parameter"
	case SymbolImport:
		return "import"
	case SymbolModule:
		return "module"
	default:
		return "unknown"
	}
}

// ScopeID is a stable, content-derived scope identifier (kind + location +
// enclosing name). Re-analyzing unchanged text yields the same id, which is
// what makes derived caches safe to keep across analyses.
type ScopeID string

// SymbolEntry is one named declaration owned by exactly one scope.
type SymbolEntry struct {
	Name     string
	Kind     SymbolKind
	Location Location
	Exported bool
	// Hoisted marks declaration forms visible throughout the enclosing scope
	// regardless of textual position (function declarations and var bindings
	// in the ECMAScript family).
	Hoisted bool
}

// Scope is one lexical region. The tree invariant: exactly one scope per file
// has Parent == "" (the module scope); every other scope is reachable from it.
type Scope struct {
	ID       ScopeID
	Kind     ScopeKind
	Name     string // enclosing declaration name; "" for module and blocks
	Parent   ScopeID
	Children []ScopeID
	Symbols  map[string]SymbolEntry
	Location Location
	// IsMethod marks function scopes that belong to a class/impl body, the
	// anchor for this/self/cls resolution.
	IsMethod bool
}

// Reference is a usage site. It never owns a definition, only points to one
// once resolved.
type Reference struct {
	Name     string
	Path     []string // member access segments after Name, e.g. utils.string.capitalize -> ["string","capitalize"]
	Location Location
	Scope    ScopeID
}

// Import is one imported binding owned by the importing file.
type Import struct {
	LocalName    string
	Specifier    string
	OriginalName string // source-side name when renamed; "" when same as LocalName
	IsDefault    bool
	IsNamespace  bool
	IsGlob       bool // from x import *, use x::*
	Location     Location
}

// Export is one exported binding owned by the exporting file. ReexportOf
// carries the source specifier when the binding is re-exported from another
// module rather than defined locally.
type Export struct {
	ExportedName string
	LocalName    string
	IsDefault    bool
	ReexportOf   string
	Location     Location
}

// FileAnalysis is the complete per-file output of the scope tree build. It is
// replaced wholesale on re-analysis; nothing mutates it in place.
type FileAnalysis struct {
	Path       string
	Language   parser.Language
	Root       ScopeID
	Scopes     map[ScopeID]*Scope
	Imports    []Import
	Exports    []Export
	References []Reference
	// DunderAll holds the names listed in a Python module's __all__, nil when
	// absent. Used by export-table filtering.
	DunderAll []string
	// Malformed counts syntax-tree regions that matched no known scope
	// pattern and were skipped. Non-zero is a diagnostic, never an abort.
	Malformed int
}

// ScopeByID returns the scope or nil.
func (f *FileAnalysis) ScopeByID(id ScopeID) *Scope {
	return f.Scopes[id]
}

// RootScope returns the module scope.
func (f *FileAnalysis) RootScope() *Scope {
	return f.Scopes[f.Root]
}

// ImportByLocalName finds the import binding a name refers to, or nil.
func (f *FileAnalysis) ImportByLocalName(name string) *Import {
	for i := range f.Imports {
		if f.Imports[i].LocalName == name {
			return &f.Imports[i]
		}
	}
	return nil
}

package resolver

import (
	"lattice/internal/engine/scope"
)

// Confidence grades how certain the resolver is about a match.
type Confidence int

const (
	// ConfidenceExact marks direct local or declared matches.
	ConfidenceExact Confidence = iota
	// ConfidenceLikely marks heuristic matches: glob imports, associated-item
	// guesses made without type information.
	ConfidenceLikely
	// ConfidencePossible marks fuzzy candidates used for suggestions, never
	// authoritative lookup.
	ConfidencePossible
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceExact:
		return "exact"
	case ConfidenceLikely:
		return "likely"
	case ConfidencePossible:
		return "possible"
	default:
		return "unknown"
	}
}

// Source says where the definition was found.
type Source int

const (
	SourceLocal Source = iota
	SourceImport
	SourceExternal
)

func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceImport:
		return "import"
	case SourceExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Definition is the resolved, addressable form of a symbol entry.
type Definition struct {
	Symbol scope.SymbolEntry
	Scope  scope.ScopeID
	File   string
}

// ResolvedSymbol is the resolver's output: a value snapshot, never a pointer
// into mutable state.
type ResolvedSymbol struct {
	Definition Definition
	Confidence Confidence
	Source     Source
	// ExternalName carries the package/crate identity for external targets.
	ExternalName string
}

// Status classifies a resolution attempt for diagnostics.
type Status int

const (
	StatusResolved Status = iota
	StatusUnresolved
	StatusExternal
	StatusCircular
)

func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusUnresolved:
		return "unresolved"
	case StatusExternal:
		return "external"
	case StatusCircular:
		return "circular_reexport"
	default:
		return "unknown"
	}
}

// Diagnostic is one reportable resolution miss. Misses are data, never
// errors: a batch of thousands of references must not abort on one.
type Diagnostic struct {
	Kind      DiagnosticKind
	File      string
	Name      string
	Specifier string
	Location  scope.Location
}

type DiagnosticKind int

const (
	DiagUnresolvedReference DiagnosticKind = iota
	DiagUnresolvedImport
	DiagCircularReexport
	DiagMalformedScope
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagUnresolvedReference:
		return "unresolved_reference"
	case DiagUnresolvedImport:
		return "unresolved_import"
	case DiagCircularReexport:
		return "circular_reexport"
	case DiagMalformedScope:
		return "malformed_scope"
	default:
		return "unknown"
	}
}

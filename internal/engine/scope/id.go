package scope

import (
	"fmt"
	"hash/fnv"
)

// DeriveScopeID builds a stable identifier from the scope's kind, location
// and enclosing name. No counters: the same scope in unchanged text hashes to
// the same id across re-analysis, so derived caches stay valid.
func DeriveScopeID(kind ScopeKind, name string, loc Location) ScopeID {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%d:%d-%d:%d", kind, name, loc.File,
		loc.StartLine, loc.StartColumn, loc.EndLine, loc.EndColumn)
	return ScopeID(fmt.Sprintf("%s:%s:%016x", kind, name, h.Sum64()))
}

package app

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"lattice/internal/core/errors"
	"lattice/internal/engine/resolver"
)

// Report is the outcome of one scan or rescan pass.
type Report struct {
	RunID        string
	FilesScanned int
	Diagnostics  []resolver.Diagnostic
	// Suggestions maps a diagnostic's index to "did you mean" names.
	Suggestions map[int][]string
	Duration    time.Duration
}

// Counts tallies diagnostics per kind.
func (r *Report) Counts() map[resolver.DiagnosticKind]int {
	counts := make(map[resolver.DiagnosticKind]int)
	for _, d := range r.Diagnostics {
		counts[d.Kind]++
	}
	return counts
}

// Clean reports whether every reference and import resolved.
func (r *Report) Clean() bool {
	return len(r.Diagnostics) == 0
}

var diagnosticCodes = map[resolver.DiagnosticKind]errors.ErrorCode{
	resolver.DiagUnresolvedReference: errors.CodeUnresolvedReference,
	resolver.DiagUnresolvedImport:    errors.CodeUnresolvedImport,
	resolver.DiagCircularReexport:    errors.CodeCircularReexport,
	resolver.DiagMalformedScope:      errors.CodeMalformedScope,
}

// Err folds the report into a typed error for callers that treat an unclean
// scan as a failure. The code comes from the first diagnostic; the full list
// stays on the report.
func (r *Report) Err() error {
	if r.Clean() {
		return nil
	}
	d := r.Diagnostics[0]
	err := errors.New(diagnosticCodes[d.Kind], "scan finished with diagnostics")
	err = errors.AddContext(err, errors.CtxPath, d.File)
	if d.Name != "" {
		err = errors.AddContext(err, errors.CtxSymbol, d.Name)
	}
	if d.Specifier != "" {
		err = errors.AddContext(err, errors.CtxSpecifier, d.Specifier)
	}
	return errors.AddContext(err, "diagnostics", len(r.Diagnostics))
}

// Render writes the human-readable report, grouped by file.
func (r *Report) Render(w io.Writer) error {
	byFile := make(map[string][]int)
	for i, d := range r.Diagnostics {
		byFile[d.File] = append(byFile[d.File], i)
	}
	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	for _, f := range files {
		if _, err := fmt.Fprintf(w, "%s\n", f); err != nil {
			return err
		}
		for _, i := range byFile[f] {
			d := r.Diagnostics[i]
			line := fmt.Sprintf("  %d:%d  %s", d.Location.StartLine, d.Location.StartColumn, d.Kind)
			if d.Name != "" {
				line += "  " + d.Name
			}
			if d.Specifier != "" {
				line += fmt.Sprintf("  (%s)", d.Specifier)
			}
			if names := r.Suggestions[i]; len(names) > 0 {
				line += fmt.Sprintf("  did you mean %s?", strings.Join(names, ", "))
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}

	counts := r.Counts()
	_, err := fmt.Fprintf(w, "\n%d files, %d unresolved references, %d unresolved imports, %d circular re-exports (%.2fs)\n",
		r.FilesScanned,
		counts[resolver.DiagUnresolvedReference],
		counts[resolver.DiagUnresolvedImport],
		counts[resolver.DiagCircularReexport],
		r.Duration.Seconds(),
	)
	return err
}

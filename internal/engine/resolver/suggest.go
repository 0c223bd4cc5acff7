package resolver

import (
	"sort"

	"lattice/internal/engine/scope"
)

// SuggestSimilar proposes definitions whose names are close to an unresolved
// reference, for "did you mean" output. Results carry ConfidencePossible and
// are never used for authoritative resolution.
func (r *Resolver) SuggestSimilar(fromFile string, ref scope.Reference, max int) []ResolvedSymbol {
	file := r.snap.File(fromFile)
	if file == nil || max <= 0 {
		return nil
	}

	type candidate struct {
		sym  ResolvedSymbol
		dist int
	}
	var cands []candidate
	seen := make(map[string]struct{})

	sc := file.ScopeByID(ref.Scope)
	for sc != nil {
		for name, entry := range sc.Symbols {
			if _, dup := seen[name]; dup || name == ref.Name {
				continue
			}
			d := editDistance(ref.Name, name)
			if d > 0 && d <= suggestThreshold(ref.Name) {
				seen[name] = struct{}{}
				cands = append(cands, candidate{
					sym: ResolvedSymbol{
						Definition: Definition{Symbol: entry, Scope: sc.ID, File: fromFile},
						Confidence: ConfidencePossible,
						Source:     SourceLocal,
					},
					dist: d,
				})
			}
		}
		sc = file.ScopeByID(sc.Parent)
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].sym.Definition.Symbol.Name < cands[j].sym.Definition.Symbol.Name
	})
	if len(cands) > max {
		cands = cands[:max]
	}
	out := make([]ResolvedSymbol, len(cands))
	for i, c := range cands {
		out[i] = c.sym
	}
	return out
}

// suggestThreshold scales tolerance with name length: short names only match
// one edit away, longer names allow two.
func suggestThreshold(name string) int {
	if len(name) <= 4 {
		return 1
	}
	return 2
}

func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

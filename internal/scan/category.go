package scan

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxCategoryDistance bounds how far a model-suggested category may drift
// from a configured one and still be snapped onto it.
const maxCategoryDistance = 3

// NormalizeCategory snaps a free-form category onto the closest configured
// one. Exact matches (case-insensitive) win outright; otherwise the
// candidate with the smallest edit distance within maxCategoryDistance is
// chosen. When nothing comes close the raw input is returned trimmed, so
// the caller can surface it as a new category.
func NormalizeCategory(raw string, candidates []string) string {
	name := strings.TrimSpace(raw)
	if name == "" || len(candidates) == 0 {
		return name
	}

	lower := strings.ToLower(name)
	best := ""
	bestDist := maxCategoryDistance + 1
	for _, c := range candidates {
		cl := strings.ToLower(c)
		if cl == lower {
			return c
		}
		if d := levenshtein.ComputeDistance(lower, cl); d < bestDist {
			best = c
			bestDist = d
		}
	}
	if best != "" {
		return best
	}
	return name
}

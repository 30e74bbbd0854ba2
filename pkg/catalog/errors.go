package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/agnivade/levenshtein"
)

// ErrMalformedCatalog matches every *MalformedError.
var ErrMalformedCatalog = errors.New("malformed catalog")

// Problem kinds reported by MalformedError.
const (
	ProblemDuplicate     = "duplicate"
	ProblemUnknownYield  = "unknown yield"
	ProblemUnknownSource = "unknown source"
	ProblemUnknownItem   = "unknown item"
	ProblemUnknownTag    = "unknown tag"
	ProblemUnknownArea   = "unknown area"
	ProblemMissingStart  = "missing start source"
	ProblemCountMismatch = "source/yield count mismatch"
	ProblemNoAreas       = "no areas"
)

// MalformedError describes one inconsistency found while building a catalog.
type MalformedError struct {
	Kind       string
	Ref        string
	Within     string
	Suggestion string
}

func (e *MalformedError) Error() string {
	msg := "malformed catalog: " + e.Kind
	if e.Ref != "" {
		msg += fmt.Sprintf(" %q", e.Ref)
	}
	if e.Within != "" {
		msg += " in " + e.Within
	}
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformedCatalog
}

// suggest returns the closest known name to ref, or "" when nothing is close.
func suggest(ref string, known []string) string {
	best, bestDist := "", -1
	for _, cand := range known {
		dist := levenshtein.ComputeDistance(ref, cand)
		if dist > suggestLimit(len(cand)) {
			continue
		}
		if bestDist < 0 || dist < bestDist || (dist == bestDist && cand < best) {
			best, bestDist = cand, dist
		}
	}
	return best
}

func suggestLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

func sortedNames(sets ...map[string]struct{}) []string {
	seen := make(map[string]struct{})
	for _, s := range sets {
		for k := range s {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

package scoring

import "github.com/google/uuid"

// SetOverlap returns the Jaccard similarity of two id sets, used for
// both network_overlap (company neighbors of a person) and
// director_overlap (director ids of a company). Two empty sets are
// treated as maximally similar (nothing to disagree on) rather than
// zero, matching person name-feature convention elsewhere in this
// package: an absent signal should not itself penalize a candidate.
func SetOverlap(a, b []uuid.UUID) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	setA := make(map[uuid.UUID]struct{}, len(a))
	for _, id := range a {
		setA[id] = struct{}{}
	}
	setB := make(map[uuid.UUID]struct{}, len(b))
	for _, id := range b {
		setB[id] = struct{}{}
	}
	intersection := 0
	for id := range setA {
		if _, ok := setB[id]; ok {
			intersection++
		}
	}
	union := len(setA)
	for id := range setB {
		if _, ok := setA[id]; !ok {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// ExactMatch returns 1.0 when a == b and neither is empty, 0.0
// otherwise. Used for birth_year_match, postal_exact and number_exact,
// all of which are binary comparisons in spec §4.4; identifier_match is
// computed by the resolver's own identifierMatch.
func ExactMatch(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1.0
	}
	return 0
}

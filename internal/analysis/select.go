package analysis

import "sort"

// DefaultTopN is AW's internal candidate count (spec §6: "AW uses 8
// internally"); callers clamp the caller-facing clipCount against it.
const DefaultTopN = 8

// overlaps reports half-open interval intersection (spec §4.4.5).
func overlaps(a, b Candidate) bool {
	return a.Start < b.End && b.Start < a.End
}

// SelectTopN sorts candidates by (composite desc, confidence desc) and
// greedily picks the next non-overlapping candidate until topN are
// selected or candidates are exhausted (spec §4.4.5).
func SelectTopN(scored []Scored, topN int) []Scored {
	if topN <= 0 {
		topN = DefaultTopN
	}

	ranked := make([]Scored, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Composite != ranked[j].Composite {
			return ranked[i].Composite > ranked[j].Composite
		}
		return ranked[i].Confidence > ranked[j].Confidence
	})

	var selected []Scored
	for _, cand := range ranked {
		if len(selected) >= topN {
			break
		}
		conflict := false
		for _, s := range selected {
			if overlaps(cand.Candidate, s.Candidate) {
				conflict = true
				break
			}
		}
		if !conflict {
			selected = append(selected, cand)
		}
	}
	return selected
}

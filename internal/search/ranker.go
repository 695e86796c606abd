package search

import "sort"

// rank orders candidates by tier, then by shortest matched value, keeping
// discovery order for full ties, and truncates to limit. It also returns the
// number of candidates before truncation.
func rank(candidates []*candidate, limit int) ([]*candidate, int) {
	ranked := make([]*candidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].tier != ranked[j].tier {
			return ranked[i].tier < ranked[j].tier
		}
		return ranked[i].tieBreak < ranked[j].tieBreak
	})

	total := len(ranked)
	if limit > 0 && total > limit {
		ranked = ranked[:limit]
	}
	return ranked, total
}

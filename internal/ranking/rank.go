package ranking

import (
	"sort"
	"strings"
)

// rank orders entries by pos_1 count, then pos_2 through pos_5, all
// descending, with case-insensitive name ascending as the final tie-break.
// The name tie-break makes the order total: identical inputs always produce
// an identical leaderboard.
func rank(entries []*MedalEntry) []MedalEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		for p := 0; p < positions; p++ {
			if a.Pos[p] != b.Pos[p] {
				return a.Pos[p] > b.Pos[p]
			}
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})

	ranking := make([]MedalEntry, len(entries))
	for i, e := range entries {
		ranking[i] = *e
	}
	return ranking
}

package ranking

import (
	"context"
	"sort"
	"strings"
)

// itemCount pairs an item with its play count within a single month.
type itemCount struct {
	Key   ItemKey
	Count int
}

// fetchMonth returns the month's top-5 items by play count. A provider
// failure degrades to an empty month rather than aborting the run: one bad
// window lowers the counts, it never fails the whole request.
func (s *Service) fetchMonth(ctx context.Context, user string, typ RankingType, win TimeWindow) []itemCount {
	events, err := s.provider.RecentTracks(ctx, user, win.Start, win.End)
	if err != nil {
		s.log.Warn("month fetch failed, treating as empty",
			"user", user, "month", win.Start.Format("2006-01"), "err", err)
		return nil
	}

	counts := make(map[ItemKey]int)
	for _, ev := range events {
		key, ok := eventKey(typ, ev)
		if !ok {
			continue
		}
		counts[key]++
	}
	return topN(counts, positions)
}

// topN ranks counts descending. Equal counts order by item name ascending,
// case-insensitively, so a month's top-5 is the same on every run.
func topN(counts map[ItemKey]int, n int) []itemCount {
	ranked := make([]itemCount, 0, len(counts))
	for key, count := range counts {
		ranked = append(ranked, itemCount{Key: key, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return strings.ToLower(ranked[i].Key.String()) < strings.ToLower(ranked[j].Key.String())
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

package ranking

import (
	"context"
	"sync"
	"time"
)

// computeAllMonths fans out one fetch per trailing month and waits for all
// of them. Slot i holds offset i's result; execution order across months is
// irrelevant and each goroutine writes only its own slot, so the join is the
// only synchronization needed. API pressure from the fan-out is bounded by
// the provider's shared rate limiter.
func (s *Service) computeAllMonths(ctx context.Context, user string, typ RankingType, now time.Time) [][]itemCount {
	months := make([][]itemCount, monthsBack)
	var wg sync.WaitGroup
	for offset := 0; offset < monthsBack; offset++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			months[offset] = s.fetchMonth(ctx, user, typ, monthWindow(now, offset))
		}(offset)
	}
	wg.Wait()
	return months
}

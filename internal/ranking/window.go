package ranking

import "time"

// monthsBack is the number of trailing calendar months ranked.
const monthsBack = 12

// TimeWindow is an inclusive time range covering exactly one calendar month.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// monthWindow returns the calendar month offset months before now's month:
// the 1st at 00:00:00 through the last day at 23:59:59. Anchoring on the
// first of the current month before subtracting keeps AddDate from
// normalizing short months (e.g. May 31 minus 3 months is not March 2).
func monthWindow(now time.Time, offset int) TimeWindow {
	year, month, _ := now.Date()
	first := time.Date(year, month, 1, 0, 0, 0, 0, now.Location()).AddDate(0, -offset, 0)
	return TimeWindow{
		Start: first,
		End:   first.AddDate(0, 1, 0).Add(-time.Second),
	}
}

package tracker

import "time"

// dateLayout is the canonical calendar-date key format.
const dateLayout = "2006-01-02"

const msPerMinute = 60000

// DayKey renders the calendar day of t in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// WeekStart returns the key of the Monday starting t's week in loc.
func WeekStart(t time.Time, loc *time.Location) string {
	local := t.In(loc)
	offset := (int(local.Weekday()) + 6) % 7
	return dayOffset(local, -offset).Format(dateLayout)
}

// LastSevenDays returns the keys of the 7 calendar days ending on t's day,
// today first.
func LastSevenDays(t time.Time, loc *time.Location) []string {
	local := t.In(loc)
	keys := make([]string, 7)
	for i := range keys {
		keys[i] = dayOffset(local, -i).Format(dateLayout)
	}
	return keys
}

// dayOffset moves by whole calendar days. Noon keeps DST shifts from
// landing on the wrong date.
func dayOffset(t time.Time, days int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+days, 12, 0, 0, 0, t.Location())
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// elapsedMinutes is the fractional minutes between start and now, never negative.
func elapsedMinutes(start, now int64) float64 {
	if now <= start {
		return 0
	}
	return float64(now-start) / msPerMinute
}

// wholeMinutes is elapsedMinutes rounded down.
func wholeMinutes(start, now int64) int {
	if now <= start {
		return 0
	}
	return int((now - start) / msPerMinute)
}

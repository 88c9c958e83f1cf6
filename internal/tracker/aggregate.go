package tracker

import (
	"context"
	"math"
	"time"
)

// TodayStudyTime returns today's minutes, including the open session's
// fractional elapsed time while the application is active.
func (t *Tracker) TodayStudyTime(ctx context.Context) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	data := t.load(ctx, t.keys.StorageKey(ctx), now)
	return roundMinutes(t.dayMinutes(data, now, t.IsActive()))
}

// WeeklyStudyTime returns the minutes of the 7 calendar days ending today.
// The open session contributes whole minutes only.
func (t *Tracker) WeeklyStudyTime(ctx context.Context) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	data := t.load(ctx, t.keys.StorageKey(ctx), now)

	total := 0
	for _, day := range t.weeklyBreakdown(data, now) {
		total += day
	}
	return max(0, total)
}

// WeeklyStudyData returns minutes per calendar day for today and the 6 days
// before it. Days without a record are 0.
func (t *Tracker) WeeklyStudyData(ctx context.Context) map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	data := t.load(ctx, t.keys.StorageKey(ctx), now)
	return t.weeklyBreakdown(data, now)
}

// weeklyBreakdown adds the open session's whole minutes to today when active.
func (t *Tracker) weeklyBreakdown(data *StudyTimeData, now time.Time) map[string]int {
	nowMs := toMillis(now)
	today := DayKey(now, t.loc)

	days := make(map[string]int, 7)
	for _, key := range LastSevenDays(now, t.loc) {
		minutes := 0
		if record := data.DailyData[key]; record != nil {
			minutes = record.TotalMinutes
			if key == today && t.IsActive() {
				if open := record.openSession(); open != nil {
					minutes += wholeMinutes(open.StartTime, nowMs)
				}
			}
		}
		days[key] = minutes
	}
	return days
}

// dayMinutes is today's closed minutes plus, when includeOpen, the open
// session's fractional minutes.
func (t *Tracker) dayMinutes(data *StudyTimeData, now time.Time, includeOpen bool) float64 {
	record := t.today(data, now)
	if record == nil {
		return 0
	}
	minutes := float64(record.TotalMinutes)
	if includeOpen {
		if open := record.openSession(); open != nil {
			minutes += elapsedMinutes(open.StartTime, toMillis(now))
		}
	}
	return minutes
}

// weekMinutes sums closed minutes over the last 7 days plus today's
// fractional open-session minutes when includeOpen.
func (t *Tracker) weekMinutes(data *StudyTimeData, now time.Time, includeOpen bool) float64 {
	today := DayKey(now, t.loc)
	total := 0.0
	for _, key := range LastSevenDays(now, t.loc) {
		record := data.DailyData[key]
		if record == nil {
			continue
		}
		if key == today {
			total += t.dayMinutes(data, now, includeOpen)
			continue
		}
		total += float64(record.TotalMinutes)
	}
	return total
}

func roundMinutes(minutes float64) int {
	return int(math.Round(math.Max(0, minutes)))
}

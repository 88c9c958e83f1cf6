package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/goodtune/studytime/internal/metrics"
	"github.com/goodtune/studytime/internal/storage"
)

// load reads and normalizes the blob stored under key. Missing or corrupt
// data yields an empty structure. The result is never written back here.
func (t *Tracker) load(ctx context.Context, key string, now time.Time) *StudyTimeData {
	data := &StudyTimeData{}

	raw, err := t.kv.Get(ctx, key)
	switch {
	case err == nil:
		if err := json.Unmarshal([]byte(raw), data); err != nil {
			t.logger.Warn().Err(err).Str("key", key).Msg("Corrupt study data, starting empty")
			metrics.StoreOperations.WithLabelValues("load", "corrupt").Inc()
			data = &StudyTimeData{}
		} else {
			metrics.StoreOperations.WithLabelValues("load", "ok").Inc()
		}
	case storage.IsNotFound(err):
		metrics.StoreOperations.WithLabelValues("load", "empty").Inc()
	default:
		t.logger.Warn().Err(err).Str("key", key).Msg("Failed to read study data, starting empty")
		metrics.StoreOperations.WithLabelValues("load", "error").Inc()
	}

	t.normalize(data, now)
	return data
}

// normalize applies week rollover and guarantees today's record exists.
func (t *Tracker) normalize(data *StudyTimeData, now time.Time) {
	if data.DailyData == nil {
		data.DailyData = make(map[string]*DailyRecord)
	}

	weekStart := WeekStart(now, t.loc)
	if data.WeekStart != weekStart {
		pruned := t.prune(data, now)
		t.logger.Debug().
			Str("previous_week_start", data.WeekStart).
			Str("week_start", weekStart).
			Int("pruned_days", pruned).
			Msg("Week rollover")
		data.WeekStart = weekStart
	}

	today := DayKey(now, t.loc)
	record := data.DailyData[today]
	if record == nil {
		record = &DailyRecord{LastUpdate: toMillis(now)}
		data.DailyData[today] = record
	}
	if record.Sessions == nil {
		record.Sessions = []Session{}
	}
}

// prune drops day records older than the retention window. Unparseable
// keys and today's record are kept. Sessions left open on earlier days are
// never resumed, so their records age out like any other.
func (t *Tracker) prune(data *StudyTimeData, now time.Time) int {
	cutoff := now.AddDate(0, 0, -t.retentionDays)
	today := DayKey(now, t.loc)
	pruned := 0
	for key := range data.DailyData {
		if key == today {
			continue
		}
		day, err := time.ParseInLocation(dateLayout, key, t.loc)
		if err != nil {
			continue
		}
		if !day.Before(cutoff) {
			continue
		}
		delete(data.DailyData, key)
		pruned++
	}
	return pruned
}

// save overwrites the whole blob under key.
func (t *Tracker) save(ctx context.Context, key string, data *StudyTimeData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal study data: %w", err)
	}
	if err := t.kv.Set(ctx, key, string(raw)); err != nil {
		metrics.StoreOperations.WithLabelValues("save", "error").Inc()
		return fmt.Errorf("failed to save study data: %w", err)
	}
	metrics.StoreOperations.WithLabelValues("save", "ok").Inc()
	return nil
}

// today returns today's record. normalize guarantees it exists.
func (t *Tracker) today(data *StudyTimeData, now time.Time) *DailyRecord {
	return data.DailyData[DayKey(now, t.loc)]
}

// Package tracker keeps local study-time accounting: one open session per
// day, checkpointed on every poll, with today and last-7-days totals.
package tracker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goodtune/studytime/internal/clock"
	"github.com/goodtune/studytime/internal/metrics"
	"github.com/goodtune/studytime/internal/storage"
	"github.com/rs/zerolog"
)

const (
	// DefaultRetentionDays is how far back the week rollover keeps day records.
	DefaultRetentionDays = 7

	// rollThreshold is the minimum open-session age before a poll checkpoints it.
	rollThreshold = time.Minute
)

// KeyResolver yields the storage key for the current user.
type KeyResolver interface {
	StorageKey(ctx context.Context) string
}

// StaticKey is a KeyResolver that always returns the same key.
type StaticKey string

// StorageKey returns k.
func (k StaticKey) StorageKey(context.Context) string { return string(k) }

// Config holds tracker configuration
type Config struct {
	Location      *time.Location
	RetentionDays int
	Clock         clock.Clock
}

// Tracker manages study sessions for the current user.
type Tracker struct {
	kv            storage.KV
	keys          KeyResolver
	clock         clock.Clock
	loc           *time.Location
	retentionDays int
	logger        zerolog.Logger

	// mu serializes every load-mutate-save sequence.
	mu     sync.Mutex
	active atomic.Bool

	listenMu    sync.Mutex
	listening   bool
	unsubscribe func()
}

// New creates a Tracker. The application starts out active.
func New(kv storage.KV, keys KeyResolver, config Config, logger zerolog.Logger) *Tracker {
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.RetentionDays <= 0 {
		config.RetentionDays = DefaultRetentionDays
	}
	if config.Clock == nil {
		config.Clock = clock.RealClock{}
	}

	t := &Tracker{
		kv:            kv,
		keys:          keys,
		clock:         config.Clock,
		loc:           config.Location,
		retentionDays: config.RetentionDays,
		logger:        logger.With().Str("component", "study-tracker").Logger(),
	}
	t.SetActive(true)

	return t
}

// IsActive reports whether the host application is in the foreground.
func (t *Tracker) IsActive() bool {
	return t.active.Load()
}

// SetActive records the most recent lifecycle signal. It never opens or
// closes sessions by itself.
func (t *Tracker) SetActive(active bool) {
	t.active.Store(active)
	if active {
		metrics.AppActive.Set(1)
	} else {
		metrics.AppActive.Set(0)
	}
}

// StartSession opens a session for today unless one is already open or the
// application is not active.
func (t *Tracker) StartSession(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.IsActive() {
		t.logger.Debug().Msg("Application inactive, not starting session")
		return nil
	}

	now := t.clock.Now()
	key := t.keys.StorageKey(ctx)
	data := t.load(ctx, key, now)
	record := t.today(data, now)

	if record.openSession() != nil {
		return nil
	}

	nowMs := toMillis(now)
	t.closeDangling(record, nowMs)
	t.openSession(record, nowMs)

	return t.save(ctx, key, data)
}

// EndSession closes today's open session, crediting its whole minutes.
func (t *Tracker) EndSession(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	key := t.keys.StorageKey(ctx)
	data := t.load(ctx, key, now)
	record := t.today(data, now)

	if record.openSession() == nil {
		return nil
	}

	t.closeSession(record, toMillis(now), "end")
	return t.save(ctx, key, data)
}

// UpdateStudyTime is the periodic reconciliation entry point. It resumes
// tracking when active, checkpoints an open session older than a minute by
// closing it and opening a fresh one, and returns current totals.
func (t *Tracker) UpdateStudyTime(ctx context.Context) (Totals, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	nowMs := toMillis(now)
	key := t.keys.StorageKey(ctx)

	data := t.load(ctx, key, now)
	record := t.today(data, now)
	if t.IsActive() {
		if last := record.last(); last == nil || !last.IsOpen() {
			t.openSession(record, nowMs)
			if err := t.save(ctx, key, data); err != nil {
				return Totals{}, err
			}
		}
	}

	data = t.load(ctx, key, now)
	record = t.today(data, now)
	if t.IsActive() {
		if open := record.openSession(); open != nil && nowMs-open.StartTime >= rollThreshold.Milliseconds() {
			t.closeSession(record, nowMs, "roll")
			t.openSession(record, nowMs)
			if err := t.save(ctx, key, data); err != nil {
				return Totals{}, err
			}
		}
	}

	data = t.load(ctx, key, now)
	totals := Totals{
		Today:    roundMinutes(t.dayMinutes(data, now, true)),
		ThisWeek: roundMinutes(t.weekMinutes(data, now, true)),
	}

	metrics.TodayMinutes.Set(float64(totals.Today))
	metrics.WeekMinutes.Set(float64(totals.ThisWeek))

	t.logger.Debug().
		Str("key", key).
		Int("today", totals.Today).
		Int("this_week", totals.ThisWeek).
		Msg("Study time updated")

	return totals, nil
}

// openSession appends a new open session starting at nowMs.
func (t *Tracker) openSession(record *DailyRecord, nowMs int64) {
	record.Sessions = append(record.Sessions, Session{StartTime: nowMs})
	record.LastUpdate = nowMs
	metrics.SessionsOpened.Inc()

	t.logger.Debug().Int64("start_time", nowMs).Msg("Opened study session")
}

// closeSession closes the open tail session and credits its whole minutes.
func (t *Tracker) closeSession(record *DailyRecord, nowMs int64, reason string) int {
	open := record.openSession()
	if open == nil {
		return 0
	}
	return t.close(record, open, nowMs, reason)
}

// closeDangling closes any open session left behind by an interrupted
// writer. Only reachable when the tail is already closed.
func (t *Tracker) closeDangling(record *DailyRecord, nowMs int64) {
	for i := range record.Sessions {
		if record.Sessions[i].IsOpen() {
			t.logger.Warn().
				Int64("start_time", record.Sessions[i].StartTime).
				Msg("Closing dangling study session")
			t.close(record, &record.Sessions[i], nowMs, "dangling")
		}
	}
}

func (t *Tracker) close(record *DailyRecord, s *Session, nowMs int64, reason string) int {
	end := nowMs
	s.EndTime = &end
	minutes := wholeMinutes(s.StartTime, end)
	record.TotalMinutes += minutes
	record.LastUpdate = nowMs

	metrics.SessionsClosed.WithLabelValues(reason).Inc()
	metrics.MinutesCredited.Add(float64(minutes))

	t.logger.Debug().
		Int64("start_time", s.StartTime).
		Int64("end_time", end).
		Int("minutes", minutes).
		Str("reason", reason).
		Msg("Closed study session")

	return minutes
}

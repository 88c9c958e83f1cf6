package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goodtune/studytime/internal/tracker"
	"github.com/rs/zerolog"
)

type fakeUpdater struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeUpdater) UpdateStudyTime(context.Context) (tracker.Totals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return tracker.Totals{}, f.err
	}
	return tracker.Totals{Today: f.calls, ThisWeek: f.calls * 2}, nil
}

func (f *fakeUpdater) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPollerPollsImmediatelyAndOnInterval(t *testing.T) {
	updater := &fakeUpdater{}
	results := make(chan tracker.Totals, 16)

	p := New(updater, 20*time.Millisecond, func(t tracker.Totals) { results <- t }, zerolog.Nop())
	p.Start()

	deadline := time.After(2 * time.Second)
	for received := 0; received < 3; {
		select {
		case <-results:
			received++
		case <-deadline:
			t.Fatalf("timed out after %d polls", received)
		}
	}

	p.Stop()
	calls := updater.Calls()
	time.Sleep(60 * time.Millisecond)
	if updater.Calls() != calls {
		t.Fatal("poller kept running after Stop")
	}

	// Stop is safe to call twice
	p.Stop()
}

func TestPollSkipsCallbackOnError(t *testing.T) {
	updater := &fakeUpdater{err: errors.New("store unavailable")}
	called := false

	p := New(updater, time.Hour, func(tracker.Totals) { called = true }, zerolog.Nop())
	p.Poll()

	if called {
		t.Fatal("callback must not run when the update fails")
	}
	if updater.Calls() != 1 {
		t.Fatalf("expected 1 call, got %d", updater.Calls())
	}
}

func TestNewDefaultsInterval(t *testing.T) {
	p := New(&fakeUpdater{}, 0, nil, zerolog.Nop())
	if p.interval != DefaultInterval {
		t.Fatalf("expected %s, got %s", DefaultInterval, p.interval)
	}
}

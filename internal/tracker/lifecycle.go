package tracker

import (
	"context"

	"github.com/goodtune/studytime/internal/lifecycle"
)

// SetupAppStateListener subscribes to source once. Later calls are no-ops.
// Going to the background or inactive ends the open session; becoming
// active only re-enables tracking.
func (t *Tracker) SetupAppStateListener(source lifecycle.Source) {
	t.listenMu.Lock()
	defer t.listenMu.Unlock()

	if t.listening {
		return
	}
	t.listening = true
	t.unsubscribe = source.Subscribe(t.handleAppState)

	t.logger.Debug().Msg("Lifecycle listener registered")
}

func (t *Tracker) handleAppState(state lifecycle.State) {
	switch state {
	case lifecycle.StateBackground, lifecycle.StateInactive:
		t.SetActive(false)
		if err := t.EndSession(context.Background()); err != nil {
			t.logger.Error().Err(err).Str("state", string(state)).Msg("Failed to end session on lifecycle change")
		}
	case lifecycle.StateActive:
		t.SetActive(true)
	default:
		t.logger.Warn().Str("state", string(state)).Msg("Ignoring unknown lifecycle state")
	}
}

// Close removes the lifecycle subscription.
func (t *Tracker) Close() {
	t.listenMu.Lock()
	defer t.listenMu.Unlock()

	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
}

package lifecycle

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
)

// DefaultSignals maps OS signals to lifecycle states for a CLI host.
// `kill -USR1` sends the tracker to the background, `kill -USR2` brings it back.
var DefaultSignals = map[os.Signal]State{
	syscall.SIGUSR1: StateBackground,
	syscall.SIGUSR2: StateActive,
	syscall.SIGTSTP: StateInactive,
	syscall.SIGCONT: StateActive,
}

// SignalSource turns OS signals into lifecycle transitions.
type SignalSource struct {
	mapping map[os.Signal]State
	logger  zerolog.Logger

	mu       sync.Mutex
	manual   *ManualSource
	sigChan  chan os.Signal
	stopChan chan struct{}
	started  bool
}

// NewSignalSource creates a SignalSource. A nil mapping uses DefaultSignals.
func NewSignalSource(mapping map[os.Signal]State, logger zerolog.Logger) *SignalSource {
	if mapping == nil {
		mapping = DefaultSignals
	}
	return &SignalSource{
		mapping: mapping,
		logger:  logger.With().Str("component", "lifecycle").Logger(),
		manual:  NewManualSource(),
	}
}

// Subscribe registers handler and starts listening for signals on first use.
func (s *SignalSource) Subscribe(handler func(State)) func() {
	unsubscribe := s.manual.Subscribe(handler)
	s.start()
	return unsubscribe
}

func (s *SignalSource) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	signals := make([]os.Signal, 0, len(s.mapping))
	for sig := range s.mapping {
		signals = append(signals, sig)
	}

	s.sigChan = make(chan os.Signal, 4)
	s.stopChan = make(chan struct{})
	signal.Notify(s.sigChan, signals...)

	go s.run(s.sigChan, s.stopChan)
}

func (s *SignalSource) run(sigChan <-chan os.Signal, stopChan <-chan struct{}) {
	for {
		select {
		case sig := <-sigChan:
			state := s.mapping[sig]
			s.logger.Info().
				Str("signal", sig.String()).
				Str("state", string(state)).
				Msg("Lifecycle transition")
			s.manual.Emit(state)
		case <-stopChan:
			return
		}
	}
}

// Stop stops listening for signals.
func (s *SignalSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	signal.Stop(s.sigChan)
	close(s.stopChan)
	s.started = false
}

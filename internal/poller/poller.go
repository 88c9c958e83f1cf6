package poller

import (
	"context"
	"sync"
	"time"

	"github.com/goodtune/studytime/internal/metrics"
	"github.com/goodtune/studytime/internal/tracker"
	"github.com/rs/zerolog"
)

// DefaultInterval matches the cadence the study dashboard refreshes at.
const DefaultInterval = 5 * time.Minute

// Updater is the part of the tracker the poller drives.
type Updater interface {
	UpdateStudyTime(ctx context.Context) (tracker.Totals, error)
}

// Poller calls UpdateStudyTime on a fixed interval
type Poller struct {
	updater  Updater
	interval time.Duration
	logger   zerolog.Logger
	onUpdate func(tracker.Totals)

	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new poller. onUpdate may be nil.
func New(updater Updater, interval time.Duration, onUpdate func(tracker.Totals), logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		updater:  updater,
		interval: interval,
		logger:   logger.With().Str("component", "poller").Logger(),
		onUpdate: onUpdate,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins polling. The first poll runs immediately.
func (p *Poller) Start() {
	go p.run()
	p.logger.Info().
		Dur("interval", p.interval).
		Msg("Study time poller started")
}

// Stop stops the poller and waits for an in-flight poll to finish
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
		<-p.done
		p.logger.Info().Msg("Study time poller stopped")
	})
}

// run is the main poll loop
func (p *Poller) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll()
	for {
		select {
		case <-ticker.C:
			p.Poll()
		case <-p.stopChan:
			return
		}
	}
}

// Poll performs a single update
func (p *Poller) Poll() {
	start := time.Now()
	totals, err := p.updater.UpdateStudyTime(context.Background())
	metrics.PollDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to update study time")
		return
	}

	p.logger.Info().
		Int("today_minutes", totals.Today).
		Int("week_minutes", totals.ThisWeek).
		Msg("Study time updated")

	if p.onUpdate != nil {
		p.onUpdate(totals)
	}
}

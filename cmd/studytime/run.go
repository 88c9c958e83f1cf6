package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/studytime/internal/lifecycle"
	"github.com/goodtune/studytime/internal/metrics"
	"github.com/goodtune/studytime/internal/poller"
	"github.com/goodtune/studytime/internal/systemd"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Track study time until interrupted",
	Long: `Start a study session and keep it checkpointed on the configured poll
interval. SIGUSR1 moves the tracker to the background (ending the session),
SIGUSR2 brings it back. Totals are exported as Prometheus metrics.`,
	RunE: runTracker,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runTracker(cmd *cobra.Command, args []string) error {
	a, err := openApp(configPath, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.logger
	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting studytime")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	// Lifecycle transitions from OS signals
	source := lifecycle.NewSignalSource(nil, logger)
	defer source.Stop()
	a.tracker.SetupAppStateListener(source)

	ctx := context.Background()
	if err := a.tracker.StartSession(ctx); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	// Metrics server
	var metricsServer *metrics.Server
	if a.cfg.Metrics.Enabled {
		metricsAddr := fmt.Sprintf("%s:%d", a.cfg.Metrics.BindAddress, a.cfg.Metrics.Port)
		metricsServer = metrics.NewServer(metricsAddr, logger)
		if sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	// Poller
	interval := parseDuration(a.cfg.Tracker.PollInterval, poller.DefaultInterval)
	p := poller.New(a.tracker, interval, nil, logger)
	p.Start()

	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd")
	}

	logger.Info().
		Dur("poll_interval", interval).
		Int("pid", os.Getpid()).
		Msg("studytime startup complete")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutdown signal received, ending session...")
	_ = systemd.NotifyStopping()

	p.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tracker.EndSession(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to end session")
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping metrics server")
		}
	}

	logger.Info().
		Int("today_minutes", a.tracker.TodayStudyTime(shutdownCtx)).
		Msg("studytime stopped")

	return nil
}

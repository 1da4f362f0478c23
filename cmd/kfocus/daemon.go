package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/kfocus/internal/metrics"
	"github.com/goodtune/kfocus/internal/schedule"
	"github.com/goodtune/kfocus/internal/session"
	"github.com/goodtune/kfocus/internal/systemd"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the session watcher, scheduler and metrics endpoint",
	Long: `Run kfocus in the foreground. The daemon finalizes sessions whose time is
up, honours end requests raised by the shield, starts scheduled sessions and
serves Prometheus metrics. SIGHUP forces an immediate reconcile.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.logger
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting kfocus daemon")

	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	logger.Info().
		Str("type", a.cfg.Storage.Type).
		Str("path", a.cfg.Storage.Path).
		Msg("Storage initialized")

	if ended, err := a.manager.Reconcile(context.Background()); err != nil {
		logger.Error().Err(err).Msg("Initial reconcile failed")
	} else if ended != nil {
		logger.Info().
			Str("session_id", ended.ID).
			Str("outcome", string(ended.Outcome)).
			Msg("Finalized session left over from a previous run")
	}

	watcher := session.NewWatcher(a.manager,
		parseDuration(a.cfg.Session.PollInterval, session.DefaultPollInterval), logger)
	watcher.Start()
	logger.Info().Msg("Session watcher started")

	var scheduler *schedule.Scheduler
	if a.cfg.Scheduler.Enabled {
		scheduler = schedule.NewScheduler(a.store.Schedules(), a.manager, a.clock,
			parseDuration(a.cfg.Scheduler.PollInterval, schedule.DefaultPollInterval), logger)
		scheduler.Start()
		logger.Info().Msg("Scheduler started")
	}

	var metricsServer *metrics.Server
	if a.cfg.Server.MetricsEnabled {
		metricsAddr := fmt.Sprintf("%s:%d", a.cfg.Server.BindAddress, a.cfg.Server.MetricsPort)
		metricsServer = metrics.NewServer(metricsAddr, logger)

		if sdListeners.Activated && sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}

		if err := metricsServer.Start(); err != nil {
			watcher.Stop()
			if scheduler != nil {
				scheduler.Stop()
			}
			return fmt.Errorf("failed to start Metrics Server: %w", err)
		}

		logger.Info().Msgf("Metrics: http://%s/metrics", metricsServer.Addr())
	}

	logger.Info().Msg("kfocus daemon startup complete")

	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	} else {
		logger.Debug().Msg("Sent systemd ready notification")
	}

	stopWatchdog := make(chan struct{})
	go systemd.Watchdog(stopWatchdog, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan

		if sig == syscall.SIGHUP {
			logger.Info().Msg("SIGHUP received, reconciling active session")
			reconcileNow(a)
			continue
		}

		logger.Info().Msg("Shutdown signal received, gracefully stopping...")
		break
	}

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}
	close(stopWatchdog)

	if scheduler != nil {
		scheduler.Stop()
	}
	watcher.Stop()

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping Metrics Server")
		}
	}

	logger.Info().Msg("kfocus daemon stopped")
	return nil
}

func reconcileNow(a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ended, err := a.manager.Reconcile(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("Reconcile failed")
		return
	}

	status := "Idle"
	if ended != nil {
		status = fmt.Sprintf("Session %s %s", ended.ID, ended.Outcome)
	} else if snap, ok := a.bridge.ReadSnapshot(ctx); ok {
		status = fmt.Sprintf("Focusing on %q until %s", snap.Title, snap.EndTime.Local().Format(time.Kitchen))
	}
	if err := systemd.NotifyStatus(status); err != nil {
		a.logger.Debug().Err(err).Msg("Failed to send systemd status")
	}
	a.logger.Info().Str("status", status).Msg("Reconciled")
}

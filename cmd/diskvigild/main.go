package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diskvigil/diskvigil/internal/config"
	"github.com/diskvigil/diskvigil/internal/coordinator"
	"github.com/diskvigil/diskvigil/internal/errors"
	"github.com/diskvigil/diskvigil/internal/fsscan"
	"github.com/diskvigil/diskvigil/internal/health"
	"github.com/diskvigil/diskvigil/internal/logger"
	"github.com/diskvigil/diskvigil/internal/pid"
	"github.com/diskvigil/diskvigil/internal/smart"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	applyLogLevel()
	logger.Debug().Msg("Config loaded")
}

// applyLogLevel applies the configured log level. The debug and verbose
// flags take precedence.
func applyLogLevel() {
	if cfg.Debug || cfg.Verbose {
		return
	}
	switch config.LogLevel(cfg.LogLevel) {
	case config.LogLevelDebug:
		logger.SetLogLevel(logger.DebugLevel)
	case config.LogLevelInfo:
		logger.SetLogLevel(logger.InfoLevel)
	case config.LogLevelWarning:
		logger.SetLogLevel(logger.WarnLevel)
	case config.LogLevelError:
		logger.SetLogLevel(logger.ErrorLevel)
	}
}

func main() {
	if err := pid.Write(); err != nil {
		if coded, ok := errors.AsError(err); ok {
			logger.FatalWithCode(coded).Msg("failed to claim PID file")
		}
		logger.Fatal().Err(err).Msg("failed to claim PID file")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	smartCfg := smart.DefaultConfig()
	smartCfg.Mode = smart.Mode(cfg.DataSource)
	collector := smart.NewService(smartCfg)
	predictor := health.NewService(health.Config{
		ModelPath:      cfg.ModelPath,
		NormParamsPath: cfg.NormParams,
		Window:         cfg.HistoryDays,
	})
	analyzer := fsscan.NewService(fsscan.DefaultConfig())

	repo, err := coordinator.NewRepository(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open intervention ledger")
	}
	defer repo.Close()

	coord := coordinator.NewService(coordinator.Config{
		DBPath:      cfg.Database,
		ScanPaths:   cfg.ScanPaths,
		HistoryDays: cfg.HistoryDays,
	}, collector, predictor, analyzer, repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := loop(ctx, collector, coord); err != nil {
		logger.Error().Err(err).Msg("error in main loop")
	}
	logger.Info().Msg("Exiting...")
}

func loop(ctx context.Context, collector smart.Collector, coord *coordinator.Service) error {
	interval := time.Duration(cfg.Interval) * time.Hour
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if cfg.Monitor {
		logger.Info().Msg("Monitor mode activated. Assessing drive health without intervening...")
	}

	// First sweep runs immediately so the daemon is useful before the
	// first tick.
	sweep(ctx, collector, coord)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sweep(ctx, collector, coord)
		}
	}
}

// sweep runs one coordination cycle for every detected device. Per-device
// failures are logged and skipped so one bad device never stalls the rest.
func sweep(ctx context.Context, collector smart.Collector, coord *coordinator.Service) {
	devices, err := collector.ListDevices(ctx, smart.Mode(cfg.DataSource))
	if err != nil {
		logger.Error().Err(err).Msg("failed to enumerate devices")
		return
	}

	logger.Debug().Int("devices", len(devices)).Msg("Starting coordination sweep")

	for _, device := range devices {
		if ctx.Err() != nil {
			return
		}

		var status coordinator.CycleStatus
		var err error
		if cfg.Monitor {
			status, err = coord.Observe(ctx, device.DeviceID)
		} else {
			status, err = coord.RunCycle(ctx, device.DeviceID)
		}
		if err != nil {
			logCycleError(device.DeviceID, err)
			continue
		}

		logStatus(device, status)
	}
}

func logCycleError(deviceID string, err error) {
	if coded, ok := errors.AsError(err); ok {
		logger.ErrorWithCode(coded).Str("device", deviceID).Msg("coordination cycle failed")
		return
	}
	logger.Error().Str("device", deviceID).Err(err).Msg("coordination cycle failed")
}

func logStatus(device smart.DeviceRecord, status coordinator.CycleStatus) {
	urgency := coordinator.UrgencyFor(status)
	assessment := status.Assessment

	event := logger.Info().
		Str("device", device.DeviceID).
		Str("model", device.Model).
		Int("health_score", assessment.HealthScore).
		Str("risk", string(assessment.RiskTier)).
		Str("trend", string(assessment.Trend)).
		Str("mode", status.Mode).
		Str("urgency", string(urgency.Level)).
		Str("backup_action", urgency.RecommendedAction)

	if assessment.DaysToFailure != nil {
		event = event.Int("days_to_failure", *assessment.DaysToFailure)
	}
	if status.Intervention != nil {
		event = event.
			Str("trigger", status.Intervention.TriggerReason).
			Float64("write_reduction", status.Intervention.WriteReduction).
			Float64("days_gained", status.Intervention.LifeExtensionDays)
	}
	if cfg.Debug {
		event = event.
			Float64("failure_probability", assessment.FailureProbability).
			Float64("health_drop", status.HealthDrop).
			Str("model_version", assessment.ModelVersion).
			Float64("urgency_score", urgency.Score)
	}

	event.Msg("Drive status")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

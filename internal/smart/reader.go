package smart

import (
	"context"
	"fmt"
	"time"

	"github.com/diskvigil/diskvigil/internal/errors"
	"github.com/diskvigil/diskvigil/internal/logger"
)

// Service runs the acquisition cascade and serves generated history windows.
// Safe for concurrent use.
type Service struct {
	cfg        Config
	strategies []Strategy
	history    *historyCache
	now        func() time.Time
}

// NewService builds a collector with the default strategy cascade:
// smartctl, the platform management API, raw device ioctls, then basic
// block-device enumeration.
func NewService(cfg Config) *Service {
	cfg = cfg.withDefaults()

	return &Service{
		cfg: cfg,
		strategies: []Strategy{
			newSmartctlStrategy(cfg),
			newMgmtStrategy(),
			newIoctlStrategy(cfg),
			newBasicStrategy(),
		},
		history: newHistoryCache(cfg.HistoryTTL),
		now:     time.Now,
	}
}

// ListDevices returns telemetry for all detected devices. In auto mode the
// strategies run in order until one yields at least one device; if every
// strategy fails the simulated drive set is returned so the pipeline always
// has data to work on.
func (s *Service) ListDevices(ctx context.Context, mode Mode) ([]DeviceRecord, error) {
	if mode == "" {
		mode = s.cfg.Mode
	}
	if !mode.IsValid() {
		return nil, errors.New().WithData(ErrInvalidMode, string(mode))
	}

	if mode == ModeSimulated {
		return simulatedDevices(s.now()), nil
	}

	for _, strategy := range s.strategies {
		devices, err := strategy.TryAcquire(ctx)
		if err != nil {
			logger.Debug().
				Str("strategy", strategy.Name()).
				Err(err).
				Msg("Acquisition strategy failed, trying next")
			continue
		}
		if len(devices) == 0 {
			continue
		}

		logger.Debug().
			Str("strategy", strategy.Name()).
			Int("devices", len(devices)).
			Msg("Telemetry acquired")
		return devices, nil
	}

	logger.Info().Msg("All acquisition strategies failed, using simulated devices")
	return simulatedDevices(s.now()), nil
}

// Describe returns the record for one device, or false when the device is
// not present in the current device set.
func (s *Service) Describe(ctx context.Context, deviceID string, mode Mode) (DeviceRecord, bool) {
	devices, err := s.ListDevices(ctx, mode)
	if err != nil {
		return DeviceRecord{}, false
	}

	for _, device := range devices {
		if device.DeviceID == deviceID {
			return device, true
		}
	}
	return DeviceRecord{}, false
}

// History returns a daily attribute series for the device covering the last
// `days` days, newest entry last. The series is generated deterministically
// from the device's current attributes and memoized for the cache TTL.
func (s *Service) History(ctx context.Context, deviceID string, days int) ([]Snapshot, error) {
	if days <= 0 {
		return nil, errors.New().WithData(ErrInvalidWindow, fmt.Sprintf("days=%d", days))
	}

	if history, ok := s.history.get(deviceID, days); ok {
		return history, nil
	}

	// Resolve against the configured mode so the device set matches what
	// ListDevices returned to the caller.
	device, ok := s.Describe(ctx, deviceID, s.cfg.Mode)
	if !ok {
		return nil, errors.New().WithData(ErrDeviceNotFound, deviceID)
	}

	history := generateHistory(device, days, s.now())
	s.history.put(deviceID, days, history)
	return history, nil
}

package smart

import "time"

const (
	defaultHistoryTTL    = 5 * time.Minute
	defaultProbeLimit    = 16
	defaultToolTimeout   = 20 * time.Second
	defaultScanTimeout   = 15 * time.Second
	defaultHistoryWindow = 30
)

type Config struct {
	// Mode is the telemetry source used when a caller does not name one.
	// History always resolves devices against this mode so the device set
	// matches what ListDevices returned to the caller.
	Mode Mode
	// SmartctlPath overrides binary discovery when set.
	SmartctlPath string
	// ProbeLimit is the exclusive upper bound of the device index range the
	// low-level strategy probes.
	ProbeLimit int
	// HistoryTTL is how long a generated history window stays memoized.
	HistoryTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		Mode:       ModeAuto,
		ProbeLimit: defaultProbeLimit,
		HistoryTTL: defaultHistoryTTL,
	}
}

func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeAuto
	}
	if c.ProbeLimit <= 0 {
		c.ProbeLimit = defaultProbeLimit
	}
	if c.HistoryTTL <= 0 {
		c.HistoryTTL = defaultHistoryTTL
	}
	return c
}

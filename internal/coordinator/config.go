package coordinator

const (
	// defaultHistoryDays is the history window fed to the predictor.
	defaultHistoryDays = 30

	// healthDropThreshold is the health-score drop per cycle that triggers
	// an intervention on its own.
	healthDropThreshold = 5.0

	// minCompressionPotential below which compression is not worth the
	// additional CPU and write churn.
	minCompressionPotential = 0.20

	// lifeExtensionCoefficient converts a write-reduction fraction into a
	// relative life gain.
	lifeExtensionCoefficient = 0.4
)

type Config struct {
	// DBPath is the sqlite database holding the ledger and health state.
	DBPath string
	// ScanPaths are the filesystem roots analyzed before an intervention.
	ScanPaths []string
	// HistoryDays is the telemetry window length.
	HistoryDays int
}

func (c Config) withDefaults() Config {
	if c.HistoryDays <= 0 {
		c.HistoryDays = defaultHistoryDays
	}
	return c
}

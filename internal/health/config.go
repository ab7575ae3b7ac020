package health

const (
	// defaultWindow is the history length the model was trained on.
	defaultWindow = 30

	// minSamples below which no real prediction is attempted.
	minSamples = 5

	// minReportingProbability is the floor under which no days-to-failure
	// estimate is reported.
	minReportingProbability = 0.05
)

type Config struct {
	// ModelPath points at the JSON model artifact. Empty disables the
	// model path without logging an error.
	ModelPath string
	// NormParamsPath points at the JSON normalization parameters.
	NormParamsPath string
	// Window is the sequence length fed to the predictor.
	Window int
}

func DefaultConfig() Config {
	return Config{Window: defaultWindow}
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = defaultWindow
	}
	return c
}

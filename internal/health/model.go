package health

import (
	"encoding/json"
	"math"
	"os"

	"github.com/diskvigil/diskvigil/internal/errors"
	"github.com/diskvigil/diskvigil/internal/smart"
)

const normEpsilon = 1e-8

// modelArtifact is the serialized trained model: one linear weight per
// attribute over the standardized per-attribute window means, plus a bias,
// squashed through a sigmoid.
type modelArtifact struct {
	Version string    `json:"version"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// normParams carries the training-set normalization statistics. Feature
// order must match the canonical attribute order.
type normParams struct {
	Features       []string  `json:"features"`
	Mean           []float64 `json:"mean"`
	Std            []float64 `json:"std"`
	SequenceLength int       `json:"sequence_length"`
}

type model struct {
	artifact modelArtifact
	norm     normParams
}

// loadModel reads and validates the model artifact and its normalization
// parameters. Any error disables the model path for the process lifetime.
func loadModel(modelPath, normPath string) (*model, error) {
	errFactory := errors.New()

	if _, err := os.Stat(modelPath); err != nil {
		return nil, errFactory.Wrap(ErrModelNotFound, err)
	}

	var artifact modelArtifact
	if err := readJSON(modelPath, &artifact); err != nil {
		return nil, errFactory.Wrap(ErrModelArtifact, err)
	}

	var norm normParams
	if err := readJSON(normPath, &norm); err != nil {
		return nil, errFactory.Wrap(ErrNormParams, err)
	}

	features := len(smart.FeatureOrder)
	if len(artifact.Weights) != features ||
		len(norm.Mean) != features ||
		len(norm.Std) != features {
		return nil, errFactory.WithData(ErrModelShape, map[string]int{
			"weights": len(artifact.Weights),
			"mean":    len(norm.Mean),
			"std":     len(norm.Std),
		})
	}
	if len(norm.Features) != 0 && len(norm.Features) != features {
		return nil, errFactory.WithData(ErrModelShape, len(norm.Features))
	}

	m := &model{artifact: artifact, norm: norm}
	if err := m.selfTest(); err != nil {
		return nil, err
	}

	return m, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// infer maps a (window, features) sequence to a failure probability.
func (m *model) infer(sequence [][]float64) float64 {
	z := m.artifact.Bias
	for i := range smart.FeatureOrder {
		var sum float64
		for _, day := range sequence {
			sum += day[i]
		}
		mean := sum / float64(len(sequence))
		standardized := (mean - m.norm.Mean[i]) / (m.norm.Std[i] + normEpsilon)
		z += m.artifact.Weights[i] * standardized
	}

	return 1 / (1 + math.Exp(-z))
}

// selfTest runs a zero-input inference. Anything outside [0,1] (NaN
// included) means the artifact is unusable.
func (m *model) selfTest() error {
	window := m.norm.SequenceLength
	if window <= 0 {
		window = defaultWindow
	}

	zeros := make([][]float64, window)
	for i := range zeros {
		zeros[i] = make([]float64, len(smart.FeatureOrder))
	}

	result := m.infer(zeros)
	if math.IsNaN(result) || result < 0 || result > 1 {
		return errors.New().WithData(ErrModelSelfTest, result)
	}

	return nil
}

// version returns the artifact's version tag.
func (m *model) version() string {
	if m.artifact.Version != "" {
		return m.artifact.Version
	}
	return "linear_v1"
}

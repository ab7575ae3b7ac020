package health

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diskvigil/diskvigil/internal/errors"
	"github.com/diskvigil/diskvigil/internal/smart"
)

func writeArtifacts(t *testing.T, artifact modelArtifact, norm normParams) (string, string) {
	t.Helper()
	dir := t.TempDir()

	modelPath := filepath.Join(dir, "model.json")
	normPath := filepath.Join(dir, "norm_params.json")

	modelData, err := json.Marshal(artifact)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(modelPath, modelData, 0o644))

	normData, err := json.Marshal(norm)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(normPath, normData, 0o644))

	return modelPath, normPath
}

func validArtifacts() (modelArtifact, normParams) {
	features := len(smart.FeatureOrder)

	artifact := modelArtifact{
		Version: "linear_v1_test",
		Weights: make([]float64, features),
		Bias:    -1,
	}
	artifact.Weights[0] = 2 // reallocated sectors dominates

	norm := normParams{
		Mean:           make([]float64, features),
		Std:            make([]float64, features),
		SequenceLength: 30,
	}
	for i := range norm.Std {
		norm.Std[i] = 1
	}

	return artifact, norm
}

func TestLoadModel(t *testing.T) {
	artifact, norm := validArtifacts()
	modelPath, normPath := writeArtifacts(t, artifact, norm)

	m, err := loadModel(modelPath, normPath)
	require.NoError(t, err)
	assert.Equal(t, "linear_v1_test", m.version())
}

func TestLoadModelMissing(t *testing.T) {
	_, err := loadModel(filepath.Join(t.TempDir(), "missing.json"), "")
	require.Error(t, err)
	assert.Equal(t, ErrModelNotFound, errors.CodeOf(err))
}

func TestLoadModelBadJSON(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(modelPath, []byte("not json"), 0o644))

	_, err := loadModel(modelPath, filepath.Join(dir, "norm.json"))
	require.Error(t, err)
	assert.Equal(t, ErrModelArtifact, errors.CodeOf(err))
}

func TestLoadModelMissingNormParams(t *testing.T) {
	artifact, norm := validArtifacts()
	modelPath, _ := writeArtifacts(t, artifact, norm)

	_, err := loadModel(modelPath, filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Equal(t, ErrNormParams, errors.CodeOf(err))
}

func TestLoadModelShapeMismatch(t *testing.T) {
	artifact, norm := validArtifacts()
	artifact.Weights = artifact.Weights[:3]
	modelPath, normPath := writeArtifacts(t, artifact, norm)

	_, err := loadModel(modelPath, normPath)
	require.Error(t, err)
	assert.Equal(t, ErrModelShape, errors.CodeOf(err))
}

func TestModelInfer(t *testing.T) {
	artifact, norm := validArtifacts()
	m := &model{artifact: artifact, norm: norm}

	zeros := make([][]float64, 30)
	for i := range zeros {
		zeros[i] = make([]float64, len(smart.FeatureOrder))
	}

	// Zero input leaves only the bias: sigmoid(-1).
	assert.InDelta(t, 1/(1+math.Exp(1)), m.infer(zeros), 1e-9)

	// Raising the dominant feature raises the probability.
	elevated := make([][]float64, 30)
	for i := range elevated {
		elevated[i] = make([]float64, len(smart.FeatureOrder))
		elevated[i][0] = 50
	}
	assert.Greater(t, m.infer(elevated), m.infer(zeros))
}

func TestModelSelfTestRejectsNaN(t *testing.T) {
	artifact, norm := validArtifacts()
	artifact.Weights[0] = math.NaN()
	m := &model{artifact: artifact, norm: norm}

	err := m.selfTest()
	require.Error(t, err)
	assert.Equal(t, ErrModelSelfTest, errors.CodeOf(err))
}

func TestNewServiceUsesModel(t *testing.T) {
	artifact, norm := validArtifacts()
	modelPath, normPath := writeArtifacts(t, artifact, norm)

	s := NewService(Config{ModelPath: modelPath, NormParamsPath: normPath})
	require.NotNil(t, s.model)

	assessment := s.Predict(snapshots(30, map[smart.AttributeID]float64{
		smart.AttrTemperature: 36,
	}))
	assert.Equal(t, "linear_v1_test", assessment.ModelVersion)
	assert.GreaterOrEqual(t, assessment.FailureProbability, 0.0)
	assert.LessOrEqual(t, assessment.FailureProbability, 1.0)
}

func TestNewServiceBadModelFallsBack(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(modelPath, []byte("{"), 0o644))

	s := NewService(Config{ModelPath: modelPath})
	assert.Nil(t, s.model)

	assessment := s.Predict(snapshots(30, nil))
	assert.Equal(t, "rule_based_fallback", assessment.ModelVersion)
}

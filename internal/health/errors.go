package health

import "github.com/diskvigil/diskvigil/internal/errors"

const (
	// Model loading errors
	ErrModelNotFound = errors.ErrorCode("health_model_not_found")
	ErrModelArtifact = errors.ErrorCode("health_model_artifact")
	ErrNormParams    = errors.ErrorCode("health_norm_params")
	ErrModelShape    = errors.ErrorCode("health_model_shape")
	ErrModelSelfTest = errors.ErrorCode("health_model_self_test")
)

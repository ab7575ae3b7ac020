package fsscan

import "github.com/diskvigil/diskvigil/internal/errors"

const (
	ErrInvalidModeOverride = errors.ErrorCode("fsscan_invalid_mode_override")
)

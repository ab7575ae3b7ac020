package smart

import "github.com/diskvigil/diskvigil/internal/errors"

const (
	// Configuration errors
	ErrInvalidMode   = errors.ErrorCode("smart_invalid_mode")
	ErrInvalidWindow = errors.ErrorCode("smart_invalid_window")

	// Acquisition errors
	ErrToolNotFound        = errors.ErrorCode("smart_tool_not_found")
	ErrToolFailed          = errors.ErrorCode("smart_tool_failed")
	ErrNoDevices           = errors.ErrorCode("smart_no_devices")
	ErrUnsupportedPlatform = errors.ErrorCode("smart_unsupported_platform")

	// Decoding errors
	ErrMalformedOutput     = errors.ErrorCode("smart_malformed_output")
	ErrDescriptorTruncated = errors.ErrorCode("smart_descriptor_truncated")

	// Lookup errors
	ErrDeviceNotFound = errors.ErrorCode("smart_device_not_found")
)

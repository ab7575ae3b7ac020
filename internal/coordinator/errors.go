package coordinator

import "github.com/diskvigil/diskvigil/internal/errors"

const (
	// Storage errors
	ErrInvalidDBPath = errors.ErrorCode("coordinator_invalid_db_path")
	ErrStorageInit   = errors.ErrorCode("coordinator_storage_init")
	ErrStorageAccess = errors.ErrorCode("coordinator_storage_access")
	ErrStorageClose  = errors.ErrorCode("coordinator_storage_close")

	// Validation errors
	ErrInvalidReduction = errors.ErrorCode("coordinator_invalid_reduction")
)

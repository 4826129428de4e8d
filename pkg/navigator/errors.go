package navigator

import "github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound          = domain.ErrNotFound
	ErrProgramNotFound   = domain.ErrProgramNotFound
	ErrIngestUnavailable = domain.ErrIngestUnavailable
	ErrImportParse       = domain.ErrImportParse
	ErrImportVersion     = domain.ErrImportVersion
	ErrValidationBlocked = domain.ErrValidationBlocked
)

package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrProgramNotFound signals an unknown program id.
	ErrProgramNotFound = errors.New("program not found")
	// ErrIngestUnavailable signals that a required ingestion file could not
	// be fetched. Callers must surface a degraded-mode notice.
	ErrIngestUnavailable = errors.New("ingestion source unavailable")
	// ErrImportParse signals a malformed override import document.
	ErrImportParse = errors.New("override import: malformed document")
	// ErrImportVersion signals an override import with an unsupported version tag.
	ErrImportVersion = errors.New("override import: unsupported version")
	// ErrValidationBlocked signals an override save rejected by error-level
	// validation issues.
	ErrValidationBlocked = errors.New("overrides rejected by validation")
)

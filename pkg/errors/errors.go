package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyKey     = errors.New("empty key")
	ErrInvalidData  = errors.New("invalid data type")
	ErrEntityExists = errors.New("entity already exists")

	// Round lifecycle failures, one per stage boundary.
	ErrDataUnavailable = errors.New("dataset is missing or empty")
	ErrArtifactMissing = errors.New("required artifact cannot be retrieved")
	ErrFitFailure      = errors.New("model fit failed")

	// Aggregation failures.
	ErrNoPayloads    = errors.New("no local payloads found for aggregation")
	ErrShapeMismatch = errors.New("local payloads disagree in dimensionality")
	ErrRoundNotReady = errors.New("round is not ready for aggregation")
	ErrQuorumNotMet  = errors.New("round quorum not met before timeout")
)

package ml

import "errors"

var (
	// ErrInvalidConfig rejects a training or generation request before any work is done.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownLabel is returned by Encode for a label not seen during Fit.
	ErrUnknownLabel = errors.New("unknown label")

	// ErrUnknownIndex is returned by Decode for an index outside the fitted range.
	ErrUnknownIndex = errors.New("unknown class index")

	// ErrNotTrained is returned when inference is attempted before any
	// successful training run has persisted an artifact set.
	ErrNotTrained = errors.New("model artifacts not trained")
)

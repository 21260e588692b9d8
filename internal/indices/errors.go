package indices

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownIndex is returned when a short name has no provider series code.
	ErrUnknownIndex = errors.New("unknown index")

	// ErrInvalidWindow is returned for window sizes other than 1 and 12.
	ErrInvalidWindow = errors.New("invalid window size")

	// ErrEmptySeries is returned when the provider answered with no observations.
	ErrEmptySeries = errors.New("empty index series")

	// ErrProviderUnavailable is returned when the provider cannot be reached or answers garbage.
	ErrProviderUnavailable = errors.New("index provider unavailable")

	// ErrMalformedObservation is returned when an observation value is not a finite decimal.
	ErrMalformedObservation = errors.New("malformed index observation")
)

// UpstreamError reports a non-success response from the index provider.
type UpstreamError struct {
	StatusCode int
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("index provider responded with status %d", e.StatusCode)
}

// RetrievalError marks an index as unavailable for the current fetch cycle.
// It blocks proposal generation until a new cycle succeeds.
type RetrievalError struct {
	Index string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("index %s unavailable: %v", e.Index, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMovieNotFound is returned when a product id has no catalog record
	ErrMovieNotFound = errors.New("movie not found in catalog")

	// ErrDataIntegrity is returned when a stored catalog record is missing its score
	ErrDataIntegrity = errors.New("catalog record is missing a score")

	// ErrTransport is returned when a source cannot be reached at all
	ErrTransport = errors.New("upstream transport failure")

	// ErrUpstreamStatus is matched by StatusError for non-2xx source responses
	ErrUpstreamStatus = errors.New("upstream returned non-2xx status")

	// ErrDecode is returned when a source payload cannot be parsed
	ErrDecode = errors.New("failed to decode upstream payload")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrIngestInProgress is returned when another ingestion run holds the lock
	ErrIngestInProgress = errors.New("catalog ingestion already in progress")

	// ErrJobNotFound is returned for unknown background job ids
	ErrJobNotFound = errors.New("job not found")
)

// StatusError reports a non-2xx response from one of the upstream sources.
type StatusError struct {
	Source     string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: upstream status %d", e.Source, e.StatusCode)
}

// Is lets errors.Is(err, ErrUpstreamStatus) match any StatusError.
func (e *StatusError) Is(target error) bool {
	return target == ErrUpstreamStatus
}

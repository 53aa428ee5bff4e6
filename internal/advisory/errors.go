// Package advisory mediates every call to the external advisory model: a
// process-wide token bucket, retry with backoff, a circuit breaker, and the
// three structured request shapes the simulation uses.
package advisory

import (
	"errors"
	"fmt"
)

// Sentinel errors for the gateway taxonomy. Callers branch on these with
// errors.Is; everything else is a transport-level failure.
var (
	// ErrUnavailable is returned while the circuit is open.
	ErrUnavailable = errors.New("advisory service unavailable")

	// ErrRateLimited marks a rate-limit response from the collaborator.
	// The gateway retries these with backoff before surfacing them.
	ErrRateLimited = errors.New("advisory rate limited")

	// ErrNotConfigured is returned when no API key was provided.
	ErrNotConfigured = errors.New("advisory client not configured")
)

// SchemaError marks a response that parsed as JSON (or failed to) but did
// not satisfy the expected shape. Call sites treat it as recoverable and
// fall back.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("advisory response schema: %s", e.Reason)
}

// IsSchemaError reports whether err is (or wraps) a SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// ClientError is a non-retryable client-class failure (a malformed request,
// auth failure, and so on — any 4xx other than a rate limit).
type ClientError struct {
	Status int
	Body   string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("advisory client error %d: %s", e.Status, e.Body)
}

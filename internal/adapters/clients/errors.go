// Package clients is the outbound HTTP layer the sync agent and the remote
// health check use to reach the remote quote host.
package clients

import (
	"errors"
	"fmt"
)

// Failures the ACL translates into domain.ErrUnavailable.
var (
	// ErrCircuitOpen means the call was rejected locally without reaching
	// the remote.
	ErrCircuitOpen = errors.New("remote circuit open")

	// ErrRetriesExhausted wraps the last attempt's error once every attempt
	// has failed.
	ErrRetriesExhausted = errors.New("remote retries exhausted")
)

// StatusError is a 5xx answer from the remote. It is retried and, when it is
// the last attempt's outcome, wrapped in ErrRetriesExhausted.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote answered HTTP %d", e.Code)
}

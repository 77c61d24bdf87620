package bookstore

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// RemoteError is a failed call to the remote bookstore service:
// network failure, a non-2xx response, or an open circuit breaker.
// Surfaced to the user as a generic failure, never retried here.
type RemoteError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("bookstore %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("bookstore %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IsRemoteError reports whether err came from the remote service.
func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

package api

import (
	"errors"
	"fmt"
)

// ServerRejectedError means the remote system explicitly declined the request:
// it answered, but with an error envelope or a non-retriable status. The queue
// treats it differently from a transport failure.
type ServerRejectedError struct {
	StatusCode int
	Message    string
}

func (e *ServerRejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server rejected request: %s", e.Message)
	}
	return fmt.Sprintf("server rejected request: status %d", e.StatusCode)
}

// IsServerRejected reports whether err carries a ServerRejectedError.
func IsServerRejected(err error) bool {
	var sre *ServerRejectedError
	return errors.As(err, &sre)
}

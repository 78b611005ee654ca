package engine

import (
	"errors"
	"fmt"
)

// ErrAlreadyInitialized is returned when StartWorkflow runs against a case
// that already has workflow history.
var ErrAlreadyInitialized = errors.New("workflow already initialized for case")

// ValidationDeniedError reports an FSM rule violation. Not retryable
// without changing case state; no writes happened.
type ValidationDeniedError struct {
	Reason string
}

func (e *ValidationDeniedError) Error() string {
	return fmt.Sprintf("transition denied: %s", e.Reason)
}

// IsDenied reports whether err is an FSM denial.
func IsDenied(err error) bool {
	var denied *ValidationDeniedError
	return errors.As(err, &denied)
}

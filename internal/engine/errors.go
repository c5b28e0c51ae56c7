package engine

import (
	"errors"
	"fmt"

	"github.com/xuxxeth/sx/internal/ir"
)

// TransitionError reports a rejected transition. Err carries the cause,
// usually an *ir.Error; use ir.IsCode / ir.CodeOf on the TransitionError
// directly since it unwraps.
type TransitionError struct {
	// Action is the entry point, e.g. "create_profile".
	Action string

	// Transition is the correlation token the transition would have stamped
	// on its event.
	Transition string

	Err error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s (transition=%s): %v", e.Action, e.Transition, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// Outcome returns the metrics label for err: "ok" for nil, the error code for
// typed errors, "internal" otherwise.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code := ir.CodeOf(err); code != "" {
		return string(code)
	}
	return "internal"
}

// IsTransitionError returns true if err is or wraps a TransitionError.
func IsTransitionError(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}

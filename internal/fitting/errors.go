package fitting

import "fmt"

// Error is a fatal failure of a fitting run, tagged with the state it happened in.
type Error struct {
	State   State
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fitting failed in %s: %s: %v", e.State, e.Message, e.Cause)
	}
	return fmt.Sprintf("fitting failed in %s: %s", e.State, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ContextError reports an invalid FittingContext.
type ContextError struct {
	Message string
	Cause   error
}

func (e *ContextError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid fitting context: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid fitting context: %s", e.Message)
}

func (e *ContextError) Unwrap() error {
	return e.Cause
}

package editing

import (
	"fmt"

	"github.com/jonathan/resume-fitter/internal/sections"
)

// NothingToReduceError is returned by Reduce when the section has no removable unit left.
type NothingToReduceError struct {
	Section sections.Kind
}

func (e *NothingToReduceError) Error() string {
	return fmt.Sprintf("nothing to reduce in section %s", e.Section)
}

// EditError reports a failed edit. The section is left unchanged.
type EditError struct {
	Section sections.Kind
	Op      string
	Message string
	Cause   error
}

func (e *EditError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Section, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Section, e.Message)
}

func (e *EditError) Unwrap() error {
	return e.Cause
}

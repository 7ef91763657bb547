package sections

import "fmt"

// MalformedSectionError is returned when section markup cannot be parsed
// (unbalanced braces, mismatched environments). Callers may Repair and retry.
type MalformedSectionError struct {
	Section Kind
	Line    int
	Reason  string
}

func (e *MalformedSectionError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed section %s: line %d: %s", e.Section, e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed section %s: %s", e.Section, e.Reason)
}

// ItemIndexError is returned when an item position is out of range.
type ItemIndexError struct {
	Section Kind
	Index   int
	Len     int
}

func (e *ItemIndexError) Error() string {
	return fmt.Sprintf("section %s: item index %d out of range [0,%d)", e.Section, e.Index, e.Len)
}

// DocumentError describes an invalid document composition.
type DocumentError struct {
	Message string
	Cause   error
}

func (e *DocumentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("document error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("document error: %s", e.Message)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

package compiler

import (
	"fmt"
	"strings"
)

// CompilationError represents a LaTeX compilation failure
type CompilationError struct {
	Message   string
	LogOutput string
	Cause     error
}

func (e *CompilationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("LaTeX compilation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("LaTeX compilation error: %s", e.Message)
}

func (e *CompilationError) Unwrap() error {
	return e.Cause
}

// LogTail returns the last n lines of the compiler log.
func (e *CompilationError) LogTail(n int) string {
	lines := strings.Split(strings.TrimRight(e.LogOutput, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// PageCountError represents a failure to measure a PDF
type PageCountError struct {
	Message string
	Cause   error
}

func (e *PageCountError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("page count error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("page count error: %s", e.Message)
}

func (e *PageCountError) Unwrap() error {
	return e.Cause
}

package rendering

import "fmt"

// TemplateError reports a main-file template that could not be loaded, parsed or executed.
// Path is empty for the built-in template.
type TemplateError struct {
	Path    string
	Message string
	Cause   error
}

func (e *TemplateError) Error() string {
	name := "built-in template"
	if e.Path != "" {
		name = "template " + e.Path
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", name, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", name, e.Message)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// SectionFileError reports a section directory or file that could not be read or written.
type SectionFileError struct {
	Op    string
	Path  string
	Cause error
}

func (e *SectionFileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
	}
	return fmt.Sprintf("%s %s", e.Op, e.Path)
}

func (e *SectionFileError) Unwrap() error {
	return e.Cause
}

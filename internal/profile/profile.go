// Package profile loads the candidate's personal information file (info.yml). The file
// is free-form YAML: a few header fields are decoded into typed values and the whole
// document is kept for generation prompts.
package profile

import (
	"bytes"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/resume-fitter/internal/compiler"
)

// Profile is the parsed personal information.
type Profile struct {
	Name     string   `mapstructure:"name"`
	Email    string   `mapstructure:"email"`
	Phone    string   `mapstructure:"phone"`
	Location string   `mapstructure:"location"`
	Links    []string `mapstructure:"links"`

	// Raw holds every key of the file, including the ones decoded above.
	Raw map[string]any `mapstructure:"-"`
}

// Error reports an unreadable or malformed profile file.
type Error struct {
	Path    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("profile %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("profile %s: %s", e.Path, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Load reads and parses the profile at path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Message: "failed to read file", Cause: err}
	}
	p, err := Parse(data)
	if err != nil {
		return nil, &Error{Path: path, Message: "failed to parse", Cause: err}
	}
	return p, nil
}

// Parse decodes YAML profile data. The top level must be a mapping.
func Parse(data []byte) (*Profile, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("profile is empty")
	}

	p := &Profile{Raw: raw}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, err
	}
	return p, nil
}

// YAML renders the whole profile for a prompt.
func (p *Profile) YAML() string {
	if p == nil || len(p.Raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p.Raw); err != nil {
		return ""
	}
	_ = enc.Close()
	return buf.String()
}

// Header returns the contact fields printed above the sections.
func (p *Profile) Header() compiler.Header {
	if p == nil {
		return compiler.Header{}
	}
	return compiler.Header{Name: p.Name, Email: p.Email, Phone: p.Phone}
}

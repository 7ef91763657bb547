package sections

import (
	"encoding/json"
	"fmt"
)

// RawSection is the boundary form of one section: its name and markup.
type RawSection struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Document is an ordered set of parsed sections. Order only affects rendering.
type Document struct {
	order    []Kind
	sections map[Kind]Section
}

// NewDocument builds a document from parsed sections, rejecting duplicate kinds.
func NewDocument(secs ...Section) (*Document, error) {
	d := &Document{sections: make(map[Kind]Section, len(secs))}
	for _, s := range secs {
		if _, dup := d.sections[s.Kind]; dup {
			return nil, &DocumentError{Message: fmt.Sprintf("section %s appears twice", s.Kind)}
		}
		if _, ok := BehaviorOf(s.Kind); !ok {
			return nil, &DocumentError{Message: fmt.Sprintf("unknown section %q", s.Kind)}
		}
		d.order = append(d.order, s.Kind)
		d.sections[s.Kind] = s.Clone()
	}
	return d, nil
}

// ParseDocument parses every raw section and assembles a document in the given order.
func ParseDocument(raws []RawSection) (*Document, error) {
	secs := make([]Section, 0, len(raws))
	for _, r := range raws {
		kind, err := ParseKind(r.Name)
		if err != nil {
			return nil, &DocumentError{Message: "invalid section name", Cause: err}
		}
		s, err := Parse(kind, r.Content)
		if err != nil {
			return nil, err
		}
		secs = append(secs, s)
	}
	return NewDocument(secs...)
}

// Kinds returns the section kinds in document order.
func (d *Document) Kinds() []Kind {
	return append([]Kind(nil), d.order...)
}

// Has reports whether the document contains kind.
func (d *Document) Has(kind Kind) bool {
	_, ok := d.sections[kind]
	return ok
}

// Section returns a copy of the section for kind.
func (d *Document) Section(kind Kind) (Section, bool) {
	s, ok := d.sections[kind]
	if !ok {
		return Section{}, false
	}
	return s.Clone(), true
}

// Set replaces an existing section.
func (d *Document) Set(s Section) error {
	if _, ok := d.sections[s.Kind]; !ok {
		return &DocumentError{Message: fmt.Sprintf("document has no section %s", s.Kind)}
	}
	d.sections[s.Kind] = s.Clone()
	return nil
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	out := &Document{order: d.Kinds(), sections: make(map[Kind]Section, len(d.sections))}
	for k, s := range d.sections {
		out.sections[k] = s.Clone()
	}
	return out
}

// Raw returns the boundary form of every section in order.
func (d *Document) Raw() []RawSection {
	raws := make([]RawSection, 0, len(d.order))
	for _, k := range d.order {
		raws = append(raws, RawSection{Name: string(k), Content: Serialize(d.sections[k])})
	}
	return raws
}

// Equal reports whether both documents serialize identically.
func (d *Document) Equal(other *Document) bool {
	a, b := d.Raw(), other.Raw()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Sections []RawSection `json:"sections"`
	}{Sections: d.Raw()})
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var in struct {
		Sections []RawSection `json:"sections"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	parsed, err := ParseDocument(in.Sections)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

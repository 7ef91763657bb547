// Package sections provides the in-memory section store: parsing LaTeX section text into
// atomic items, serializing it back, and splicing single-unit edits.
package sections

import (
	"fmt"
	"strings"
)

// Kind identifies one section of the document.
type Kind string

const (
	Education       Kind = "education"
	WorkExperience  Kind = "work_experience"
	Projects        Kind = "projects"
	TechnicalSkills Kind = "technical_skills"
)

// AllKinds lists the known kinds in default document order.
var AllKinds = []Kind{Education, WorkExperience, Projects, TechnicalSkills}

// UnitType is the smallest removable unit of a section.
type UnitType int

const (
	// UnitItem removes or adds one whole item (bullet or entry).
	UnitItem UnitType = iota
	// UnitSkillToken removes one comma-separated token from a skill row.
	UnitSkillToken
)

func (u UnitType) String() string {
	switch u {
	case UnitSkillToken:
		return "skill_token"
	default:
		return "item"
	}
}

// Behavior is the editing policy of a section kind.
type Behavior struct {
	Unit UnitType
	// ProtectLast keeps the final removable unit of the section in place.
	ProtectLast bool
}

var behaviors = map[Kind]Behavior{
	Education:       {Unit: UnitItem, ProtectLast: true},
	WorkExperience:  {Unit: UnitItem, ProtectLast: true},
	Projects:        {Unit: UnitItem, ProtectLast: true},
	TechnicalSkills: {Unit: UnitSkillToken, ProtectLast: true},
}

// BehaviorOf returns the editing policy for kind.
func BehaviorOf(kind Kind) (Behavior, bool) {
	b, ok := behaviors[kind]
	return b, ok
}

// ParseKind converts a section name into a Kind.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.TrimSpace(strings.ToLower(name)))
	if _, ok := behaviors[k]; !ok {
		return "", fmt.Errorf("unknown section %q (valid: %s)", name, kindList())
	}
	return k, nil
}

// ParseKinds converts a list of section names, rejecting duplicates.
func ParseKinds(names []string) ([]Kind, error) {
	seen := make(map[Kind]bool, len(names))
	kinds := make([]Kind, 0, len(names))
	for _, name := range names {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		if seen[k] {
			return nil, fmt.Errorf("section %q listed twice", k)
		}
		seen[k] = true
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func kindList() string {
	names := make([]string, len(AllKinds))
	for i, k := range AllKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

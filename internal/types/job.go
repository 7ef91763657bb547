package types

import (
	"sort"
	"strings"
)

// JobContext is the relevance signal items are ranked against.
type JobContext struct {
	Title           string   `json:"title,omitempty" yaml:"title"`
	Company         string   `json:"company,omitempty" yaml:"company"`
	Description     string   `json:"description,omitempty" yaml:"description"`
	Requirements    []string `json:"requirements,omitempty" yaml:"requirements"`
	PreferredSkills []string `json:"preferred_skills,omitempty" yaml:"preferred_skills"`
	Keywords        []string `json:"keywords,omitempty" yaml:"keywords"`
}

// Terms returns the distinct lowercase keywords and skills of the job, sorted.
func (j JobContext) Terms() []string {
	seen := make(map[string]bool)
	var terms []string
	for _, group := range [][]string{j.Keywords, j.PreferredSkills} {
		for _, t := range group {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			terms = append(terms, t)
		}
	}
	sort.Strings(terms)
	return terms
}

// Summary renders the context as plain text for prompts.
func (j JobContext) Summary() string {
	var sb strings.Builder
	if j.Title != "" {
		sb.WriteString("Role: " + j.Title + "\n")
	}
	if j.Company != "" {
		sb.WriteString("Company: " + j.Company + "\n")
	}
	writeList := func(label string, values []string) {
		if len(values) == 0 {
			return
		}
		sb.WriteString(label + ":\n")
		for _, v := range values {
			sb.WriteString("- " + v + "\n")
		}
	}
	writeList("Requirements", j.Requirements)
	writeList("Preferred skills", j.PreferredSkills)
	writeList("Keywords", j.Keywords)
	if j.Description != "" {
		sb.WriteString("Description:\n" + strings.TrimSpace(j.Description) + "\n")
	}
	return sb.String()
}

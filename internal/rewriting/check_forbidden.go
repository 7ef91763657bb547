package rewriting

import (
	"strings"

	"github.com/jonathan/resume-fitter/internal/sections"
)

// checkForbiddenPhrasesInText checks plain text for forbidden phrases
// Returns a list of forbidden phrases found in the text (case-insensitive)
func checkForbiddenPhrasesInText(text string, forbidden []string) []string {
	if len(forbidden) == 0 {
		return nil
	}

	normalizedText := strings.ToLower(sections.PlainText(text))

	var foundPhrases []string
	seen := make(map[string]bool)
	for _, phrase := range forbidden {
		normalizedPhrase := strings.ToLower(strings.TrimSpace(phrase))
		if normalizedPhrase == "" || seen[normalizedPhrase] {
			continue
		}
		if strings.Contains(normalizedText, normalizedPhrase) {
			foundPhrases = append(foundPhrases, phrase)
			seen[normalizedPhrase] = true
		}
	}
	return foundPhrases
}

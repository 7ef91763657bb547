package rewriting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckForbiddenPhrasesInText(t *testing.T) {
	phrases := []string{"ninja", "rockstar", "Synergy"}

	tests := []struct {
		name      string
		text      string
		forbidden []string
		want      []string
	}{
		{"clean item", `\item Built a billing service in Go`, phrases, nil},
		{"one phrase", `\item Go ninja on the payments team`, phrases, []string{"ninja"}},
		{"list order kept", `\item Rockstar ninja`, phrases, []string{"ninja", "rockstar"}},
		{"case insensitive", `\item Drove SYNERGY across teams`, phrases, []string{"Synergy"}},
		{"markup ignored", `\item A \textbf{rock}star engineer`, phrases, []string{"rockstar"}},
		{"duplicates reported once", `\item ninja`, []string{"ninja", "Ninja "}, []string{"ninja"}},
		{"blank phrase skipped", `\item anything`, []string{"  "}, nil},
		{"no phrases", `\item ninja`, nil, nil},
		{"empty text", "", phrases, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checkForbiddenPhrasesInText(tt.text, tt.forbidden))
		})
	}
}

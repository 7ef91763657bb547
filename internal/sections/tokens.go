package sections

import (
	"errors"
	"strings"
)

// ErrSingleToken is returned by RemoveToken when the item has nothing left to split off.
var ErrSingleToken = errors.New("item holds a single token")

// TokenCount returns the number of comma-separated tokens in a skill row.
// Escaped commas (\,) are LaTeX spacing and do not separate tokens.
func TokenCount(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return len(separatorIndexes(text)) + 1
}

func separatorIndexes(text string) []int {
	var idx []int
	code := maskComments(text)
	for i := 0; i < len(code); i++ {
		switch code[i] {
		case '\\':
			i++
		case ',':
			idx = append(idx, i)
		}
	}
	return idx
}

// dropLastToken removes the last token and its separator from a skill row.
func dropLastToken(text string) (string, bool) {
	seps := separatorIndexes(text)
	if len(seps) == 0 {
		return text, false
	}
	start := seps[len(seps)-1]

	end := start + 1
	depth := 0
scan:
	for ; end < len(text); end++ {
		switch text[end] {
		case '\\':
			if end+1 < len(text) && text[end+1] == '\\' && depth == 0 {
				break scan
			}
			end++
		case '{':
			depth++
		case '}':
			if depth == 0 {
				break scan
			}
			depth--
		case '\n', '%':
			break scan
		}
	}
	if end > len(text) {
		end = len(text)
	}
	for end > start+1 && text[end-1] == ' ' {
		end--
	}
	return text[:start] + text[end:], true
}

// RemoveToken drops the last token of the skill row at position index.
func RemoveToken(s Section, index int) (Section, error) {
	items := s.Items()
	if index < 0 || index >= len(items) {
		return s, &ItemIndexError{Section: s.Kind, Index: index, Len: len(items)}
	}
	text, ok := dropLastToken(items[index].Text)
	if !ok {
		return s, ErrSingleToken
	}
	return ReplaceItem(s, index, text)
}

// Units counts the section's editable units according to its behavior.
func Units(s Section) int {
	if s.Behavior.Unit != UnitSkillToken {
		return s.ItemCount()
	}
	n := 0
	for _, it := range s.Items() {
		n += TokenCount(it.Text)
	}
	return n
}

// RemovableUnits is Units minus the protected final unit, if any.
func RemovableUnits(s Section) int {
	n := Units(s)
	if s.Behavior.ProtectLast && n > 0 {
		n--
	}
	return n
}

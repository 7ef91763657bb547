package sections

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	markerPattern      = regexp.MustCompile(`^\s*\\(?:item|resumeItem|resumeSubItem)(?:\[[^\]]*\])?\s*`)
	commandArgPattern  = regexp.MustCompile(`\\[a-zA-Z]+\*?(?:\[[^\]]*\])?\{([^{}]*)\}`)
	bareCommandPattern = regexp.MustCompile(`\\(?:[a-zA-Z]+\*?|\\)`)
)

// PlainText approximates the visible text of a fragment: the item marker, comments and
// LaTeX commands are removed, command arguments are kept, whitespace is collapsed.
func PlainText(text string) string {
	s := maskComments(text)
	s = markerPattern.ReplaceAllString(s, "")
	for {
		next := commandArgPattern.ReplaceAllString(s, "$1")
		if next == s {
			break
		}
		s = next
	}
	s = bareCommandPattern.ReplaceAllString(s, " ")

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			if i+1 < len(s) && strings.IndexByte("&%$#_{}", s[i+1]) >= 0 {
				i++
				b.WriteByte(s[i])
				continue
			}
			b.WriteByte(' ')
		case '{', '}', '$':
		case '~':
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// VisibleLength is the rune count of PlainText(text).
func VisibleLength(text string) int {
	return utf8.RuneCountInString(PlainText(text))
}

// SplitItem separates an item into its marker prefix, its body and a suffix, so the body
// can be rewritten without touching the markup around it. For \resumeItem{...} the
// braces belong to prefix and suffix. Trailing whitespace always goes to the suffix.
func SplitItem(text string) (prefix, body, suffix string) {
	prefix = markerPattern.FindString(text)
	rest := text[len(prefix):]
	trimmed := strings.TrimRight(rest, " \t\n")
	suffix = rest[len(trimmed):]
	body = trimmed

	if strings.HasPrefix(strings.TrimSpace(prefix), `\resume`) && strings.HasPrefix(body, "{") {
		if end := matchBrace(body, 0); end == len(body)-1 {
			return prefix + "{", body[1:end], "}" + suffix
		}
	}
	return prefix, body, suffix
}

// matchBrace returns the index of the brace closing text[open], or -1.
func matchBrace(text string, open int) int {
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Package rendering moves documents between section files and the main LaTeX source.
package rendering

import "strings"

// EscapeLaTeX escapes special LaTeX characters in text
// Special characters: \ { } $ & % # ^ _ ~
func EscapeLaTeX(text string) string {
	if text == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(text) * 2)

	for _, r := range text {
		switch r {
		case '\\':
			result.WriteString(`\textbackslash{}`)
		case '{':
			result.WriteString(`\{`)
		case '}':
			result.WriteString(`\}`)
		case '$':
			result.WriteString(`\$`)
		case '&':
			result.WriteString(`\&`)
		case '%':
			result.WriteString(`\%`)
		case '#':
			result.WriteString(`\#`)
		case '^':
			result.WriteString(`\textasciicircum{}`)
		case '_':
			result.WriteString(`\_`)
		case '~':
			result.WriteString(`\textasciitilde{}`)
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

// EscapeBare escapes #, % and & that are not already escaped, leaving the rest of
// the markup alone. Generated items go through it before they are spliced in.
func EscapeBare(text string) string {
	var result strings.Builder
	result.Grow(len(text) + 8)

	backslashes := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '#', '%', '&':
			if backslashes%2 == 0 {
				result.WriteByte('\\')
			}
		}
		result.WriteByte(c)
		if c == '\\' {
			backslashes++
		} else {
			backslashes = 0
		}
	}
	return result.String()
}

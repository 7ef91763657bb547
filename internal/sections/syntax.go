package sections

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	envPattern       = regexp.MustCompile(`\\(begin|end)\s*\{([^}]*)\}`)
	envAtPattern     = regexp.MustCompile(`^\\(begin|end)\s*\{([^}]*)\}`)
	multicolsPattern = regexp.MustCompile(`\\(?:begin\s*\{multicols\*?\}(?:\{[^}]*\})?|end\s*\{multicols\*?\})`)
)

// maskComments blanks out % comments, keeping byte offsets intact.
func maskComments(text string) string {
	b := []byte(text)
	inComment := false
	for i := 0; i < len(b); i++ {
		switch {
		case b[i] == '\n':
			inComment = false
		case inComment:
			b[i] = ' '
		case b[i] == '\\':
			i++
		case b[i] == '%':
			inComment = true
			b[i] = ' '
		}
	}
	return string(b)
}

// checkStructure returns the 1-based line and reason of the first structural defect,
// or an empty reason when the text is balanced.
func checkStructure(raw string) (int, string) {
	type frame struct {
		name string
		line int
	}
	var envs []frame
	depth, openedAt := 0, 0

	for n, line := range strings.Split(maskComments(raw), "\n") {
		lineNo := n + 1
		for i := 0; i < len(line); i++ {
			switch line[i] {
			case '\\':
				i++
			case '{':
				if depth == 0 {
					openedAt = lineNo
				}
				depth++
			case '}':
				depth--
				if depth < 0 {
					return lineNo, "unexpected closing brace"
				}
			}
		}
		for _, m := range envPattern.FindAllStringSubmatch(line, -1) {
			name := strings.TrimSpace(m[2])
			if m[1] == "begin" {
				envs = append(envs, frame{name: name, line: lineNo})
				continue
			}
			if len(envs) == 0 {
				return lineNo, fmt.Sprintf(`\end{%s} without matching \begin`, name)
			}
			top := envs[len(envs)-1]
			if top.name != name {
				return lineNo, fmt.Sprintf(`\end{%s} closes \begin{%s} from line %d`, name, top.name, top.line)
			}
			envs = envs[:len(envs)-1]
		}
	}
	if depth > 0 {
		return openedAt, fmt.Sprintf("%d unclosed brace(s)", depth)
	}
	if len(envs) > 0 {
		top := envs[len(envs)-1]
		return top.line, fmt.Sprintf(`\begin{%s} is never closed`, top.name)
	}
	return 0, ""
}

// Validate reports the first syntax problem in raw, or nil.
func Validate(raw string) error {
	if line, reason := checkStructure(raw); reason != "" {
		return &MalformedSectionError{Line: line, Reason: reason}
	}
	if multicolsPattern.MatchString(maskComments(raw)) {
		return &MalformedSectionError{Reason: "multicols environment is not available in the document class"}
	}
	return nil
}

// IsValid is Validate(raw) == nil.
func IsValid(raw string) bool {
	return Validate(raw) == nil
}

// Repair makes a best-effort fix of raw: multicols wrappers are stripped, stray closing
// braces dropped, stray \end commands dropped, and anything left open is closed at the end.
func Repair(raw string) string {
	text := multicolsPattern.ReplaceAllString(raw, "")
	masked := maskComments(text)

	var out strings.Builder
	var envs []string
	depth := 0
	for i := 0; i < len(text); i++ {
		if masked[i] != text[i] {
			// inside a comment
			out.WriteByte(text[i])
			continue
		}
		c := text[i]
		switch c {
		case '\\':
			if loc := envAtPattern.FindStringSubmatchIndex(text[i:]); loc != nil {
				kind := text[i+loc[2] : i+loc[3]]
				name := strings.TrimSpace(text[i+loc[4] : i+loc[5]])
				token := text[i : i+loc[1]]
				i += loc[1] - 1
				if kind == "begin" {
					envs = append(envs, name)
					out.WriteString(token)
					continue
				}
				at := lastIndex(envs, name)
				if at < 0 {
					continue
				}
				for len(envs)-1 > at {
					out.WriteString(`\end{` + envs[len(envs)-1] + "}\n")
					envs = envs[:len(envs)-1]
				}
				envs = envs[:at]
				out.WriteString(token)
				continue
			}
			out.WriteByte(c)
			if i+1 < len(text) {
				i++
				out.WriteByte(text[i])
			}
		case '{':
			depth++
			out.WriteByte(c)
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			out.WriteByte(c)
		default:
			out.WriteByte(c)
		}
	}

	if depth > 0 {
		out.WriteString(strings.Repeat("}", depth))
	}
	for i := len(envs) - 1; i >= 0; i-- {
		s := out.String()
		if !strings.HasSuffix(s, "\n") {
			out.WriteString("\n")
		}
		out.WriteString(`\end{` + envs[i] + "}")
	}
	return out.String()
}

func lastIndex(stack []string, name string) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == name {
			return i
		}
	}
	return -1
}

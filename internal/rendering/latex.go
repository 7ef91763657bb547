package rendering

import (
	"os"
	"strings"
	"text/template"

	"github.com/jonathan/resume-fitter/internal/sections"
)

// TemplateData represents the data structure passed to the LaTeX template
type TemplateData struct {
	Name     string
	Email    string
	Phone    string
	Sections []SectionData
}

// SectionData is one section as the template sees it. File is the section's file
// name without extension, suitable for \input.
type SectionData struct {
	Kind    string
	File    string
	Content string
}

// DefaultMainTemplate inputs every section in document order. It defines the
// \resume* macros the section files are written with.
const DefaultMainTemplate = `\documentclass[letterpaper,11pt]{article}
\usepackage[margin=0.6in]{geometry}
\raggedright
\pagestyle{empty}
\setlength{\tabcolsep}{0in}

\newcommand{\resumeItem}[1]{\item\small{#1}}
\newcommand{\resumeSubItem}[1]{\resumeItem{#1}}
\newcommand{\resumeSubheading}[4]{
  \item
    \begin{tabular*}{0.97\textwidth}[t]{l@{\extracolsep{\fill}}r}
      \textbf{#1} & #2 \\
      \textit{\small#3} & \textit{\small #4} \\
    \end{tabular*}
}
\newcommand{\resumeProjectHeading}[2]{
  \item
    \begin{tabular*}{0.97\textwidth}{l@{\extracolsep{\fill}}r}
      \small#1 & #2 \\
    \end{tabular*}
}
\newcommand{\resumeSubHeadingListStart}{\begin{itemize}}
\newcommand{\resumeSubHeadingListEnd}{\end{itemize}}
\newcommand{\resumeItemListStart}{\begin{itemize}}
\newcommand{\resumeItemListEnd}{\end{itemize}}

\begin{document}
{{- if .Name}}
\begin{center}
  \textbf{\Huge \scshape {{.Name}}} \\ \vspace{1pt}
  \small {{.Phone}}{{if and .Phone .Email}} $|$ {{end}}{{.Email}}
\end{center}
{{- end}}
{{range .Sections}}
\input{ {{- .File -}} }
{{- end}}

\end{document}
`

// NewTemplateData builds template data for doc. Header fields are escaped.
func NewTemplateData(doc *sections.Document, name, email, phone string) TemplateData {
	data := TemplateData{
		Name:  EscapeLaTeX(name),
		Email: EscapeLaTeX(email),
		Phone: EscapeLaTeX(phone),
	}
	for _, raw := range doc.Raw() {
		data.Sections = append(data.Sections, SectionData{
			Kind:    raw.Name,
			File:    raw.Name,
			Content: raw.Content,
		})
	}
	return data
}

// RenderMain renders the main LaTeX file. An empty templatePath uses DefaultMainTemplate.
func RenderMain(templatePath string, data TemplateData) (string, error) {
	tmpl, err := parseTemplate(templatePath)
	if err != nil {
		return "", err
	}

	var result strings.Builder
	if err := tmpl.Execute(&result, data); err != nil {
		return "", &TemplateError{Path: templatePath, Message: "failed to execute", Cause: err}
	}
	return result.String(), nil
}

// parseTemplate reads and parses a LaTeX template file
func parseTemplate(templatePath string) (*template.Template, error) {
	content := DefaultMainTemplate
	if templatePath != "" {
		raw, err := os.ReadFile(templatePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &TemplateError{Path: templatePath, Message: "file not found", Cause: err}
			}
			return nil, &TemplateError{Path: templatePath, Message: "failed to read", Cause: err}
		}
		content = string(raw)
	}

	tmpl, err := template.New("main").Funcs(template.FuncMap{
		"escape": EscapeLaTeX,
	}).Parse(content)
	if err != nil {
		return nil, &TemplateError{Path: templatePath, Message: "failed to parse", Cause: err}
	}
	return tmpl, nil
}

package rendering

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-fitter/internal/sections"
)

const projectsTex = `\section{Projects}
\begin{itemize}
  \item Built a CLI in Go
  \item Wrote a blog
\end{itemize}`

const skillsTex = `\section{Technical Skills}
\begin{itemize}
  \item Languages: Go, Python
\end{itemize}`

func testDocument(t *testing.T) *sections.Document {
	t.Helper()
	doc, err := sections.ParseDocument([]sections.RawSection{
		{Name: "projects", Content: projectsTex},
		{Name: "technical_skills", Content: skillsTex},
	})
	require.NoError(t, err)
	return doc
}

func TestParseTemplate_ValidTemplate(t *testing.T) {
	tmpDir := t.TempDir()
	templatePath := filepath.Join(tmpDir, "test.tex")
	templateContent := `\documentclass{article}
\begin{document}
Name: {{.Name}}
\end{document}`
	require.NoError(t, os.WriteFile(templatePath, []byte(templateContent), 0644))

	tmpl, err := parseTemplate(templatePath)
	require.NoError(t, err)
	assert.NotNil(t, tmpl)
}

func TestParseTemplate_InvalidPath(t *testing.T) {
	_, err := parseTemplate("/nonexistent/template.tex")
	assert.Error(t, err)
	var templateErr *TemplateError
	require.ErrorAs(t, err, &templateErr)
	assert.Equal(t, "/nonexistent/template.tex", templateErr.Path)
	assert.Contains(t, err.Error(), "template /nonexistent/template.tex: file not found")
}

func TestTemplateError_BuiltIn(t *testing.T) {
	err := &TemplateError{Message: "failed to execute"}
	assert.Equal(t, "built-in template: failed to execute", err.Error())
}

func TestParseTemplate_InvalidTemplate(t *testing.T) {
	tmpDir := t.TempDir()
	templatePath := filepath.Join(tmpDir, "invalid.tex")
	templateContent := `\documentclass{article}
\begin{document}
{{.InvalidSyntax{{}}
\end{document}`
	require.NoError(t, os.WriteFile(templatePath, []byte(templateContent), 0644))

	_, err := parseTemplate(templatePath)
	var templateErr *TemplateError
	assert.ErrorAs(t, err, &templateErr)
}

func TestRenderMain_DefaultTemplate(t *testing.T) {
	data := NewTemplateData(testDocument(t), "Ada Lovelace", "ada@example.com", "")

	out, err := RenderMain("", data)
	require.NoError(t, err)
	assert.Contains(t, out, `\textbf{\Huge \scshape Ada Lovelace}`)
	assert.Contains(t, out, "ada@example.com")
	assert.NotContains(t, out, "$|$")
	assert.Contains(t, out, "\n\\input{projects}\n\\input{technical_skills}\n")
	assert.True(t, sections.IsValid(out), "default template must be balanced")
}

func TestRenderMain_CustomTemplateInlinesContent(t *testing.T) {
	templatePath := filepath.Join(t.TempDir(), "main.tex")
	content := `{{range .Sections}}% {{.Kind}}
{{.Content}}
{{end}}{{escape "R&D"}}`
	require.NoError(t, os.WriteFile(templatePath, []byte(content), 0644))

	out, err := RenderMain(templatePath, NewTemplateData(testDocument(t), "", "", ""))
	require.NoError(t, err)
	assert.Contains(t, out, "% projects\n"+projectsTex)
	assert.Contains(t, out, `R\&D`)
}

func TestNewTemplateData_EscapesHeader(t *testing.T) {
	data := NewTemplateData(testDocument(t), "A_B", "x#y", "50%")
	assert.Equal(t, `A\_B`, data.Name)
	assert.Equal(t, `x\#y`, data.Email)
	assert.Equal(t, `50\%`, data.Phone)
	require.Len(t, data.Sections, 2)
	assert.Equal(t, "projects", data.Sections[0].File)
}

func TestWriteAndLoadDocument(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	doc := testDocument(t)

	require.NoError(t, WriteDocument(dir, doc))

	got, err := os.ReadFile(filepath.Join(dir, "projects.tex"))
	require.NoError(t, err)
	assert.Equal(t, projectsTex, string(got))

	loaded, err := LoadDocument(dir, []sections.Kind{sections.Projects, sections.TechnicalSkills})
	require.NoError(t, err)
	assert.True(t, doc.Equal(loaded))
}

func TestLoadDocument_DiscoversKnownKinds(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "projects.tex"), []byte(projectsTex), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.tex"), []byte("ignored"), 0644))

	doc, err := LoadDocument(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []sections.Kind{sections.Projects}, doc.Kinds())
}

func TestLoadDocument_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadDocument(dir, nil)
	var fileErr *SectionFileError
	assert.ErrorAs(t, err, &fileErr)

	_, err = LoadDocument(dir, []sections.Kind{sections.Education})
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, "read section file", fileErr.Op)
	assert.Equal(t, SectionPath(dir, sections.Education), fileErr.Path)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "projects.tex"), []byte("\\section{Projects\n\\item A"), 0644))
	_, err = LoadDocument(dir, []sections.Kind{sections.Projects})
	var malformed *sections.MalformedSectionError
	assert.ErrorAs(t, err, &malformed)
}

func TestWriteMain(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteMain(dir, "", NewTemplateData(testDocument(t), "", "", ""))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "main.tex"), path)
	assert.FileExists(t, path)
}

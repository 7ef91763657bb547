package rendering

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jonathan/resume-fitter/internal/sections"
)

// SectionFileExt is the extension of section files on disk.
const SectionFileExt = ".tex"

// SectionPath returns the file path of kind inside dir.
func SectionPath(dir string, kind sections.Kind) string {
	return filepath.Join(dir, string(kind)+SectionFileExt)
}

// ReadSections reads <kind>.tex for every kind. With no kinds, every known kind
// present in dir is read and missing files are skipped.
func ReadSections(dir string, kinds []sections.Kind) ([]sections.RawSection, error) {
	optional := len(kinds) == 0
	if optional {
		kinds = sections.AllKinds
	}

	raws := make([]sections.RawSection, 0, len(kinds))
	for _, kind := range kinds {
		path := SectionPath(dir, kind)
		content, err := os.ReadFile(path)
		if err != nil {
			if optional && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, &SectionFileError{Op: "read section file", Path: path, Cause: err}
		}
		raws = append(raws, sections.RawSection{Name: string(kind), Content: string(content)})
	}
	if len(raws) == 0 {
		return nil, &SectionFileError{Op: "no section files in", Path: dir}
	}
	return raws, nil
}

// LoadDocument reads and parses the section files in dir.
func LoadDocument(dir string, kinds []sections.Kind) (*sections.Document, error) {
	raws, err := ReadSections(dir, kinds)
	if err != nil {
		return nil, err
	}
	doc, err := sections.ParseDocument(raws)
	if err != nil {
		return nil, fmt.Errorf("failed to load document from %s: %w", dir, err)
	}
	return doc, nil
}

// WriteDocument writes every section of doc to dir as <kind>.tex.
func WriteDocument(dir string, doc *sections.Document) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &SectionFileError{Op: "create directory", Path: dir, Cause: err}
	}
	for _, raw := range doc.Raw() {
		path := filepath.Join(dir, raw.Name+SectionFileExt)
		if err := os.WriteFile(path, []byte(raw.Content), 0644); err != nil {
			return &SectionFileError{Op: "write section file", Path: path, Cause: err}
		}
	}
	return nil
}

// WriteMain renders the main file into dir/main.tex and returns its path.
func WriteMain(dir, templatePath string, data TemplateData) (string, error) {
	main, err := RenderMain(templatePath, data)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "main.tex")
	if err := os.WriteFile(path, []byte(main), 0644); err != nil {
		return "", &SectionFileError{Op: "write main file", Path: path, Cause: err}
	}
	return path, nil
}

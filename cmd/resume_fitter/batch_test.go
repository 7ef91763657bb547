package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-fitter/internal/config"
	"github.com/jonathan/resume-fitter/internal/sections"
	"github.com/jonathan/resume-fitter/internal/types"
)

const projectsSection = "\\section{Projects}\n\\begin{itemize}\n  \\item Fitter in Go\n  \\item Chess engine\n\\end{itemize}\n"

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "batch.yaml", `
parallelism: 3
jobs:
  - name: acme
    sections: acme/sections
    job: acme/job.txt
    out: out/acme
    pages: 1
  - name: globex
    sections: /abs/sections
    job: globex.json
    mode: expand
`)

	m, err := loadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Parallelism)
	require.Len(t, m.Jobs, 2)
	assert.Equal(t, filepath.Join(dir, "acme", "sections"), m.Jobs[0].Sections)
	assert.Equal(t, filepath.Join(dir, "out", "acme"), m.Jobs[0].Out)
	assert.Equal(t, "/abs/sections", m.Jobs[1].Sections)
	assert.Empty(t, m.Jobs[1].Out)
	assert.True(t, hasExpandJob(m))
}

func TestLoadManifest_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no jobs", "jobs: []\n", "invalid manifest"},
		{"missing job file", "jobs:\n  - name: a\n    sections: s\n", "invalid manifest"},
		{"bad mode", "jobs:\n  - name: a\n    sections: s\n    job: j\n    mode: shrink\n", "invalid manifest"},
		{"duplicate names", "jobs:\n  - name: a\n    sections: s\n    job: j\n  - name: a\n    sections: t\n    job: k\n", "duplicate job name"},
		{"not yaml", "jobs: [", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "batch.yaml", tt.content)
			_, err := loadManifest(path)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestBatchJobs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "acme/projects.tex", projectsSection)
	writeFile(t, dir, "acme/job.txt", "Go developer")

	cfg = &config.Config{TargetPages: 1, MaxCycles: 10}
	t.Cleanup(func() { cfg = nil })

	m := &manifest{Jobs: []manifestJob{{
		Name:     "acme",
		Sections: filepath.Join(dir, "acme"),
		Job:      filepath.Join(dir, "acme", "job.txt"),
		Pages:    2,
	}}}
	jobs, contexts, err := batchJobs(m)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "acme", jobs[0].Name)
	assert.Equal(t, 2, jobs[0].Context.TargetPages)
	assert.Equal(t, types.Mode(""), jobs[0].Mode)
	assert.True(t, jobs[0].Document.Has(sections.Projects))
	assert.Equal(t, "Go developer", contexts[0].Description)
	assert.False(t, hasExpandJob(m))

	m.Jobs[0].Sections = filepath.Join(dir, "missing")
	_, _, err = batchJobs(m)
	assert.ErrorContains(t, err, "job acme")
}

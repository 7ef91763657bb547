package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-fitter/internal/ranking"
	"github.com/jonathan/resume-fitter/internal/schemas"
	"github.com/jonathan/resume-fitter/internal/sections"
	"github.com/jonathan/resume-fitter/internal/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadJob(t *testing.T) {
	dir := t.TempDir()

	t.Run("empty path", func(t *testing.T) {
		job, err := loadJob("")
		require.NoError(t, err)
		assert.Equal(t, types.JobContext{}, job)
	})

	t.Run("plain text", func(t *testing.T) {
		path := writeFile(t, dir, "job.txt", "\n  Backend engineer, Go and Postgres.\n")
		job, err := loadJob(path)
		require.NoError(t, err)
		assert.Equal(t, "Backend engineer, Go and Postgres.", job.Description)
	})

	t.Run("json", func(t *testing.T) {
		path := writeFile(t, dir, "job.json", `{"title": "SRE", "company": "Acme", "keywords": ["Go", "Kubernetes"]}`)
		job, err := loadJob(path)
		require.NoError(t, err)
		assert.Equal(t, "SRE", job.Title)
		assert.Equal(t, "Acme", job.Company)
		assert.Equal(t, []string{"Go", "Kubernetes"}, job.Keywords)
	})

	t.Run("json with unknown field", func(t *testing.T) {
		path := writeFile(t, dir, "bad.json", `{"title": "SRE", "salary": 1}`)
		_, err := loadJob(path)
		var verr *schemas.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadJob(filepath.Join(dir, "nope.json"))
		assert.Error(t, err)
	})
}

func TestNewRanker(t *testing.T) {
	r, err := newRanker(rankerKeyword, nil)
	require.NoError(t, err)
	assert.IsType(t, &ranking.KeywordRanker{}, r)

	_, err = newRanker(rankerLLM, nil)
	assert.Error(t, err)

	_, err = newRanker("random", nil)
	assert.ErrorContains(t, err, "unknown ranker")
}

func TestRuntimeOptions_NeedsClient(t *testing.T) {
	assert.False(t, runtimeOptions{ranker: rankerKeyword}.needsClient())
	assert.True(t, runtimeOptions{ranker: rankerLLM}.needsClient())
	assert.True(t, runtimeOptions{ranker: rankerKeyword, generate: true}.needsClient())
	assert.True(t, runtimeOptions{ranker: rankerKeyword, normalize: true}.needsClient())
}

func TestRunName(t *testing.T) {
	assert.Equal(t, "acme", runName("acme", "/tmp/x"))
	assert.Equal(t, "sections", runName("", "/tmp/resume/sections/"))
}

func TestWriteResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "result.json")
	res := &types.FittingResult{
		RunID:          uuid.New(),
		Mode:           types.ModeReduce,
		Status:         types.StatusConverged,
		TargetPages:    1,
		FinalPageCount: 1,
		History: []types.IterationRecord{
			{Attempt: 1, Section: sections.Projects, Score: 3, PagesBefore: 2, PagesAfter: 1, Outcome: types.OutcomeProgress},
		},
	}

	require.NoError(t, writeResult(path, res))
	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(content, &decoded))
	assert.Equal(t, "converged", decoded["status"])
	assert.Equal(t, res.RunID.String(), decoded["run_id"])

	assert.NoError(t, writeResult("", res))
	assert.NoError(t, writeResult(path, nil))
}

func TestWriteResult_InvalidResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	res := &types.FittingResult{RunID: uuid.New(), Mode: "shrink", Status: types.StatusConverged}

	err := writeResult(path, res)
	assert.ErrorContains(t, err, "does not validate")
	assert.NoFileExists(t, path)
}

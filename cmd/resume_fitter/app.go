package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jonathan/resume-fitter/internal/compiler"
	"github.com/jonathan/resume-fitter/internal/db"
	"github.com/jonathan/resume-fitter/internal/editing"
	"github.com/jonathan/resume-fitter/internal/fitting"
	"github.com/jonathan/resume-fitter/internal/llm"
	"github.com/jonathan/resume-fitter/internal/logger"
	"github.com/jonathan/resume-fitter/internal/profile"
	"github.com/jonathan/resume-fitter/internal/ranking"
	"github.com/jonathan/resume-fitter/internal/rendering"
	"github.com/jonathan/resume-fitter/internal/rewriting"
	"github.com/jonathan/resume-fitter/internal/schemas"
	"github.com/jonathan/resume-fitter/internal/types"
)

const (
	rankerLLM     = "llm"
	rankerKeyword = "keyword"
)

// loadJob reads a job file. JSON input must match the job schema; anything else is
// taken as the plain job description. An empty path yields an empty context.
func loadJob(path string) (types.JobContext, error) {
	var job types.JobContext
	if path == "" {
		return job, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return job, fmt.Errorf("failed to read job file: %w", err)
	}

	trimmed := bytes.TrimSpace(content)
	if !bytes.HasPrefix(trimmed, []byte("{")) {
		job.Description = string(trimmed)
		return job, nil
	}
	if err := schemas.ValidateJSON(schemas.Job, trimmed); err != nil {
		return job, fmt.Errorf("invalid job file %s: %w", path, err)
	}
	if err := json.Unmarshal(trimmed, &job); err != nil {
		return job, fmt.Errorf("failed to unmarshal job JSON: %w", err)
	}
	return job, nil
}

// runtimeOptions selects the collaborators a command needs.
type runtimeOptions struct {
	ranker    string
	profile   string
	template  string
	normalize bool
	generate  bool
}

// needsClient reports whether any collaborator calls a model.
func (o runtimeOptions) needsClient() bool {
	return o.ranker == rankerLLM || o.generate || o.normalize
}

// runtime holds the wired fitting stack of one command.
type runtime struct {
	client     llm.Client
	profile    *profile.Profile
	adapter    *compiler.LaTeXAdapter
	controller *fitting.Controller
}

func (rt *runtime) Close() {
	if rt.client != nil {
		_ = rt.client.Close()
	}
}

// newClient creates the configured LLM client wrapped in the retry layer.
func newClient(ctx context.Context) (llm.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required (set api_key, RESUME_FITTER_API_KEY or the provider's API key variable)")
	}
	llmConfig := cfg.LLMConfig()
	client, err := llm.NewClient(ctx, llmConfig, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	l := logger.WithProvider(log, cfg.Provider, llmConfig.GetModel(llm.TierLite))
	l.Debug("created LLM client")
	return llm.WithRetry(client, cfg.RetryPolicy(), l), nil
}

// newRanker selects the relevance ranker by name.
func newRanker(name string, client llm.Client) (ranking.Ranker, error) {
	switch name {
	case rankerKeyword:
		return ranking.NewKeywordRanker(), nil
	case rankerLLM:
		if client == nil {
			return nil, fmt.Errorf("the llm ranker needs an LLM client")
		}
		return ranking.NewLLMRanker(client), nil
	default:
		return nil, fmt.Errorf("unknown ranker %q (want %s or %s)", name, rankerLLM, rankerKeyword)
	}
}

// buildRuntime wires client, ranker, editor, compiler and controller.
func buildRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	rt := &runtime{}

	if opts.profile != "" {
		p, err := profile.Load(opts.profile)
		if err != nil {
			return nil, err
		}
		rt.profile = p
	}

	if opts.needsClient() {
		client, err := newClient(ctx)
		if err != nil {
			return nil, err
		}
		rt.client = client
	}

	r, err := newRanker(opts.ranker, rt.client)
	if err != nil {
		rt.Close()
		return nil, err
	}

	editorOpts := []editing.Option{
		editing.WithLogger(log),
		editing.WithLengthRange(cfg.ItemMinChars, cfg.ItemMaxChars),
	}
	if rt.client != nil {
		gen := rewriting.NewGenerator(rt.client,
			rewriting.WithProfile(rt.profile.YAML()),
			rewriting.WithForbiddenPhrases(cfg.ForbiddenPhrases),
			rewriting.WithLogger(log),
		)
		editorOpts = append(editorOpts, editing.WithGenerator(gen))
	}

	template := opts.template
	if template == "" {
		template = cfg.Template
	}
	rt.adapter = compiler.NewLaTeXAdapter(
		compiler.WithEngine(cfg.Compiler),
		compiler.WithTimeout(cfg.CompileTimeout),
		compiler.WithTemplate(template),
		compiler.WithTempRoot(cfg.WorkDir),
		compiler.WithHeader(rt.profile.Header()),
		compiler.WithLogger(log),
	)

	ctrlOpts := []fitting.Option{
		fitting.WithLogger(log),
		fitting.WithMaxCycles(cfg.MaxCycles),
	}
	if opts.normalize {
		ctrlOpts = append(ctrlOpts, fitting.WithLengthNormalization(cfg.ItemMinChars, cfg.ItemMaxChars))
	}
	rt.controller = fitting.NewController(r, editing.NewEditor(editorOpts...), rt.adapter, ctrlOpts...)
	return rt, nil
}

// writeOutputs stores the fitted sections and, when LaTeX is available, the PDF in dir.
func writeOutputs(ctx context.Context, rt *runtime, res *types.FittingResult, dir string) (string, error) {
	if res == nil || res.Document == nil || dir == "" {
		return "", nil
	}
	pdf, _, err := rt.adapter.Build(ctx, res.Document, dir)
	if err == nil {
		return pdf, nil
	}
	log.Warn("failed to build PDF, writing sections only", zap.String("dir", dir), zap.Error(err))
	if err := rendering.WriteDocument(dir, res.Document); err != nil {
		return "", fmt.Errorf("failed to write sections: %w", err)
	}
	return "", nil
}

// writeResult writes res as JSON and checks it against the result schema.
func writeResult(path string, res *types.FittingResult) error {
	if path == "" || res == nil {
		return nil
	}
	jsonBytes, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result JSON: %w", err)
	}

	if err := schemas.ValidateResultJSON(jsonBytes); err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			return fmt.Errorf("result JSON does not validate against schema: %w", err)
		}
		// Schema loading issue - log warning and continue
		log.Warn("could not validate result against schema", zap.Error(err))
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, jsonBytes, 0644); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}
	return nil
}

// openStore connects to the run database, or returns nil when none is configured.
func openStore(ctx context.Context) (*db.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}
	store, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// persistRuns stores results when a database is configured. Failures only warn.
func persistRuns(ctx context.Context, runs ...*db.FittingRun) {
	if cfg.DatabaseURL == "" || len(runs) == 0 {
		return
	}
	store, err := openStore(ctx)
	if err != nil {
		log.Warn("failed to open run database", zap.Error(err))
		return
	}
	defer store.Close()

	for _, run := range runs {
		if err := store.SaveFittingRun(ctx, run); err != nil {
			log.Warn("failed to save fitting run", zap.String(logger.FieldRunID, run.ID.String()), zap.Error(err))
			continue
		}
		log.Debug("saved fitting run", zap.String(logger.FieldRunID, run.ID.String()))
	}
}

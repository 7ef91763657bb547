// Package rewriting generates and rewrites section content with a language model.
package rewriting

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/resume-fitter/internal/llm"
	"github.com/jonathan/resume-fitter/internal/prompts"
	"github.com/jonathan/resume-fitter/internal/sections"
	"github.com/jonathan/resume-fitter/internal/types"
)

const promptFile = "fitting.json"

// Generator produces section text, new items and length-constrained rewrites.
type Generator struct {
	client    llm.Client
	profile   string
	forbidden []string
	logger    *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithProfile sets the candidate profile (YAML) that generated content must be drawn from.
func WithProfile(profileYAML string) Option {
	return func(g *Generator) {
		g.profile = profileYAML
	}
}

// WithForbiddenPhrases rejects output containing any of phrases.
func WithForbiddenPhrases(phrases []string) Option {
	return func(g *Generator) {
		g.forbidden = phrases
	}
}

// WithLogger sets the generator's logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGenerator creates a Generator backed by client.
func NewGenerator(client llm.Client, opts ...Option) *Generator {
	g := &Generator{client: client, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateSection writes a whole section following the conventions of template.
// The result is repaired when needed and must parse as a section of kind.
func (g *Generator) GenerateSection(ctx context.Context, kind sections.Kind, job types.JobContext, template string) (string, error) {
	prompt, err := prompts.Render(promptFile, "generate-section", map[string]string{
		"Section":  label(kind),
		"Template": template,
		"Job":      jobText(job),
		"Profile":  g.profileText(),
	})
	if err != nil {
		return "", &GenerationError{Message: "failed to build prompt", Cause: err}
	}

	// Use TierAdvanced for whole sections (requires following the template closely)
	text, err := g.generate(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return "", err
	}

	if !sections.IsValid(text) {
		g.logger.Info("repairing generated section", zap.String("section", string(kind)))
		text = sections.Repair(text)
	}
	if _, err := sections.Parse(kind, text); err != nil {
		return "", &GenerationError{Message: fmt.Sprintf("generated %s section is malformed", kind), Cause: err}
	}
	return text, nil
}

// GenerateItem writes one new item for a section, without its list marker.
func (g *Generator) GenerateItem(ctx context.Context, kind sections.Kind, existing []sections.Item, job types.JobContext, minLen, maxLen int) (string, error) {
	var items strings.Builder
	for _, it := range existing {
		items.WriteString("- ")
		items.WriteString(sections.PlainText(it.Text))
		items.WriteString("\n")
	}
	if items.Len() == 0 {
		items.WriteString("(none)\n")
	}

	prompt, err := prompts.Render(promptFile, "generate-item", map[string]string{
		"Section": label(kind),
		"Min":     strconv.Itoa(minLen),
		"Max":     strconv.Itoa(maxLen),
		"Job":     jobText(job),
		"Profile": g.profileText(),
		"Items":   items.String(),
	})
	if err != nil {
		return "", &GenerationError{Message: "failed to build prompt", Cause: err}
	}
	return g.generate(ctx, prompt, llm.TierStandard)
}

// RewriteItem rewrites item text so its visible length falls in [minLen, maxLen].
// The caller checks the length; this only returns the model's answer.
func (g *Generator) RewriteItem(ctx context.Context, text string, minLen, maxLen int) (string, error) {
	prompt, err := prompts.Render(promptFile, "rewrite-item", map[string]string{
		"Min":  strconv.Itoa(minLen),
		"Max":  strconv.Itoa(maxLen),
		"Text": text,
	})
	if err != nil {
		return "", &GenerationError{Message: "failed to build prompt", Cause: err}
	}
	return g.generate(ctx, prompt, llm.TierStandard)
}

func (g *Generator) generate(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if g.client == nil {
		return "", &GenerationError{Message: "no LLM client configured"}
	}
	resp, err := g.client.GenerateContent(ctx, prompt, tier)
	if err != nil {
		return "", &GenerationError{Message: "LLM generation failed", Cause: err}
	}
	text := parseTextResponse(resp)
	if text == "" {
		return "", &GenerationError{Message: "LLM returned empty text"}
	}
	if found := checkForbiddenPhrasesInText(text, g.forbidden); len(found) > 0 {
		return "", &GenerationError{Message: fmt.Sprintf("output uses forbidden phrases: %s", strings.Join(found, ", "))}
	}
	return text, nil
}

func (g *Generator) profileText() string {
	if strings.TrimSpace(g.profile) == "" {
		return "Not provided\n"
	}
	return g.profile
}

// parseTextResponse extracts plain text from a model answer.
// The model should return just the text, but we handle fences and a JSON wrapper.
func parseTextResponse(responseText string) string {
	text := strings.TrimSpace(responseText)

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) > 0 && strings.HasPrefix(lines[0], "```") {
			lines = lines[1:]
		}
		if len(lines) > 0 && strings.HasPrefix(lines[len(lines)-1], "```") {
			lines = lines[:len(lines)-1]
		}
		text = strings.TrimSpace(strings.Join(lines, "\n"))
	}

	var jsonResp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(text), &jsonResp); err == nil && jsonResp.Text != "" {
		return strings.TrimSpace(jsonResp.Text)
	}
	return text
}

func label(kind sections.Kind) string {
	return strings.ReplaceAll(string(kind), "_", " ")
}

func jobText(job types.JobContext) string {
	if s := job.Summary(); s != "" {
		return s
	}
	return "Not specified\n"
}

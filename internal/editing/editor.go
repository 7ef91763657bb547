// Package editing applies single edits to one section: dropping its least relevant
// unit, appending a generated item, or rewriting items to a target length.
package editing

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/resume-fitter/internal/ranking"
	"github.com/jonathan/resume-fitter/internal/rendering"
	"github.com/jonathan/resume-fitter/internal/sections"
	"github.com/jonathan/resume-fitter/internal/types"
)

// Item length bounds and rewrite attempts for bullet items.
const (
	DefaultMinItemLength   = 75
	DefaultMaxItemLength   = 95
	DefaultRewriteAttempts = 3
)

// Generator synthesizes item text. Implemented by rewriting.Generator.
type Generator interface {
	GenerateItem(ctx context.Context, kind sections.Kind, existing []sections.Item, job types.JobContext, minLen, maxLen int) (string, error)
	RewriteItem(ctx context.Context, text string, minLen, maxLen int) (string, error)
}

// Editor edits sections. The zero value is not usable; call NewEditor.
type Editor struct {
	generator Generator
	logger    *zap.Logger
	minLen    int
	maxLen    int
	attempts  int
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the editor's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithGenerator sets the generator used by Expand and length normalization.
func WithGenerator(g Generator) Option {
	return func(e *Editor) {
		e.generator = g
	}
}

// WithLengthRange sets the rendered length range used for generated items.
func WithLengthRange(minLen, maxLen int) Option {
	return func(e *Editor) {
		if minLen > 0 && maxLen >= minLen {
			e.minLen, e.maxLen = minLen, maxLen
		}
	}
}

// WithRewriteAttempts bounds the rewrite calls per item.
func WithRewriteAttempts(n int) Option {
	return func(e *Editor) {
		if n > 0 {
			e.attempts = n
		}
	}
}

// NewEditor creates an Editor. Without a generator, Expand fails and length
// normalization leaves items unchanged.
func NewEditor(opts ...Option) *Editor {
	e := &Editor{
		logger:   zap.NewNop(),
		minLen:   DefaultMinItemLength,
		maxLen:   DefaultMaxItemLength,
		attempts: DefaultRewriteAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LengthRange returns the configured item length bounds.
func (e *Editor) LengthRange() (int, int) {
	return e.minLen, e.maxLen
}

// Reduce drops the least relevant removable unit of s. order lists item IDs most
// relevant first; anything other than a permutation of the section's items falls
// back to document order. Skill sections lose one token before a whole row, and an
// entry whose last bullet goes is dropped with its heading.
func (e *Editor) Reduce(s sections.Section, order []int) (sections.Section, error) {
	if sections.RemovableUnits(s) == 0 {
		return s, &NothingToReduceError{Section: s.Kind}
	}

	items := s.Items()
	if ranking.ValidatePermutation(items, order) != nil {
		order = ranking.OriginalOrder(items)
	}

	for i := len(order) - 1; i >= 0; i-- {
		pos := s.IndexOf(order[i])
		if s.Behavior.Unit == sections.UnitSkillToken {
			out, err := sections.RemoveToken(s, pos)
			if err == nil {
				e.logger.Debug("dropped skill token", zap.String("section", string(s.Kind)), zap.Int("item", order[i]))
				return out, nil
			}
			if !errors.Is(err, sections.ErrSingleToken) {
				return s, err
			}
		}
		if s.Behavior.ProtectLast && len(items) == 1 {
			continue
		}
		e.logger.Debug("dropped item", zap.String("section", string(s.Kind)), zap.Int("item", order[i]))
		return sections.RemoveItem(s, pos)
	}
	return s, &NothingToReduceError{Section: s.Kind}
}

// Expand appends one generated item to s. The generated text is escaped, repaired when
// needed, and must parse as exactly one item of the section's kind.
func (e *Editor) Expand(ctx context.Context, s sections.Section, job types.JobContext) (sections.Section, error) {
	if e.generator == nil {
		return s, &EditError{Section: s.Kind, Op: "expand", Message: "no generator configured"}
	}

	generated, err := e.generator.GenerateItem(ctx, s.Kind, s.Items(), job, e.minLen, e.maxLen)
	if err != nil {
		return s, &EditError{Section: s.Kind, Op: "expand", Message: "generation failed", Cause: err}
	}

	text, err := prepareItem(s, generated)
	if err != nil {
		return s, &EditError{Section: s.Kind, Op: "expand", Message: "generated item rejected", Cause: err}
	}

	e.logger.Debug("appending generated item",
		zap.String("section", string(s.Kind)),
		zap.Int("length", RenderedLength(text)),
	)
	return sections.AppendItem(s, text), nil
}

// prepareItem turns generated text into an item that matches the section's markup.
func prepareItem(s sections.Section, generated string) (string, error) {
	text := strings.Trim(generated, "\n")
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty item")
	}

	prefix, body, suffix := sections.SplitItem(text)
	if prefix == "" {
		prefix, suffix = itemWrapper(s)
		body = strings.TrimSpace(body)
	} else if strings.TrimLeft(prefix, " \t") == prefix {
		prefix = indentOf(s) + prefix
	}
	text = prefix + rendering.EscapeBare(body) + strings.TrimRight(suffix, " \t\n")

	if !sections.IsValid(text) {
		text = sections.Repair(text)
	}
	parsed, err := sections.Parse(s.Kind, text)
	if err != nil {
		return "", err
	}
	if parsed.ItemCount() != 1 || parsed.Items()[0].Entry {
		return "", errors.New("text is not a single item")
	}
	for _, seg := range parsed.Segments {
		if seg.Kind == sections.SegmentStructural && strings.TrimSpace(strings.Join(seg.Lines, "")) != "" {
			return "", errors.New("text carries structural markup")
		}
	}
	return text, nil
}

// itemWrapper returns the marker prefix and suffix of the section's last item, or a
// default derived from the list commands the section uses.
func itemWrapper(s sections.Section) (string, string) {
	if last, ok := lastBullet(s); ok {
		prefix, _, suffix := sections.SplitItem(last)
		if prefix != "" {
			return prefix, strings.TrimRight(suffix, " \t\n")
		}
	}
	if strings.Contains(s.Raw(), `\resumeItemListStart`) {
		return `    \resumeItem{`, "}"
	}
	return `  \item `, ""
}

func indentOf(s sections.Section) string {
	last, ok := lastBullet(s)
	if !ok {
		return "  "
	}
	return last[:len(last)-len(strings.TrimLeft(last, " \t"))]
}

// lastBullet returns the text of the last item that is not a heading-only entry.
func lastBullet(s sections.Section) (string, bool) {
	items := s.Items()
	for i := len(items) - 1; i >= 0; i-- {
		if !items[i].Entry {
			return items[i].Text, true
		}
	}
	return "", false
}

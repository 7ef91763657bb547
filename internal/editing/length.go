package editing

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/resume-fitter/internal/rendering"
	"github.com/jonathan/resume-fitter/internal/sections"
)

// RenderedLength approximates the printed length of an item: marker, comments and
// LaTeX commands do not count.
func RenderedLength(text string) int {
	return sections.VisibleLength(text)
}

// NormalizeItemLength rewrites item until its rendered length falls in [minLen, maxLen].
// After the configured number of attempts the item is returned unchanged; length is
// cosmetic and never fails a run.
func (e *Editor) NormalizeItemLength(ctx context.Context, item sections.Item, minLen, maxLen int) sections.Item {
	length := RenderedLength(item.Text)
	if length >= minLen && length <= maxLen {
		return item
	}
	if e.generator == nil {
		return item
	}

	prefix, body, suffix := sections.SplitItem(item.Text)
	for attempt := 1; attempt <= e.attempts; attempt++ {
		if ctx.Err() != nil {
			break
		}
		out, err := e.generator.RewriteItem(ctx, body, minLen, maxLen)
		if err != nil {
			e.logger.Warn("item rewrite failed",
				zap.Int("item", item.ID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		// The generator may echo the item marker back.
		_, rewritten, _ := sections.SplitItem(strings.TrimSpace(out))
		candidate := prefix + rendering.EscapeBare(rewritten) + suffix
		if !sections.IsValid(candidate) {
			e.logger.Debug("rewritten item is malformed", zap.Int("item", item.ID), zap.Int("attempt", attempt))
			continue
		}
		n := RenderedLength(candidate)
		if n >= minLen && n <= maxLen {
			e.logger.Debug("item length normalized",
				zap.Int("item", item.ID),
				zap.Int("from", length),
				zap.Int("to", n),
				zap.Int("attempt", attempt),
			)
			return sections.Item{ID: item.ID, Text: candidate}
		}
		e.logger.Debug("rewritten item still out of range", zap.Int("item", item.ID), zap.Int("length", n))
	}

	e.logger.Info("keeping item with out-of-range length",
		zap.Int("item", item.ID),
		zap.Int("length", length),
		zap.Int("min", minLen),
		zap.Int("max", maxLen),
	)
	return item
}

// NormalizeSection applies NormalizeItemLength to every bullet item of s using the
// editor's length range. It returns the number of items changed.
func (e *Editor) NormalizeSection(ctx context.Context, s sections.Section) (sections.Section, int) {
	return e.NormalizeSectionRange(ctx, s, e.minLen, e.maxLen)
}

// NormalizeSectionRange is NormalizeSection with an explicit range. Skill rows are left alone.
func (e *Editor) NormalizeSectionRange(ctx context.Context, s sections.Section, minLen, maxLen int) (sections.Section, int) {
	if s.Behavior.Unit != sections.UnitItem {
		return s, 0
	}
	changed := 0
	for pos, item := range s.Items() {
		if item.Entry {
			continue
		}
		out := e.NormalizeItemLength(ctx, item, minLen, maxLen)
		if out.Text == item.Text {
			continue
		}
		next, err := sections.ReplaceItem(s, pos, out.Text)
		if err != nil {
			continue
		}
		s = next
		changed++
	}
	return s, changed
}

// NormalizeDocument runs NormalizeSectionRange over every section of doc in place and
// returns the number of items changed.
func (e *Editor) NormalizeDocument(ctx context.Context, doc *sections.Document, minLen, maxLen int) int {
	total := 0
	for _, kind := range doc.Kinds() {
		s, _ := doc.Section(kind)
		out, n := e.NormalizeSectionRange(ctx, s, minLen, maxLen)
		if n == 0 {
			continue
		}
		if err := doc.Set(out); err != nil {
			continue
		}
		total += n
	}
	return total
}

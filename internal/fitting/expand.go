package fitting

import (
	"context"

	"go.uber.org/zap"

	"github.com/jonathan/resume-fitter/internal/sections"
	"github.com/jonathan/resume-fitter/internal/types"
)

// ExpandToBudget grows an under-length document one generated item at a time until it
// fills exactly fc.TargetPages. An item that pushes the document past the budget is
// reverted and its section is exhausted. A document already over the budget ends
// exhausted without edits.
func (c *Controller) ExpandToBudget(ctx context.Context, doc *sections.Document, fc types.FittingContext) (*types.FittingResult, error) {
	r := c.newRun(types.ModeExpand, doc)
	if err := c.initialize(r, doc, fc, true); err != nil {
		return c.fail(r, StateInit, err), err
	}
	r.logger.Info("expansion started",
		zap.Int("target_pages", r.fc.TargetPages),
		zap.Int("max_attempts", r.monitor.MaxAttempts()),
	)
	c.normalizeLengths(ctx, r)

	var target sections.Kind
	var targetScore int
	state := StateMeasuring
	for {
		r.logger.Debug("state", zap.Stringer("state", state))

		switch state {
		case StateMeasuring:
			if err := c.measure(ctx, r); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					c.revertPending(r)
					return c.cancel(r, ctxErr), ctxErr
				}
				return c.fail(r, StateMeasuring, err), err
			}
			if p := r.pending; p != nil {
				switch {
				case r.current > r.fc.TargetPages:
					c.record(r, p, r.current, types.OutcomeOvershoot)
					c.revertPending(r)
					r.monitor.Exhaust(p.section)
					r.current = p.pagesBefore
					r.result.FinalPageCount = p.pagesBefore
				case r.current > p.pagesBefore:
					c.record(r, p, r.current, types.OutcomeProgress)
				default:
					c.record(r, p, r.current, types.OutcomeStagnant)
					r.monitor.Exhaust(p.section)
				}
				r.pending = nil
			}
			if err := ctx.Err(); err != nil {
				return c.cancel(r, err), err
			}
			switch {
			case r.current == r.fc.TargetPages:
				state = StateDone
			case r.current > r.fc.TargetPages:
				r.logger.Info("document already exceeds the budget", zap.Int("pages", r.current))
				state = StateExhausted
			default:
				state = StateSelectTarget
			}

		case StateSelectTarget:
			if r.monitor.CapReached() {
				r.logger.Info("edit attempt cap reached", zap.Int("attempts", r.monitor.Attempts()))
				state = StateExhausted
				continue
			}
			kind, score, ok := r.monitor.Select(r.fc.ExpandableSections, c.scorer(ctx, r), true)
			if !ok {
				state = StateExhausted
				continue
			}
			target, targetScore = kind, score
			state = StateEditing

		case StateEditing:
			r.monitor.Attempt()
			section, _ := r.doc.Section(target)
			units := sections.Units(section)
			edited, err := c.editor.Expand(ctx, section, r.fc.Job)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return c.cancel(r, ctxErr), ctxErr
				}
				r.logger.Warn("item generation failed", zap.String("section", string(target)), zap.Error(err))
				c.record(r, &pendingEdit{section: target, score: targetScore, unitsBefore: units, unitsAfter: units, pagesBefore: r.current},
					r.current, types.OutcomeGenerationFailed)
				r.monitor.Exhaust(target)
				state = StateSelectTarget
				continue
			}
			if err := r.doc.Set(edited); err != nil {
				return c.fail(r, StateEditing, err), err
			}
			delete(r.scores, target)
			r.result.IterationsUsed++
			r.pending = &pendingEdit{
				section:     target,
				score:       targetScore,
				unitsBefore: units,
				unitsAfter:  sections.Units(edited),
				pagesBefore: r.current,
				previous:    section,
			}
			state = StateRecompiling

		case StateRecompiling:
			state = StateMeasuring

		case StateDone:
			return c.finish(r, types.StatusConverged), nil

		case StateExhausted:
			return c.finish(r, types.StatusExhausted), nil

		default:
			err := &Error{State: state, Message: "unexpected state"}
			return c.fail(r, state, err), err
		}
	}
}

package fitting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resume-fitter/internal/compiler"
	"github.com/jonathan/resume-fitter/internal/editing"
	"github.com/jonathan/resume-fitter/internal/ranking"
	"github.com/jonathan/resume-fitter/internal/sections"
	"github.com/jonathan/resume-fitter/internal/types"
)

// Controller drives fitting runs. It holds no per-run state, so one Controller may
// serve concurrent runs over different documents.
type Controller struct {
	ranker    *ranking.SafeRanker
	editor    *editing.Editor
	compiler  compiler.Adapter
	logger    *zap.Logger
	maxCycles int
	normalize bool
	minLen    int
	maxLen    int
	now       func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxCycles sets the per-section cycle bound used when the context leaves it zero.
func WithMaxCycles(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxCycles = n
		}
	}
}

// WithLengthNormalization rewrites bullet items into [minLen, maxLen] rendered
// characters before the first measurement. The pass runs even when the document already
// fits, so a run with it enabled only makes zero edits once every bullet is in range.
func WithLengthNormalization(minLen, maxLen int) Option {
	return func(c *Controller) {
		if minLen > 0 && maxLen >= minLen {
			c.normalize, c.minLen, c.maxLen = true, minLen, maxLen
		}
	}
}

// NewController wires a controller. The ranker is wrapped in a SafeRanker, so ranking
// failures never abort a run.
func NewController(r ranking.Ranker, editor *editing.Editor, c compiler.Adapter, opts ...Option) *Controller {
	ctrl := &Controller{
		editor:    editor,
		compiler:  c,
		logger:    zap.NewNop(),
		maxCycles: types.DefaultMaxCycles,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(ctrl)
	}
	if ctrl.editor == nil {
		ctrl.editor = editing.NewEditor(editing.WithLogger(ctrl.logger))
	}
	ctrl.ranker = ranking.NewSafeRanker(r, ranking.WithLogger(ctrl.logger))
	return ctrl
}

// pendingEdit is an applied edit waiting for its measurement.
type pendingEdit struct {
	section     sections.Kind
	score       int
	unitsBefore int
	unitsAfter  int
	pagesBefore int
	previous    sections.Section
}

// run is the mutable state of one fitting run.
type run struct {
	doc     *sections.Document
	fc      types.FittingContext
	monitor *Monitor
	result  *types.FittingResult
	logger  *zap.Logger
	current int
	pending *pendingEdit
	scores  map[sections.Kind]int
}

func (c *Controller) newRun(mode types.Mode, doc *sections.Document) *run {
	id := uuid.New()
	r := &run{
		scores: make(map[sections.Kind]int),
		logger: c.logger.With(zap.String("run_id", id.String()), zap.String("mode", string(mode))),
		result: &types.FittingResult{
			RunID:     id,
			Mode:      mode,
			StartedAt: c.now(),
		},
	}
	if doc != nil {
		r.doc = doc.Clone()
		r.result.Document = r.doc
	}
	return r
}

// initialize validates fc against the document. Only the section list the mode edits
// is checked: explicit kinds must exist, defaulted kinds are filtered to the document.
func (c *Controller) initialize(r *run, doc *sections.Document, fc types.FittingContext, expand bool) error {
	if doc == nil {
		return &ContextError{Message: "document is nil"}
	}
	reducibleDefaulted := fc.ReducibleSections == nil
	expandableDefaulted := fc.ExpandableSections == nil
	if fc.MaxCycles == 0 {
		fc.MaxCycles = c.maxCycles
	}
	fc = fc.WithDefaults()
	if err := fc.Validate(); err != nil {
		return &ContextError{Message: "validation failed", Cause: err}
	}

	var err error
	candidates := fc.ReducibleSections
	if expand {
		if candidates, err = presentSections(doc, fc.ExpandableSections, expandableDefaulted); err != nil {
			return err
		}
		fc.ExpandableSections = candidates
	} else {
		if candidates, err = presentSections(doc, fc.ReducibleSections, reducibleDefaulted); err != nil {
			return err
		}
		fc.ReducibleSections = candidates
	}
	r.fc = fc
	r.monitor = NewMonitor(len(candidates), fc.MaxCycles)
	r.result.TargetPages = fc.TargetPages
	return nil
}

// presentSections keeps defaulted kinds the document has and rejects explicit kinds it lacks.
func presentSections(doc *sections.Document, kinds []sections.Kind, defaulted bool) ([]sections.Kind, error) {
	out := make([]sections.Kind, 0, len(kinds))
	for _, k := range kinds {
		if doc.Has(k) {
			out = append(out, k)
			continue
		}
		if !defaulted {
			return nil, &ContextError{Message: fmt.Sprintf("document has no section %q", k)}
		}
	}
	return out, nil
}

// FitToBudget removes the least relevant content until the compiled document fits
// fc.TargetPages or no reducible section can make progress. Exhausted is a normal
// result; the returned error is non-nil only for failed or cancelled runs, and the
// partial result is returned with it.
func (c *Controller) FitToBudget(ctx context.Context, doc *sections.Document, fc types.FittingContext) (*types.FittingResult, error) {
	r := c.newRun(types.ModeReduce, doc)
	if err := c.initialize(r, doc, fc, false); err != nil {
		return c.fail(r, StateInit, err), err
	}
	r.logger.Info("fitting started",
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
				if r.current < p.pagesBefore {
					c.record(r, p, r.current, types.OutcomeProgress)
				} else {
					c.record(r, p, r.current, types.OutcomeStagnant)
					r.monitor.Exhaust(p.section)
				}
				r.pending = nil
			}
			if err := ctx.Err(); err != nil {
				return c.cancel(r, err), err
			}
			if r.current <= r.fc.TargetPages {
				state = StateDone
			} else {
				state = StateSelectTarget
			}

		case StateSelectTarget:
			if r.monitor.CapReached() {
				r.logger.Info("edit attempt cap reached", zap.Int("attempts", r.monitor.Attempts()))
				state = StateExhausted
				continue
			}
			kind, score, ok := r.monitor.Select(r.fc.ReducibleSections, c.scorer(ctx, r), false)
			if !ok {
				state = StateExhausted
				continue
			}
			target, targetScore = kind, score
			state = StateEditing

		case StateEditing:
			r.monitor.Attempt()
			section, _ := r.doc.Section(target)
			order := c.ranker.Rank(ctx, target, section.Items(), r.fc.Job)
			edited, err := c.editor.Reduce(section, order)
			if err != nil {
				var nothing *editing.NothingToReduceError
				if !errors.As(err, &nothing) {
					return c.fail(r, StateEditing, err), err
				}
				units := sections.Units(section)
				c.record(r, &pendingEdit{section: target, score: targetScore, unitsBefore: units, unitsAfter: units, pagesBefore: r.current},
					r.current, types.OutcomeNothingToReduce)
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
				unitsBefore: sections.Units(section),
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

// revertPending drops an edit that was never measured, so a cancelled run returns the
// document as of its last measurement.
func (c *Controller) revertPending(r *run) {
	p := r.pending
	if p == nil {
		return
	}
	if err := r.doc.Set(p.previous); err == nil {
		r.result.IterationsUsed--
	}
	r.pending = nil
}

// normalizeLengths runs the optional length pass over the whole document.
func (c *Controller) normalizeLengths(ctx context.Context, r *run) {
	if !c.normalize {
		return
	}
	n := c.editor.NormalizeDocument(ctx, r.doc, c.minLen, c.maxLen)
	r.logger.Info("normalized item lengths", zap.Int("changed", n), zap.Int("min", c.minLen), zap.Int("max", c.maxLen))
}

// measure compiles the current document and records the page count.
func (c *Controller) measure(ctx context.Context, r *run) error {
	pages, err := c.compiler.Compile(ctx, r.doc)
	if err != nil {
		return &Error{State: StateMeasuring, Message: "compilation failed", Cause: err}
	}
	if len(r.monitor.Pages()) == 0 {
		r.result.InitialPageCount = pages
		r.result.BestPageCount = pages
	}
	r.monitor.Observe(pages)
	r.current = pages
	r.result.FinalPageCount = pages
	r.logger.Debug("measured", zap.Int("pages", pages))
	return nil
}

// scorer returns a score function that caches per section until the section is edited.
func (c *Controller) scorer(ctx context.Context, r *run) func(sections.Kind) int {
	return func(kind sections.Kind) int {
		if s, ok := r.scores[kind]; ok {
			return s
		}
		section, _ := r.doc.Section(kind)
		s := c.ranker.Score(ctx, kind, section.Raw(), r.fc.Job)
		r.scores[kind] = s
		return s
	}
}

func (c *Controller) record(r *run, p *pendingEdit, pagesAfter int, outcome types.Outcome) {
	rec := types.IterationRecord{
		Attempt:     r.monitor.Attempts(),
		Section:     p.section,
		Score:       p.score,
		UnitsBefore: p.unitsBefore,
		UnitsAfter:  p.unitsAfter,
		PagesBefore: p.pagesBefore,
		PagesAfter:  pagesAfter,
		Outcome:     outcome,
	}
	r.result.History = append(r.result.History, rec)

	fields := []zap.Field{
		zap.Int("attempt", rec.Attempt),
		zap.String("section", string(rec.Section)),
		zap.Int("score", rec.Score),
		zap.Int("units_before", rec.UnitsBefore),
		zap.Int("units_after", rec.UnitsAfter),
		zap.Int("pages_before", rec.PagesBefore),
		zap.Int("pages_after", rec.PagesAfter),
		zap.String("outcome", string(outcome)),
	}
	if outcome == types.OutcomeGenerationFailed {
		r.logger.Warn("edit attempt", fields...)
		return
	}
	r.logger.Info("edit attempt", fields...)
}

func (c *Controller) finish(r *run, status types.Status) *types.FittingResult {
	res := r.result
	res.Status = status
	res.EditAttempts = r.monitor.Attempts()
	res.ExhaustedSections = r.monitor.Exhausted()
	res.BestPageCount = bestPages(r.monitor.Pages(), res.Mode, res.TargetPages)
	res.CompletedAt = c.now()
	r.logger.Info("fitting finished",
		zap.String("status", string(status)),
		zap.Int("initial_pages", res.InitialPageCount),
		zap.Int("final_pages", res.FinalPageCount),
		zap.Int("iterations", res.IterationsUsed),
		zap.Int("attempts", res.EditAttempts),
	)
	return res
}

func (c *Controller) fail(r *run, state State, err error) *types.FittingResult {
	fields := []zap.Field{zap.Stringer("state", state), zap.Error(err)}
	var compileErr *compiler.CompilationError
	if errors.As(err, &compileErr) && compileErr.LogOutput != "" {
		fields = append(fields, zap.String("compiler_log", compileErr.LogOutput))
	}
	r.logger.Error("fitting failed", fields...)
	if r.monitor == nil {
		r.monitor = NewMonitor(0, 0)
	}
	return c.finish(r, types.StatusFailed)
}

func (c *Controller) cancel(r *run, err error) *types.FittingResult {
	r.logger.Warn("fitting cancelled", zap.Error(err))
	return c.finish(r, types.StatusCancelled)
}

// bestPages is the smallest count for reduce runs, and the largest count within the
// target for expand runs.
func bestPages(pages []int, mode types.Mode, target int) int {
	if len(pages) == 0 {
		return 0
	}
	best := pages[0]
	for _, p := range pages[1:] {
		switch mode {
		case types.ModeExpand:
			if p <= target && (p > best || best > target) {
				best = p
			}
		default:
			if p < best {
				best = p
			}
		}
	}
	return best
}

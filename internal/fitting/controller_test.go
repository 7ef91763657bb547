package fitting

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonathan/resume-fitter/internal/compiler"
	"github.com/jonathan/resume-fitter/internal/ranking"
	"github.com/jonathan/resume-fitter/internal/sections"
	"github.com/jonathan/resume-fitter/internal/types"
)

var reduceScores = map[sections.Kind]int{
	sections.TechnicalSkills: 2,
	sections.Projects:        5,
	sections.WorkExperience:  8,
}

func TestFitToBudget_AlreadyFits(t *testing.T) {
	doc := testDocument(t)
	comp := &fakeCompiler{}
	c := newTestController(newFakeRanker(nil), comp, nil)

	res, err := c.FitToBudget(context.Background(), doc, types.FittingContext{TargetPages: 20})
	require.NoError(t, err)

	assert.Equal(t, types.StatusConverged, res.Status)
	assert.Equal(t, 0, res.IterationsUsed)
	assert.Equal(t, 14, res.InitialPageCount)
	assert.Equal(t, 14, res.FinalPageCount)
	assert.Equal(t, 1, comp.Calls())
	assert.True(t, res.Document.Equal(doc))
	assert.NotEmpty(t, res.RunID.String())
}

func TestFitToBudget_ConvergesOnLowestScore(t *testing.T) {
	doc := testDocument(t)
	ranker := newFakeRanker(reduceScores)
	comp := &fakeCompiler{}
	c := newTestController(ranker, comp, nil)

	res, err := c.FitToBudget(context.Background(), doc, types.FittingContext{TargetPages: 11})
	require.NoError(t, err)

	assert.Equal(t, types.StatusConverged, res.Status)
	assert.Equal(t, 3, res.IterationsUsed)
	assert.Equal(t, 3, res.EditAttempts)
	assert.Equal(t, 14, res.InitialPageCount)
	assert.Equal(t, 11, res.FinalPageCount)
	assert.Equal(t, 11, res.BestPageCount)
	assert.Equal(t, []sections.Kind{sections.TechnicalSkills, sections.TechnicalSkills, sections.TechnicalSkills}, historySections(res))
	assert.Equal(t, []types.Outcome{types.OutcomeProgress, types.OutcomeProgress, types.OutcomeProgress}, outcomes(res))
	assert.Equal(t, 3, unitsOf(res.Document, sections.TechnicalSkills))
	assert.Equal(t, 4, comp.Calls())

	// Scores are cached until the section is edited.
	assert.Equal(t, 3, ranker.ScoreCalls(sections.TechnicalSkills))
	assert.Equal(t, 1, ranker.ScoreCalls(sections.Projects))
	assert.Equal(t, 1, ranker.ScoreCalls(sections.WorkExperience))
	assert.Equal(t, 0, ranker.ScoreCalls(sections.Education))

	// The caller's document is never modified.
	assert.Equal(t, 14, totalUnits(doc))
}

func TestFitToBudget_TiesGoToEarlierSection(t *testing.T) {
	c := newTestController(newFakeRanker(nil), &fakeCompiler{}, nil)

	res, err := c.FitToBudget(context.Background(), testDocument(t), types.FittingContext{
		TargetPages:       13,
		ReducibleSections: []sections.Kind{sections.Projects, sections.WorkExperience},
	})
	require.NoError(t, err)

	require.Len(t, res.History, 1)
	assert.Equal(t, sections.Projects, res.History[0].Section)
	assert.Equal(t, 3, res.History[0].UnitsBefore)
	assert.Equal(t, 2, res.History[0].UnitsAfter)
}

func TestFitToBudget_ReducesUntilExhausted(t *testing.T) {
	doc := testDocument(t)
	comp := &fakeCompiler{}
	c := newTestController(newFakeRanker(reduceScores), comp, nil)

	res, err := c.FitToBudget(context.Background(), doc, types.FittingContext{TargetPages: 1})
	require.NoError(t, err)

	assert.Equal(t, types.StatusExhausted, res.Status)
	assert.Equal(t, 10, res.IterationsUsed)
	assert.Equal(t, 13, res.EditAttempts)
	assert.Equal(t, 4, res.FinalPageCount)
	assert.Equal(t, []sections.Kind{sections.TechnicalSkills, sections.Projects, sections.WorkExperience}, res.ExhaustedSections)
	assert.Equal(t, 11, comp.Calls())

	// Every reducible section keeps its last unit and education is untouched.
	for _, k := range []sections.Kind{sections.TechnicalSkills, sections.Projects, sections.WorkExperience, sections.Education} {
		assert.Equal(t, 1, unitsOf(res.Document, k), k)
	}
	edu, _ := res.Document.Section(sections.Education)
	orig, _ := doc.Section(sections.Education)
	assert.Equal(t, orig.Raw(), edu.Raw())

	nothing := 0
	for _, h := range res.History {
		switch h.Outcome {
		case types.OutcomeProgress:
			assert.Less(t, h.PagesAfter, h.PagesBefore)
			assert.Equal(t, h.UnitsBefore-1, h.UnitsAfter)
		case types.OutcomeNothingToReduce:
			nothing++
			assert.Equal(t, h.UnitsBefore, h.UnitsAfter)
			assert.Equal(t, h.PagesBefore, h.PagesAfter)
		default:
			t.Errorf("unexpected outcome %s", h.Outcome)
		}
	}
	assert.Equal(t, 3, nothing)
}

func TestFitToBudget_StagnationExhaustsSections(t *testing.T) {
	comp := &fakeCompiler{pagesFunc: constantPages(3)}
	c := newTestController(newFakeRanker(nil), comp, nil)

	res, err := c.FitToBudget(context.Background(), testDocument(t), types.FittingContext{TargetPages: 2})
	require.NoError(t, err)

	assert.Equal(t, types.StatusExhausted, res.Status)
	assert.Equal(t, []types.Outcome{types.OutcomeStagnant, types.OutcomeStagnant, types.OutcomeStagnant}, outcomes(res))
	assert.Equal(t, []sections.Kind{sections.TechnicalSkills, sections.Projects, sections.WorkExperience}, res.ExhaustedSections)
	assert.Equal(t, 3, res.IterationsUsed)
	assert.Equal(t, 4, comp.Calls())
	// Stagnant edits are kept.
	assert.Equal(t, 11, totalUnits(res.Document))
}

func TestFitToBudget_AttemptCap(t *testing.T) {
	c := newTestController(newFakeRanker(reduceScores), &fakeCompiler{}, nil)

	res, err := c.FitToBudget(context.Background(), testDocument(t), types.FittingContext{TargetPages: 1, MaxCycles: 1})
	require.NoError(t, err)

	assert.Equal(t, types.StatusExhausted, res.Status)
	assert.Equal(t, 3, res.EditAttempts)
	assert.Equal(t, 11, res.FinalPageCount)
	assert.Empty(t, res.ExhaustedSections)
}

func TestFitToBudget_ControllerMaxCycles(t *testing.T) {
	c := newTestController(newFakeRanker(reduceScores), &fakeCompiler{}, nil, WithMaxCycles(2))

	res, err := c.FitToBudget(context.Background(), testDocument(t), types.FittingContext{TargetPages: 1})
	require.NoError(t, err)
	assert.Equal(t, 6, res.EditAttempts)
}

func TestFitToBudget_NothingToReduceSkipsCompile(t *testing.T) {
	doc := singleSectionDocument(t, sections.Projects, `\section{Projects}
\begin{itemize}
  \item Only project
\end{itemize}`)
	comp := &fakeCompiler{pagesFunc: constantPages(2)}
	c := newTestController(newFakeRanker(nil), comp, nil)

	res, err := c.FitToBudget(context.Background(), doc, types.FittingContext{TargetPages: 1})
	require.NoError(t, err)

	assert.Equal(t, types.StatusExhausted, res.Status)
	assert.Equal(t, []types.Outcome{types.OutcomeNothingToReduce}, outcomes(res))
	assert.Equal(t, 0, res.IterationsUsed)
	assert.Equal(t, 1, res.EditAttempts)
	assert.Equal(t, 1, comp.Calls())
	assert.True(t, res.Document.Equal(doc))
}

func TestFitToBudget_DefaultSectionsFilteredToDocument(t *testing.T) {
	doc := singleSectionDocument(t, sections.Projects, projectsTex)
	c := newTestController(newFakeRanker(nil), &fakeCompiler{}, nil)

	res, err := c.FitToBudget(context.Background(), doc, types.FittingContext{TargetPages: 1})
	require.NoError(t, err)

	// One page per unit: 3 -> 2 -> 1 meets the target.
	assert.Equal(t, types.StatusConverged, res.Status)
	assert.Equal(t, 2, res.IterationsUsed)
	assert.Equal(t, 1, res.FinalPageCount)
	assert.Equal(t, []sections.Kind{sections.Projects, sections.Projects}, historySections(res))
	assert.Empty(t, res.ExhaustedSections)
}

func TestFitToBudget_InvalidContext(t *testing.T) {
	projectsOnly := singleSectionDocument(t, sections.Projects, projectsTex)

	tests := []struct {
		name string
		doc  *sections.Document
		fc   types.FittingContext
	}{
		{"zero target", projectsOnly, types.FittingContext{}},
		{"negative cycles", projectsOnly, types.FittingContext{TargetPages: 1, MaxCycles: -1}},
		{"missing section", projectsOnly, types.FittingContext{TargetPages: 1, ReducibleSections: []sections.Kind{sections.WorkExperience}}},
		{"duplicate section", projectsOnly, types.FittingContext{TargetPages: 1, ReducibleSections: []sections.Kind{sections.Projects, sections.Projects}}},
		{"nil document", nil, types.FittingContext{TargetPages: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := &fakeCompiler{}
			c := newTestController(newFakeRanker(nil), comp, nil)

			res, err := c.FitToBudget(context.Background(), tt.doc, tt.fc)
			var ctxErr *ContextError
			require.ErrorAs(t, err, &ctxErr)
			require.NotNil(t, res)
			assert.Equal(t, types.StatusFailed, res.Status)
			assert.Equal(t, 0, comp.Calls())
		})
	}
}

func TestFitToBudget_CompileFailure(t *testing.T) {
	boom := errors.New("pdflatex exploded")
	comp := &fakeCompiler{pagesFunc: func(_ context.Context, call int, doc *sections.Document) (int, error) {
		if call == 2 {
			return 0, boom
		}
		return totalUnits(doc), nil
	}}
	c := newTestController(newFakeRanker(reduceScores), comp, nil)

	res, err := c.FitToBudget(context.Background(), testDocument(t), types.FittingContext{TargetPages: 1})

	var fitErr *Error
	require.ErrorAs(t, err, &fitErr)
	assert.Equal(t, StateMeasuring, fitErr.State)
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, res)
	assert.Equal(t, types.StatusFailed, res.Status)
	assert.Equal(t, 14, res.FinalPageCount)
}

func TestFitToBudget_Cancellation(t *testing.T) {
	t.Run("after first measurement", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		doc := testDocument(t)
		comp := &fakeCompiler{pagesFunc: func(_ context.Context, _ int, d *sections.Document) (int, error) {
			cancel()
			return totalUnits(d), nil
		}}
		c := newTestController(newFakeRanker(nil), comp, nil)

		res, err := c.FitToBudget(ctx, doc, types.FittingContext{TargetPages: 1})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, types.StatusCancelled, res.Status)
		assert.Equal(t, 0, res.IterationsUsed)
		assert.True(t, res.Document.Equal(doc))
	})

	t.Run("during compilation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		doc := testDocument(t)
		comp := &fakeCompiler{pagesFunc: func(ctx context.Context, call int, d *sections.Document) (int, error) {
			if call == 2 {
				cancel()
				return 0, ctx.Err()
			}
			return totalUnits(d), nil
		}}
		c := newTestController(newFakeRanker(nil), comp, nil)

		res, err := c.FitToBudget(ctx, doc, types.FittingContext{TargetPages: 1})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, types.StatusCancelled, res.Status)
		assert.Equal(t, 0, res.IterationsUsed)
		assert.Empty(t, res.History)
		assert.True(t, res.Document.Equal(doc), "unmeasured edit must be reverted")
	})

	t.Run("after an edit is measured", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		comp := &fakeCompiler{pagesFunc: func(_ context.Context, call int, d *sections.Document) (int, error) {
			if call == 2 {
				cancel()
			}
			return totalUnits(d), nil
		}}
		c := newTestController(newFakeRanker(nil), comp, nil)

		res, err := c.FitToBudget(ctx, testDocument(t), types.FittingContext{TargetPages: 1})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, types.StatusCancelled, res.Status)
		assert.Equal(t, 1, res.IterationsUsed)
		assert.Equal(t, 13, res.FinalPageCount)
		assert.Equal(t, []types.Outcome{types.OutcomeProgress}, outcomes(res))
	})
}

func TestFitToBudget_Idempotent(t *testing.T) {
	c := newTestController(newFakeRanker(reduceScores), &fakeCompiler{}, nil)
	fc := types.FittingContext{TargetPages: 12}

	first, err := c.FitToBudget(context.Background(), testDocument(t), fc)
	require.NoError(t, err)
	require.Equal(t, types.StatusConverged, first.Status)

	second, err := c.FitToBudget(context.Background(), first.Document, fc)
	require.NoError(t, err)
	assert.Equal(t, types.StatusConverged, second.Status)
	assert.Equal(t, 0, second.IterationsUsed)
	assert.True(t, second.Document.Equal(first.Document))
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestFitToBudget_RankingFailureFallsBack(t *testing.T) {
	ranker := newFakeRanker(reduceScores)
	ranker.rankErr = errors.New("model unavailable")
	c := newTestController(ranker, &fakeCompiler{}, nil)

	res, err := c.FitToBudget(context.Background(), testDocument(t), types.FittingContext{TargetPages: 12})
	require.NoError(t, err)
	assert.Equal(t, types.StatusConverged, res.Status)
	assert.Equal(t, 2, res.IterationsUsed)
}

func TestFitToBudget_OnePagePerThreeRemovals(t *testing.T) {
	doc := fiveByThreeDocument(t)
	comp := &fakeCompiler{pagesFunc: pagesPerRemoved(2, 15, 3)}
	c := newTestController(newFakeRanker(nil), comp, nil)

	res, err := c.FitToBudget(context.Background(), doc, types.FittingContext{TargetPages: 1})
	require.NoError(t, err)

	assert.Equal(t, types.StatusConverged, res.Status)
	assert.Equal(t, 2, res.InitialPageCount)
	assert.Equal(t, 1, res.FinalPageCount)
	assert.LessOrEqual(t, res.EditAttempts, 9)
	assert.Equal(t, 3, res.IterationsUsed)
	assert.Equal(t, 12, totalUnits(res.Document))
}

func TestFitToBudget_RankerAlwaysFails(t *testing.T) {
	ranker := newFakeRanker(map[sections.Kind]int{sections.WorkExperience: 1})
	ranker.rankErr = errors.New("model unavailable")
	ranker.scoreErr = errors.New("model unavailable")
	comp := &fakeCompiler{pagesFunc: pagesPerRemoved(2, 15, 3)}
	c := newTestController(ranker, comp, nil)

	res, err := c.FitToBudget(context.Background(), fiveByThreeDocument(t), types.FittingContext{TargetPages: 1})
	require.NoError(t, err)

	// Sections are taken in priority order, items are dropped from the end.
	assert.Equal(t, types.StatusConverged, res.Status)
	assert.Equal(t, []sections.Kind{sections.TechnicalSkills, sections.Projects, sections.WorkExperience}, historySections(res))
	assert.Equal(t, []types.Outcome{types.OutcomeStagnant, types.OutcomeStagnant, types.OutcomeProgress}, outcomes(res))
	for _, h := range res.History {
		assert.Equal(t, ranking.NeutralScore, h.Score, h.Section)
	}

	skills, _ := res.Document.Section(sections.TechnicalSkills)
	assert.NotContains(t, skills.Raw(), "Terraform")
	assert.Contains(t, skills.Raw(), "PostgreSQL")
	projects, _ := res.Document.Section(sections.Projects)
	assert.NotContains(t, projects.Raw(), "Tiny key-value store")
	work, _ := res.Document.Section(sections.WorkExperience)
	assert.NotContains(t, work.Raw(), "Migrated CI")

	again, err := c.FitToBudget(context.Background(), fiveByThreeDocument(t), types.FittingContext{TargetPages: 1})
	require.NoError(t, err)
	assert.True(t, again.Document.Equal(res.Document))
	assert.Equal(t, outcomes(res), outcomes(again))
}

func TestFitToBudget_CompileFailureLogsCompilerOutput(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	compileErr := &compiler.CompilationError{
		Message:   "pdflatex exited with status 1",
		LogOutput: "! Undefined control sequence.\nl.12 \\resumeItm",
	}
	comp := &fakeCompiler{pagesFunc: func(context.Context, int, *sections.Document) (int, error) {
		return 0, compileErr
	}}
	c := newTestController(newFakeRanker(nil), comp, nil, WithLogger(zap.New(core)))

	res, err := c.FitToBudget(context.Background(), testDocument(t), types.FittingContext{TargetPages: 1})
	assert.ErrorIs(t, err, compileErr)
	assert.Equal(t, types.StatusFailed, res.Status)

	failed := observed.FilterMessage("fitting failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, compileErr.LogOutput, failed[0].ContextMap()["compiler_log"])
}

func TestFitToBudget_NormalizedDocumentIsStable(t *testing.T) {
	gen := &fakeGenerator{RewriteItemFunc: func(context.Context, string) (string, error) {
		return "Rewrote the item to fit the target length", nil
	}}
	c := newTestController(newFakeRanker(nil), &fakeCompiler{}, gen, WithLengthNormalization(40, 60))
	fc := types.FittingContext{TargetPages: 20}

	first, err := c.FitToBudget(context.Background(), testDocument(t), fc)
	require.NoError(t, err)
	assert.False(t, first.Document.Equal(testDocument(t)), "already fitting documents are still normalized")

	second, err := c.FitToBudget(context.Background(), first.Document, fc)
	require.NoError(t, err)
	assert.Equal(t, types.StatusConverged, second.Status)
	assert.Equal(t, 0, second.IterationsUsed)
	assert.True(t, second.Document.Equal(first.Document))
}

func TestFitToBudget_LengthNormalization(t *testing.T) {
	const rewritten = "Rewrote the item to fit the target length"
	gen := &fakeGenerator{RewriteItemFunc: func(context.Context, string) (string, error) {
		return rewritten, nil
	}}
	doc := testDocument(t)
	c := newTestController(newFakeRanker(nil), &fakeCompiler{}, gen, WithLengthNormalization(40, 60))

	res, err := c.FitToBudget(context.Background(), doc, types.FittingContext{TargetPages: 20})
	require.NoError(t, err)

	for _, k := range []sections.Kind{sections.Education, sections.WorkExperience, sections.Projects} {
		s, _ := res.Document.Section(k)
		for _, it := range s.Items() {
			assert.Equal(t, rewritten, sections.PlainText(it.Text), k)
		}
	}
	skills, _ := res.Document.Section(sections.TechnicalSkills)
	orig, _ := doc.Section(sections.TechnicalSkills)
	assert.Equal(t, orig.Raw(), skills.Raw())
}

func TestBestPages(t *testing.T) {
	assert.Equal(t, 0, bestPages(nil, types.ModeReduce, 1))
	assert.Equal(t, 2, bestPages([]int{4, 3, 2, 2}, types.ModeReduce, 1))
	assert.Equal(t, 2, bestPages([]int{1, 2, 3}, types.ModeExpand, 2))
	assert.Equal(t, 1, bestPages([]int{3, 1}, types.ModeExpand, 2))
}

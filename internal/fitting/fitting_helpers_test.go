package fitting

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-fitter/internal/editing"
	"github.com/jonathan/resume-fitter/internal/ranking"
	"github.com/jonathan/resume-fitter/internal/sections"
	"github.com/jonathan/resume-fitter/internal/types"
)

const educationTex = `\section{Education}
\begin{itemize}
  \item B.S. Computer Science, State University
\end{itemize}`

const workTex = `\section{Work Experience}
\subsection{Acme Corp}
\begin{itemize}
  \item Built the ingestion service in Go
  \item Led migration to Postgres
\end{itemize}
\subsection{Globex}
\begin{itemize}
  \item Wrote internal tooling
  \item Organized the office book club
\end{itemize}`

const projectsTex = `\section{Projects}
\begin{itemize}
  \item Page budget fitter for LaTeX documents
  \item Static site generator
  \item Chess engine in Rust
\end{itemize}`

const skillsTex = `\section{Technical Skills}
\begin{itemize}
  \item \textbf{Languages}{: Go, Python, C++, Rust}
  \item \textbf{Tools}{: Docker, Kubernetes}
\end{itemize}`

// testDocument holds 14 units: 1 education, 4 work, 3 projects and 6 skill tokens.
func testDocument(t *testing.T) *sections.Document {
	t.Helper()
	doc, err := sections.ParseDocument([]sections.RawSection{
		{Name: string(sections.Education), Content: educationTex},
		{Name: string(sections.WorkExperience), Content: workTex},
		{Name: string(sections.Projects), Content: projectsTex},
		{Name: string(sections.TechnicalSkills), Content: skillsTex},
	})
	require.NoError(t, err)
	return doc
}

// listSection builds a flat itemize section with one item per entry.
func listSection(title string, entries ...string) string {
	var b strings.Builder
	b.WriteString(`\section{` + title + "}\n\\begin{itemize}\n")
	for _, e := range entries {
		b.WriteString("  \\item " + e + "\n")
	}
	b.WriteString(`\end{itemize}`)
	return b.String()
}

// fiveByThreeDocument holds three reducible sections of five units each.
func fiveByThreeDocument(t *testing.T) *sections.Document {
	t.Helper()
	doc, err := sections.ParseDocument([]sections.RawSection{
		{Name: string(sections.WorkExperience), Content: listSection("Work Experience",
			"Ran the payments platform", "Cut p99 latency by half", "Mentored four engineers",
			"Owned the on-call rotation", "Migrated CI to GitHub Actions")},
		{Name: string(sections.Projects), Content: listSection("Projects",
			"Page budget fitter", "Static site generator", "Chess engine", "Markdown linter", "Tiny key-value store")},
		{Name: string(sections.TechnicalSkills), Content: listSection("Technical Skills",
			"Go", "Python", "Kubernetes", "PostgreSQL", "Terraform")},
	})
	require.NoError(t, err)
	return doc
}

// pagesPerRemoved starts at initial pages and drops one page per `per` units removed.
func pagesPerRemoved(initialPages, initialUnits, per int) func(context.Context, int, *sections.Document) (int, error) {
	return func(_ context.Context, _ int, doc *sections.Document) (int, error) {
		return initialPages - (initialUnits-totalUnits(doc))/per, nil
	}
}

func singleSectionDocument(t *testing.T, kind sections.Kind, raw string) *sections.Document {
	t.Helper()
	doc, err := sections.ParseDocument([]sections.RawSection{{Name: string(kind), Content: raw}})
	require.NoError(t, err)
	return doc
}

func totalUnits(doc *sections.Document) int {
	n := 0
	for _, k := range doc.Kinds() {
		s, _ := doc.Section(k)
		n += sections.Units(s)
	}
	return n
}

func unitsOf(doc *sections.Document, kind sections.Kind) int {
	s, _ := doc.Section(kind)
	return sections.Units(s)
}

// fakeCompiler measures one page per unit unless pagesFunc says otherwise.
type fakeCompiler struct {
	mu        sync.Mutex
	calls     int
	pagesFunc func(ctx context.Context, call int, doc *sections.Document) (int, error)
}

func (f *fakeCompiler) Compile(ctx context.Context, doc *sections.Document) (int, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	if f.pagesFunc != nil {
		return f.pagesFunc(ctx, call, doc)
	}
	return totalUnits(doc), nil
}

func (f *fakeCompiler) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func constantPages(n int) func(context.Context, int, *sections.Document) (int, error) {
	return func(context.Context, int, *sections.Document) (int, error) { return n, nil }
}

// fakeRanker keeps document order and returns fixed section scores.
type fakeRanker struct {
	mu         sync.Mutex
	scores     map[sections.Kind]int
	scoreCalls map[sections.Kind]int
	rankErr    error
	scoreErr   error
}

func newFakeRanker(scores map[sections.Kind]int) *fakeRanker {
	return &fakeRanker{scores: scores, scoreCalls: make(map[sections.Kind]int)}
}

func (f *fakeRanker) Rank(_ context.Context, _ sections.Kind, items []sections.Item, _ types.JobContext) ([]int, error) {
	if f.rankErr != nil {
		return nil, f.rankErr
	}
	return ranking.OriginalOrder(items), nil
}

func (f *fakeRanker) Score(_ context.Context, kind sections.Kind, _ string, _ types.JobContext) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scoreCalls[kind]++
	if f.scoreErr != nil {
		return 0, f.scoreErr
	}
	if s, ok := f.scores[kind]; ok {
		return s, nil
	}
	return ranking.NeutralScore, nil
}

func (f *fakeRanker) ScoreCalls(kind sections.Kind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scoreCalls[kind]
}

// fakeGenerator implements editing.Generator.
type fakeGenerator struct {
	GenerateItemFunc func(ctx context.Context, kind sections.Kind) (string, error)
	RewriteItemFunc  func(ctx context.Context, text string) (string, error)
}

func (f *fakeGenerator) GenerateItem(ctx context.Context, kind sections.Kind, _ []sections.Item, _ types.JobContext, _, _ int) (string, error) {
	if f.GenerateItemFunc != nil {
		return f.GenerateItemFunc(ctx, kind)
	}
	return "Generated item for the role", nil
}

func (f *fakeGenerator) RewriteItem(ctx context.Context, text string, _, _ int) (string, error) {
	if f.RewriteItemFunc != nil {
		return f.RewriteItemFunc(ctx, text)
	}
	return text, nil
}

func newTestController(r ranking.Ranker, c *fakeCompiler, g editing.Generator, opts ...Option) *Controller {
	var editorOpts []editing.Option
	if g != nil {
		editorOpts = append(editorOpts, editing.WithGenerator(g))
	}
	return NewController(r, editing.NewEditor(editorOpts...), c, opts...)
}

func outcomes(res *types.FittingResult) []types.Outcome {
	out := make([]types.Outcome, len(res.History))
	for i, h := range res.History {
		out[i] = h.Outcome
	}
	return out
}

func historySections(res *types.FittingResult) []sections.Kind {
	out := make([]sections.Kind, len(res.History))
	for i, h := range res.History {
		out[i] = h.Section
	}
	return out
}

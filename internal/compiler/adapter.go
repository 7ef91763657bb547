package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/resume-fitter/internal/rendering"
	"github.com/jonathan/resume-fitter/internal/sections"
)

// Adapter compiles a document and reports its page count.
type Adapter interface {
	Compile(ctx context.Context, doc *sections.Document) (int, error)
}

// Header is the contact block printed above the sections.
type Header struct {
	Name  string
	Email string
	Phone string
}

// LaTeXAdapter renders a document into a main file plus one file per section and
// compiles it with a LaTeX engine.
type LaTeXAdapter struct {
	engine       string
	timeout      time.Duration
	templatePath string
	header       Header
	tempRoot     string
	logger       *zap.Logger
}

// Option configures a LaTeXAdapter.
type Option func(*LaTeXAdapter)

// WithEngine sets the LaTeX engine binary.
func WithEngine(engine string) Option {
	return func(a *LaTeXAdapter) {
		if engine != "" {
			a.engine = engine
		}
	}
}

// WithTimeout bounds a single compilation.
func WithTimeout(d time.Duration) Option {
	return func(a *LaTeXAdapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithTemplate sets the main template file. Empty uses rendering.DefaultMainTemplate.
func WithTemplate(path string) Option {
	return func(a *LaTeXAdapter) {
		a.templatePath = path
	}
}

// WithHeader sets the contact block.
func WithHeader(h Header) Option {
	return func(a *LaTeXAdapter) {
		a.header = h
	}
}

// WithTempRoot sets the parent of the per-call build directories. Empty means os.TempDir.
func WithTempRoot(dir string) Option {
	return func(a *LaTeXAdapter) {
		a.tempRoot = dir
	}
}

// WithLogger sets the adapter's logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *LaTeXAdapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewLaTeXAdapter creates a LaTeXAdapter.
func NewLaTeXAdapter(opts ...Option) *LaTeXAdapter {
	a := &LaTeXAdapter{
		engine:  DefaultEngine,
		timeout: CompilationTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Compile builds doc in a fresh temporary directory, so concurrent calls never share
// files, and returns the page count.
func (a *LaTeXAdapter) Compile(ctx context.Context, doc *sections.Document) (int, error) {
	dir, err := os.MkdirTemp(a.tempRoot, "latex-compile-*")
	if err != nil {
		return 0, &CompilationError{Message: "failed to create temporary working directory", Cause: err}
	}
	defer func() { _ = os.RemoveAll(dir) }()

	_, pages, err := a.Build(ctx, doc, dir)
	return pages, err
}

// Build writes doc and its main file into dir, compiles it and returns the PDF path
// and page count. The directory is left in place.
func (a *LaTeXAdapter) Build(ctx context.Context, doc *sections.Document, dir string) (string, int, error) {
	if err := rendering.WriteDocument(dir, doc); err != nil {
		return "", 0, &CompilationError{Message: "failed to write section files", Cause: err}
	}
	data := rendering.NewTemplateData(doc, a.header.Name, a.header.Email, a.header.Phone)
	mainPath, err := rendering.WriteMain(dir, a.templatePath, data)
	if err != nil {
		return "", 0, &CompilationError{Message: "failed to render main file", Cause: err}
	}

	start := time.Now()
	pdfPath, _, err := CompileLaTeX(ctx, a.engine, mainPath, dir, a.timeout)
	if err != nil {
		var compileErr *CompilationError
		if pdfPath == "" || !errors.As(err, &compileErr) {
			return "", 0, err
		}
		a.logger.Warn("LaTeX reported errors but produced a PDF",
			zap.String("pdf", pdfPath),
			zap.String("log_tail", compileErr.LogTail(10)),
		)
	}

	pages, err := CountPDFPages(pdfPath)
	if err != nil {
		return pdfPath, 0, err
	}
	a.logger.Debug("compiled document",
		zap.String("engine", a.engine),
		zap.Int("pages", pages),
		zap.Duration("took", time.Since(start)),
	)
	return pdfPath, pages, nil
}

// String describes the adapter for logs.
func (a *LaTeXAdapter) String() string {
	return fmt.Sprintf("%s (timeout %s)", a.engine, a.timeout)
}

// Package compiler compiles documents with a LaTeX engine and measures the result.
package compiler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultEngine is the LaTeX engine used when none is configured.
	DefaultEngine = "pdflatex"
	// CompilationTimeout is the maximum time to wait for LaTeX compilation
	CompilationTimeout = 30 * time.Second
)

// CompileLaTeX compiles texPath with engine inside workDir.
// When the engine exits with an error but still writes a PDF, the PDF path is returned
// together with a *CompilationError so the caller can decide whether to use it.
func CompileLaTeX(ctx context.Context, engine, texPath, workDir string, timeout time.Duration) (pdfPath string, logOutput string, err error) {
	if engine == "" {
		engine = DefaultEngine
	}
	if timeout <= 0 {
		timeout = CompilationTimeout
	}

	if _, err := exec.LookPath(engine); err != nil {
		return "", "", &CompilationError{
			Message: fmt.Sprintf("%s not found in PATH. Please install a LaTeX distribution (e.g., TeX Live, MiKTeX)", engine),
			Cause:   err,
		}
	}

	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", "", &CompilationError{
			Message: fmt.Sprintf("failed to create working directory: %s", workDir),
			Cause:   err,
		}
	}

	texBaseName := filepath.Base(texPath)
	workTexPath := filepath.Join(workDir, texBaseName)
	if texPath != workTexPath {
		texContent, err := os.ReadFile(texPath)
		if err != nil {
			return "", "", &CompilationError{
				Message: fmt.Sprintf("failed to read LaTeX file: %s", texPath),
				Cause:   err,
			}
		}
		if err := os.WriteFile(workTexPath, texContent, 0644); err != nil {
			return "", "", &CompilationError{
				Message: fmt.Sprintf("failed to write LaTeX file to working directory: %s", workDir),
				Cause:   err,
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// -interaction=nonstopmode prevents interactive prompts on errors
	cmd := exec.CommandContext(ctx, engine, "-interaction=nonstopmode", "-output-directory", workDir, texBaseName)
	cmd.Dir = workDir

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	logOutput = stdout.String() + stderr.String()
	if ctxErr := ctx.Err(); ctxErr != nil {
		message := "LaTeX compilation interrupted"
		if ctxErr == context.DeadlineExceeded {
			message = fmt.Sprintf("LaTeX compilation timed out after %s", timeout)
		}
		return "", logOutput, &CompilationError{
			Message:   message,
			LogOutput: logOutput,
			Cause:     ctxErr,
		}
	}

	pdfPath = filepath.Join(workDir, strings.TrimSuffix(texBaseName, ".tex")+".pdf")
	if _, err := os.Stat(pdfPath); os.IsNotExist(err) {
		return "", logOutput, &CompilationError{
			Message:   "LaTeX compilation failed: PDF was not generated",
			LogOutput: logOutput,
			Cause:     runErr,
		}
	}

	// LaTeX can produce PDFs with errors
	if runErr != nil {
		return pdfPath, logOutput, &CompilationError{
			Message:   "LaTeX compilation completed with errors (PDF may be incomplete)",
			LogOutput: logOutput,
			Cause:     runErr,
		}
	}

	return pdfPath, logOutput, nil
}

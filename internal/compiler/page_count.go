package compiler

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// CountPDFPages counts the number of pages in a PDF file.
// The file is read directly first; pdfinfo and ghostscript are fallbacks for
// files the reader cannot parse.
func CountPDFPages(pdfPath string) (int, error) {
	count, readErr := countPagesWithReader(pdfPath)
	if readErr == nil {
		return count, nil
	}

	if count, err := countPagesWithPdfinfo(pdfPath); err == nil {
		return count, nil
	}

	if count, err := countPagesWithGhostscript(pdfPath); err == nil {
		return count, nil
	}

	return 0, &PageCountError{
		Message: fmt.Sprintf("failed to count pages of %s (pdfinfo and ghostscript fallbacks failed too)", pdfPath),
		Cause:   readErr,
	}
}

// countPagesWithReader parses the PDF page tree.
func countPagesWithReader(pdfPath string) (count int, err error) {
	// the reader panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			count, err = 0, fmt.Errorf("pdf reader: %v", r)
		}
	}()

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	n := r.NumPage()
	if n <= 0 {
		return 0, fmt.Errorf("pdf reports %d pages", n)
	}
	return n, nil
}

// countPagesWithPdfinfo uses pdfinfo to count PDF pages
func countPagesWithPdfinfo(pdfPath string) (int, error) {
	cmd := exec.Command("pdfinfo", pdfPath)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("pdfinfo command failed: %w", err)
	}

	for _, line := range strings.Split(string(output), "\n") {
		if strings.HasPrefix(line, "Pages:") {
			parts := strings.Fields(line)
			if len(parts) >= 2 {
				if count, err := strconv.Atoi(parts[1]); err == nil {
					return count, nil
				}
			}
		}
	}
	return 0, fmt.Errorf("could not parse page count from pdfinfo output")
}

// countPagesWithGhostscript uses ghostscript to count PDF pages
func countPagesWithGhostscript(pdfPath string) (int, error) {
	script := fmt.Sprintf("(%s) (r) file runpdfbegin pdfpagecount = quit", pdfPath)
	cmd := exec.Command("gs", "-q", "-dNODISPLAY", "-dNOSAFER", "-c", script)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ghostscript command failed: %w", err)
	}

	outputStr := strings.TrimSpace(string(output))
	count, err := strconv.Atoi(outputStr)
	if err != nil {
		return 0, fmt.Errorf("could not parse page count from ghostscript output: %s", outputStr)
	}
	return count, nil
}

package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/quietwire/linkcheck/internal/model"
)

// TextWriter writes one line per finding followed by a summary line:
//
//	[ERROR] docs/a.md:12 -> https://example.com/x http=404 - http_404
//
//	Summary: ok=10 warnings=1 errors=1 skipped=0
type TextWriter struct {
	baseWriter

	// problemsOnly hides ok and skip findings.
	problemsOnly bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithProblemsOnly omits ok and skipped findings from the listing.
// The summary still counts them.
func WithProblemsOnly(v bool) TextWriterOption {
	return func(w *TextWriter) {
		w.problemsOnly = v
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the result in text form.
func (w *TextWriter) Write(result *model.Result) (int, error) {
	var sb strings.Builder
	for _, f := range sortedFindings(result) {
		if w.problemsOnly && (f.Status == model.StatusOK || f.Status == model.StatusSkip) {
			continue
		}
		sb.WriteString(FormatFinding(f))
		sb.WriteByte('\n')
	}

	s := result.Summary
	fmt.Fprintf(&sb, "\nSummary: ok=%d warnings=%d errors=%d skipped=%d\n",
		s.OK, s.Warnings, s.Errors, s.Skipped)

	return io.WriteString(w.output, sb.String())
}

// FormatFinding renders a single finding as one text report line.
func FormatFinding(f model.Finding) string {
	parts := []string{
		"[" + f.Status.Tag() + "]",
		f.Path + ":" + strconv.Itoa(f.Line),
		"->",
		f.URL,
	}
	if f.HTTPCode != 0 {
		parts = append(parts, "http="+strconv.Itoa(f.HTTPCode))
	}
	if f.Reason != "" {
		parts = append(parts, "- "+f.Reason)
	}
	return strings.Join(parts, " ")
}

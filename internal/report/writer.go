package report

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/quietwire/linkcheck/internal/model"
)

// Output formats accepted by New.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ErrUnknownFormat is returned by New for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown report format")

// Writer renders a run result.
type Writer interface {
	// Write outputs the result and returns the number of bytes written.
	Write(result *model.Result) (int, error)
}

// New returns the writer for format ("text", "json" or "markdown").
// textOpts only apply to the text format.
func New(format string, output io.Writer, textOpts ...TextWriterOption) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewTextWriter(output, textOpts...), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q (expected text, json or markdown)", ErrUnknownFormat, format)
	}
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the result to every writer and stops at the first error.
func (m *MultiWriter) Write(result *model.Result) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// sortedFindings returns a sorted copy; the result is left untouched.
func sortedFindings(result *model.Result) []model.Finding {
	findings := slices.Clone(result.Findings)
	model.SortFindings(findings)
	return findings
}

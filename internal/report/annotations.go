package report

import (
	"io"
	"strconv"

	"github.com/quietwire/linkcheck/internal/model"
	"github.com/sethvargo/go-githubactions"
)

// AnnotationWriter emits GitHub Actions workflow commands so that errors
// and warnings show up inline on the changed files:
//
//	::error file=docs/a.md,line=12::https://example.com/x (http_404)
type AnnotationWriter struct {
	baseWriter
}

// NewAnnotationWriter creates an AnnotationWriter.
func NewAnnotationWriter(output io.Writer) *AnnotationWriter {
	return &AnnotationWriter{baseWriter: newBaseWriter(output)}
}

// Write emits one command per error or warning finding.
func (w *AnnotationWriter) Write(result *model.Result) (int, error) {
	out := &countingWriter{w: w.output}
	action := githubactions.New(githubactions.WithWriter(out))

	for _, f := range sortedFindings(result) {
		a := action.WithFieldsMap(map[string]string{
			"file": f.Path,
			"line": strconv.Itoa(f.Line),
		})
		switch f.Status {
		case model.StatusError:
			a.Errorf("%s (%s)", f.URL, f.Reason)
		case model.StatusWarning:
			a.Warningf("%s (%s)", f.URL, f.Reason)
		}
		if out.err != nil {
			break
		}
	}
	return out.n, out.err
}

// countingWriter keeps the byte count and first error, which the action
// does not report back.
type countingWriter struct {
	w   io.Writer
	n   int
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += n
	c.err = err
	return n, err
}

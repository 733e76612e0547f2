package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/quietwire/linkcheck/internal/model"
)

// MarkdownWriter outputs a Markdown summary suitable for a pull request
// comment or a job summary page.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the result in Markdown format.
func (w *MarkdownWriter) Write(result *model.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeSummary(md, result)
	w.writeFindings(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.Result) {
	md.H1("Link Check Report")
	md.PlainText("")

	root := result.Root
	if root == "" {
		root = "."
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Root", "`" + root + "`"},
			{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", result.Duration.Round(time.Millisecond).String()},
			{"Documents", strconv.Itoa(result.Summary.Documents)},
			{"Links", strconv.Itoa(result.Summary.Total())},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, result *model.Result) {
	s := result.Summary

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows: [][]string{
			{"✅ OK", strconv.Itoa(s.OK)},
			{"⚠️ Warning", strconv.Itoa(s.Warnings)},
			{"❌ Error", strconv.Itoa(s.Errors)},
			{"⏭️ Skipped", strconv.Itoa(s.Skipped)},
			{"**Total**", "**" + strconv.Itoa(s.Total()) + "**"},
		},
	})
	md.PlainText("")

	if s.Total() > 0 {
		w.writePieChart(md, s)
	}

	switch {
	case s.Errors > 0:
		md.Cautionf("%d broken link(s) found.", s.Errors)
	case s.Warnings > 0:
		md.Warningf("No broken links, but %d warning(s) need a look.", s.Warnings)
	default:
		md.Tip("All links are valid.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Link Status"),
		piechart.WithShowData(true),
	)
	for _, part := range []struct {
		label string
		n     int
	}{
		{"OK", s.OK},
		{"Warning", s.Warnings},
		{"Error", s.Errors},
		{"Skipped", s.Skipped},
	} {
		if part.n > 0 {
			chart.LabelAndIntValue(part.label, uint64(part.n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, result *model.Result) {
	sorted := &model.Result{Findings: sortedFindings(result)}

	sections := []struct {
		status model.Status
		title  string
	}{
		{model.StatusError, "Broken Links"},
		{model.StatusWarning, "Warnings"},
	}
	for _, sec := range sections {
		var rows [][]string
		for _, f := range sorted.ByStatus(sec.status) {
			rows = append(rows, findingRow(f))
		}
		if len(rows) == 0 {
			continue
		}

		md.H2(sec.title)
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Location", "URL", "HTTP", "Reason"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

func findingRow(f model.Finding) []string {
	code := "-"
	if f.HTTPCode != 0 {
		code = strconv.Itoa(f.HTTPCode)
	}
	return []string{
		"`" + f.Path + ":" + strconv.Itoa(f.Line) + "`",
		truncateString(f.URL, 80),
		code,
		f.Reason,
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [linkcheck](https://github.com/quietwire/linkcheck)*")
}

// truncateString truncates a string to maxLen bytes with an ellipsis,
// never splitting a UTF-8 sequence.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	cut := maxLen - 3
	for cut > 0 && !utf8RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

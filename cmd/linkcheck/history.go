package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/quietwire/linkcheck/internal/config"
	"github.com/quietwire/linkcheck/internal/database"
	"github.com/quietwire/linkcheck/internal/model"
	"github.com/quietwire/linkcheck/internal/report"
)

const timeLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
// This command lists recorded runs and compares them.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and compare recorded check runs",
		Long: `History shows the runs recorded by 'linkcheck check' for a corpus root.

Without flags the most recent runs are listed. With --compare the newest run
is compared against the previous one (or against --with-run-id) and the
differences are shown:
- Newly broken links that fail now but did not before
- Fixed links that failed before and no longer do
- Links that are still broken
- Documents whose content changed

Examples:
  # List the last runs of the current directory
  linkcheck history

  # Compare the latest two runs
  linkcheck history --compare

  # Compare the latest run with run 12, as JSON
  linkcheck history --compare --with-run-id 12 --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("root", config.DefaultRoot, "Corpus root whose runs are shown")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs listed (0 = all)")
	cmd.Flags().String("history-dir", config.XDGDataDir(), "History database directory")

	cmd.Flags().Bool("compare", false, "Compare the latest run with a previous one")
	cmd.Flags().Int64P("with-run-id", "i", 0, "Compare the latest run with this run ID")
	cmd.Flags().Bool("strict", false, "Count warnings as failures when comparing")

	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output in Markdown format")

	return cmd
}

// historyOptions holds the parsed history flags.
type historyOptions struct {
	root      string
	dbDir     string
	limit     int
	compare   bool
	withRunID int64
	strict    bool
	json      bool
	markdown  bool
}

func parseHistoryFlags(cmd *cobra.Command) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	flags := cmd.Flags()

	if opts.root, err = flags.GetString("root"); err != nil {
		return opts, err
	}
	if opts.dbDir, err = flags.GetString("history-dir"); err != nil {
		return opts, err
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.compare, err = flags.GetBool("compare"); err != nil {
		return opts, err
	}
	if opts.withRunID, err = flags.GetInt64("with-run-id"); err != nil {
		return opts, err
	}
	if opts.strict, err = flags.GetBool("strict"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}

	if opts.json && opts.markdown {
		return opts, errors.New("--json and --markdown are mutually exclusive")
	}
	if opts.limit < 0 {
		return opts, errors.New("--limit must not be negative")
	}
	if opts.withRunID != 0 {
		opts.compare = true
	}

	// Runs are recorded under the absolute root.
	if opts.root, err = filepath.Abs(opts.root); err != nil {
		return opts, fmt.Errorf("failed to resolve root: %w", err)
	}
	return opts, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	opts, err := parseHistoryFlags(cmd)
	if err != nil {
		return err
	}

	// Listing never creates an empty database.
	dbOpts := database.DefaultOptions()
	dbOpts.CreateIfNotExists = false
	db, err := database.Open(opts.dbDir, dbOpts)
	if err != nil {
		return fmt.Errorf("failed to open history database in %s: %w", opts.dbDir, err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if !opts.compare {
		return listRuns(ctx, out, db, opts)
	}

	cmp, err := compareRuns(ctx, db, opts)
	if err != nil {
		return err
	}
	switch {
	case opts.json:
		return outputComparisonJSON(out, cmp)
	case opts.markdown:
		return outputComparisonMarkdown(out, cmp)
	default:
		return outputComparisonText(out, cmp)
	}
}

// listRuns lists the recorded runs of a root, newest first.
func listRuns(ctx context.Context, out io.Writer, db *database.HistoryDB, opts historyOptions) error {
	runs, err := db.ListRuns(ctx, opts.root, opts.limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if opts.json {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if runs == nil {
			runs = []database.Run{}
		}
		return encoder.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No recorded runs for %s\n", opts.root)
		fmt.Fprintln(out, "\nUse 'linkcheck check' to record one.")
		return nil
	}

	if opts.markdown {
		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			rows = append(rows, []string{
				strconv.FormatInt(r.ID, 10),
				r.StartedAt.Local().Format(timeLayout),
				strconv.Itoa(r.Summary.Documents),
				formatSummary(r.Summary),
			})
		}
		md := markdown.NewMarkdown(out)
		md.H1("Run History").PlainText("")
		md.PlainText("Root: `" + opts.root + "`").PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"ID", "Started", "Documents", "Summary"},
			Rows:   rows,
		})
		return md.Build()
	}

	fmt.Fprintf(out, "Run history for %s (%d runs):\n\n", opts.root, len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-9s  %s\n", "ID", "Started", "Documents", "Summary")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 60))
	for _, r := range runs {
		fmt.Fprintf(out, "  %-6d  %-20s  %-9d  %s\n",
			r.ID,
			r.StartedAt.Local().Format(timeLayout),
			r.Summary.Documents,
			formatSummary(r.Summary),
		)
	}

	fmt.Fprintln(out, "\nUse 'linkcheck history --compare' to compare the latest two runs.")
	fmt.Fprintln(out, "Use 'linkcheck history --with-run-id <id>' to compare with a specific run.")
	return nil
}

// compareRuns compares the latest run of the root with the previous run or
// with the run given by --with-run-id.
func compareRuns(ctx context.Context, db *database.HistoryDB, opts historyOptions) (*database.Comparison, error) {
	if opts.withRunID == 0 {
		cmp, err := db.CompareLatest(ctx, opts.root, opts.strict)
		if err != nil {
			return nil, fmt.Errorf("failed to compare runs: %w", err)
		}
		return cmp, nil
	}

	latest, err := db.ListRuns(ctx, opts.root, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	if len(latest) == 0 {
		return nil, fmt.Errorf("%w: no runs recorded for %s", database.ErrRunNotFound, opts.root)
	}

	base, err := db.GetRun(ctx, opts.withRunID)
	if err != nil {
		return nil, err
	}
	if base.Root != opts.root {
		return nil, fmt.Errorf("run %d belongs to %s, not %s", base.ID, base.Root, opts.root)
	}

	cmp, err := db.CompareRuns(ctx, base.ID, latest[0].ID, opts.strict)
	if err != nil {
		return nil, fmt.Errorf("failed to compare runs: %w", err)
	}
	return cmp, nil
}

// formatSummary formats the status counts of a run.
func formatSummary(s model.Summary) string {
	if s.Total() == 0 {
		return "no links"
	}

	var parts []string
	if s.Errors > 0 {
		parts = append(parts, fmt.Sprintf("E:%d", s.Errors))
	}
	if s.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("W:%d", s.Warnings))
	}
	if s.OK > 0 {
		parts = append(parts, fmt.Sprintf("OK:%d", s.OK))
	}
	if s.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("S:%d", s.Skipped))
	}
	return strings.Join(parts, " ")
}

// outputComparisonJSON outputs the comparison in JSON format.
func outputComparisonJSON(out io.Writer, cmp *database.Comparison) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cmp)
}

// outputComparisonMarkdown outputs the comparison in Markdown format.
func outputComparisonMarkdown(out io.Writer, cmp *database.Comparison) error {
	md := markdown.NewMarkdown(out)
	md.H1("Run Comparison").PlainText("")
	md.PlainText("Root: `" + cmp.Current.Root + "`").PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Run", strconv.FormatInt(cmp.Base.ID, 10), strconv.FormatInt(cmp.Current.ID, 10), "-"},
			{"Started", cmp.Base.StartedAt.Local().Format(timeLayout), cmp.Current.StartedAt.Local().Format(timeLayout), "-"},
			summaryRow("Errors", cmp.Base.Summary.Errors, cmp.Current.Summary.Errors),
			summaryRow("Warnings", cmp.Base.Summary.Warnings, cmp.Current.Summary.Warnings),
			summaryRow("OK", cmp.Base.Summary.OK, cmp.Current.Summary.OK),
			summaryRow("Skipped", cmp.Base.Summary.Skipped, cmp.Current.Summary.Skipped),
		},
	})
	md.PlainText("")

	sections := []struct {
		title    string
		findings []model.Finding
	}{
		{"Newly Broken", cmp.NewlyBroken},
		{"Fixed", cmp.Fixed},
		{"Still Broken", cmp.StillBroken},
	}
	for _, sec := range sections {
		if len(sec.findings) == 0 {
			continue
		}
		items := make([]string, 0, len(sec.findings))
		for _, f := range sec.findings {
			items = append(items, "`"+f.Path+":"+strconv.Itoa(f.Line)+"` "+f.URL+" ("+f.Reason+")")
		}
		md.H2(fmt.Sprintf("%s (%d)", sec.title, len(sec.findings))).PlainText("")
		md.BulletList(items...).PlainText("")
	}

	if len(cmp.ChangedDocuments) > 0 {
		md.H2(fmt.Sprintf("Changed Documents (%d)", len(cmp.ChangedDocuments))).PlainText("")
		md.BulletList(cmp.ChangedDocuments...)
	}

	return md.Build()
}

func summaryRow(label string, before, after int) []string {
	return []string{label, strconv.Itoa(before), strconv.Itoa(after), formatDelta(after - before)}
}

// outputComparisonText outputs the comparison in human-readable text format.
func outputComparisonText(out io.Writer, cmp *database.Comparison) error {
	fmt.Fprintf(out, "Run Comparison: %s\n", cmp.Current.Root)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nPrevious run: #%d  %s\n", cmp.Base.ID, cmp.Base.StartedAt.Local().Format(timeLayout))
	fmt.Fprintf(out, "Current run:  #%d  %s\n", cmp.Current.ID, cmp.Current.StartedAt.Local().Format(timeLayout))

	fmt.Fprintln(out, "\nFindings Summary:")
	fmt.Fprintf(out, "  %-10s  %-10s  %-10s  %-10s\n", "Status", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 45))
	for _, row := range [][]string{
		summaryRow("Errors", cmp.Base.Summary.Errors, cmp.Current.Summary.Errors),
		summaryRow("Warnings", cmp.Base.Summary.Warnings, cmp.Current.Summary.Warnings),
		summaryRow("OK", cmp.Base.Summary.OK, cmp.Current.Summary.OK),
		summaryRow("Skipped", cmp.Base.Summary.Skipped, cmp.Current.Summary.Skipped),
	} {
		fmt.Fprintf(out, "  %-10s  %-10s  %-10s  %-10s\n", row[0], row[1], row[2], row[3])
	}

	if len(cmp.NewlyBroken) > 0 {
		fmt.Fprintf(out, "\nNewly Broken (%d):\n", len(cmp.NewlyBroken))
		for _, f := range cmp.NewlyBroken {
			fmt.Fprintf(out, "  [+] %s\n", report.FormatFinding(f))
		}
	}
	if len(cmp.Fixed) > 0 {
		fmt.Fprintf(out, "\nFixed (%d):\n", len(cmp.Fixed))
		for _, f := range cmp.Fixed {
			fmt.Fprintf(out, "  [-] %s\n", report.FormatFinding(f))
		}
	}
	if len(cmp.StillBroken) > 0 {
		fmt.Fprintf(out, "\nStill Broken: %d\n", len(cmp.StillBroken))
	}
	if len(cmp.ChangedDocuments) > 0 {
		fmt.Fprintf(out, "\nChanged Documents (%d):\n", len(cmp.ChangedDocuments))
		for _, p := range cmp.ChangedDocuments {
			fmt.Fprintf(out, "  * %s\n", p)
		}
	}
	if len(cmp.NewlyBroken)+len(cmp.Fixed)+len(cmp.StillBroken) == 0 {
		fmt.Fprintln(out, "\nNo failing links in either run.")
	}
	return nil
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

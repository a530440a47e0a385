package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/Dogebooch/DougHub-sub001/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display: one line per fixture with
// the status of every stage, followed by the diagnostics that need
// attention.
type SimpleWriter struct {
	baseWriter

	// showPassing controls whether diagnostics of passing stages are shown.
	showPassing bool

	// verbose prints multi-line diagnostics (diffs) in full.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowPassing configures the writer to list diagnostics of passing
// stages too.
func WithShowPassing(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showPassing = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs a single fixture result in human-readable format.
func (w *SimpleWriter) Write(result *model.FixtureResult) (int, error) {
	if result == nil {
		return 0, nil
	}

	var sb strings.Builder
	w.writeFixture(&sb, result)
	return w.output.Write([]byte(sb.String()))
}

// WriteBatch outputs the batch report in human-readable format.
func (w *SimpleWriter) WriteBatch(results []*model.FixtureResult) (int, error) {
	results = compact(results)

	var sb strings.Builder

	w.writeHeader(&sb)
	w.writeSection(&sb, "FIXTURES")
	if len(results) == 0 {
		sb.WriteString("  No fixtures validated\n\n")
	}
	for _, r := range results {
		w.writeFixture(&sb, r)
	}
	w.writeSummary(&sb, model.Summarize(results), results)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report banner.
func (w *SimpleWriter) writeHeader(sb *strings.Builder) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                    DOUGHUB VALIDATION REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeFixture writes the stage line of one fixture and its diagnostics.
func (w *SimpleWriter) writeFixture(sb *strings.Builder, r *model.FixtureResult) {
	fmt.Fprintf(sb, "[%s] %s (%s)\n", w.outcomeIndicator(r.Outcome), r.FixtureID, r.Platform)

	stages := make([]string, 0, len(model.StageOrder))
	for _, id := range model.StageOrder {
		status := model.StatusSkipped
		if res, ok := r.Report[id]; ok {
			status = res.Status
		}
		stages = append(stages, fmt.Sprintf("%s:%s", id, status))
	}
	fmt.Fprintf(sb, "    %s  => %s\n", strings.Join(stages, " "), r.Outcome)

	for _, id := range model.StageOrder {
		res, ok := r.Report[id]
		if !ok || res.Status == model.StatusSkipped {
			continue
		}
		if res.Status == model.StatusPass && !w.showPassing {
			continue
		}
		for _, d := range res.Diagnostics {
			w.writeDiagnostic(sb, id, res, d)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeDiagnostic(sb *strings.Builder, id model.StageID, res model.StageResult, d string) {
	label := string(id)
	if res.Kind != "" {
		label += " " + string(res.Kind)
	}

	line, multi := firstLine(d)
	if !multi || !w.verbose {
		if multi {
			line += " (use --verbose for the full diff)"
		}
		fmt.Fprintf(sb, "    * %s: %s\n", label, line)
		return
	}

	fmt.Fprintf(sb, "    * %s:\n", label)
	for l := range strings.SplitSeq(strings.TrimRight(d, "\n"), "\n") {
		fmt.Fprintf(sb, "        %s\n", l)
	}
}

// writeSummary writes the outcome counts and the per-stage breakdown.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, s model.Summary, results []*model.FixtureResult) {
	w.writeSection(sb, "SUMMARY")

	fmt.Fprintf(sb, "  OK:                  %d\n", s.OK)
	fmt.Fprintf(sb, "  EXPECTED FAILURES:   %d\n", s.ExpectedFailures)
	fmt.Fprintf(sb, "  UNEXPECTED FAILURES: %d\n", s.UnexpectedFailures)
	fmt.Fprintf(sb, "  WITH WARNINGS:       %d\n", s.Warnings)
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  TOTAL:               %d fixtures\n", s.Total)
	sb.WriteString("\n")

	for _, id := range model.StageOrder {
		c := s.StageCounts[id]
		fmt.Fprintf(sb, "  %s %-24s pass=%d warn=%d fail=%d skipped=%d\n",
			id, id.Title(),
			c[model.StatusPass], c[model.StatusWarning], c[model.StatusFail], c[model.StatusSkipped])
	}
	sb.WriteString("\n")

	if failed := model.FailedFixtures(results); len(failed) > 0 {
		fmt.Fprintf(sb, "  Failed: %s\n\n", strings.Join(failed, ", "))
	}
}

// outcomeIndicator returns a visual indicator for the outcome.
func (w *SimpleWriter) outcomeIndicator(o model.Outcome) string {
	switch o {
	case model.OutcomeOK:
		return "OK"
	case model.OutcomeExpectedFailure:
		return "XFAIL"
	case model.OutcomeUnexpectedFailure:
		return "FAIL"
	default:
		return "?"
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by doughub\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/Dogebooch/DougHub-sub001/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for pasting validation results into issues and
// pull requests.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs a single fixture result in Markdown format.
func (w *MarkdownWriter) Write(result *model.FixtureResult) (int, error) {
	return w.WriteBatch([]*model.FixtureResult{result})
}

// WriteBatch outputs the batch report in Markdown format.
func (w *MarkdownWriter) WriteBatch(results []*model.FixtureResult) (int, error) {
	results = compact(results)
	summary := model.Summarize(results)

	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeStageMatrix(md, results)
	w.writeDiagnostics(md, results)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title, the outcome summary and the overall alert.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary model.Summary) {
	md.H1("DougHub Validation Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Fixtures"},
		Rows: [][]string{
			{"OK", strconv.Itoa(summary.OK)},
			{"Expected failures", strconv.Itoa(summary.ExpectedFailures)},
			{"Unexpected failures", strconv.Itoa(summary.UnexpectedFailures)},
			{"With warnings", strconv.Itoa(summary.Warnings)},
			{"**Total**", "**" + strconv.Itoa(summary.Total) + "**"},
		},
	})
	md.PlainText("")

	if summary.Total > 0 {
		w.writePieChart(md, summary)
	}
	w.writeAlert(md, summary)
}

// writePieChart writes a mermaid pie chart of fixture outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Fixture Outcomes"),
		piechart.WithShowData(true),
	)

	if summary.OK > 0 {
		chart.LabelAndIntValue("OK", uint64(summary.OK))
	}
	if summary.ExpectedFailures > 0 {
		chart.LabelAndIntValue("Expected failure", uint64(summary.ExpectedFailures))
	}
	if summary.UnexpectedFailures > 0 {
		chart.LabelAndIntValue("Unexpected failure", uint64(summary.UnexpectedFailures))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes a GitHub alert reflecting the worst outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary model.Summary) {
	switch {
	case summary.UnexpectedFailures > 0:
		md.Cautionf(
			"%d fixture(s) failed unexpectedly. The pipeline is not healthy.",
			summary.UnexpectedFailures,
		)
	case summary.Warnings > 0:
		md.Warningf(
			"All fixtures behaved as expected, but %d reported warnings.",
			summary.Warnings,
		)
	case summary.Total == 0:
		md.Note("No fixtures were validated.")
	default:
		md.Tip("All fixtures behaved as expected.")
	}
	md.PlainText("")
}

// writeStageMatrix writes one row per fixture with the status of each stage.
func (w *MarkdownWriter) writeStageMatrix(md *markdown.Markdown, results []*model.FixtureResult) {
	md.H2("Stage Results")
	md.PlainText("")

	if len(results) == 0 {
		md.PlainText("No fixtures were validated.")
		md.PlainText("")
		return
	}

	header := []string{"Fixture", "Platform"}
	for _, id := range model.StageOrder {
		header = append(header, string(id))
	}
	header = append(header, "Outcome")

	rows := make([][]string, len(results))
	for i, r := range results {
		row := []string{truncateString(r.FixtureID, 40), r.Platform}
		for _, id := range model.StageOrder {
			row = append(row, statusCell(r.Report[id]))
		}
		row = append(row, outcomeCell(r.Outcome))
		rows[i] = row
	}

	md.Table(markdown.TableSet{
		Header: header,
		Rows:   rows,
	})
	md.PlainText("")
	md.PlainText(stageLegend())
	md.PlainText("")
}

// writeDiagnostics writes the diagnostics of every non-passing stage.
func (w *MarkdownWriter) writeDiagnostics(md *markdown.Markdown, results []*model.FixtureResult) {
	var noisy []*model.FixtureResult
	for _, r := range results {
		if r.Report.Status() == model.StatusFail || r.Report.Status() == model.StatusWarning {
			noisy = append(noisy, r)
		}
	}
	if len(noisy) == 0 {
		return
	}

	md.H2("Diagnostics")
	md.PlainText("")

	for _, r := range noisy {
		md.PlainText("### " + r.FixtureID)
		md.PlainText("")

		var items []string
		var details [][2]string
		for _, id := range model.StageOrder {
			res, ok := r.Report[id]
			if !ok || res.Status == model.StatusPass || res.Status == model.StatusSkipped {
				continue
			}
			for _, d := range res.Diagnostics {
				line, multi := firstLine(d)
				items = append(items, "**"+string(id)+"** "+string(res.Kind)+": "+truncateString(line, 120))
				if multi {
					details = append(details, [2]string{string(id) + " " + string(res.Kind), d})
				}
			}
			if len(res.Diagnostics) == 0 {
				items = append(items, "**"+string(id)+"** "+string(res.Kind))
			}
		}

		md.BulletList(items...)
		md.PlainText("")
		for _, d := range details {
			md.Details(d[0], strings.TrimSpace(d[1]))
		}
		if len(details) > 0 {
			md.PlainText("")
		}
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by doughub*")
}

func statusCell(res model.StageResult) string {
	switch res.Status {
	case model.StatusPass:
		return "pass"
	case model.StatusWarning:
		return "warn"
	case model.StatusFail:
		return "**FAIL**"
	case model.StatusSkipped:
		return "-"
	default:
		return "?"
	}
}

func outcomeCell(o model.Outcome) string {
	if o == model.OutcomeUnexpectedFailure {
		return "**" + string(o) + "**"
	}
	return string(o)
}

func stageLegend() string {
	parts := make([]string, len(model.StageOrder))
	for i, id := range model.StageOrder {
		parts[i] = string(id) + " = " + id.Title()
	}
	return "*" + strings.Join(parts, ", ") + "*"
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

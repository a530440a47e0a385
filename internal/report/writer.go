package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/Dogebooch/DougHub-sub001/internal/model"
)

// Writer defines the interface for report output.
// Implementations write validation results in various formats.
type Writer interface {
	// Write outputs the result of a single fixture.
	// Returns the number of bytes written and any error encountered.
	Write(result *model.FixtureResult) (int, error)

	// WriteBatch outputs the results of a batch with its summary.
	// Nil results (fixtures that never ran) are left out.
	WriteBatch(results []*model.FixtureResult) (int, error)
}

// Format names an output format.
type Format string

const (
	// FormatText is the human-readable terminal format.
	FormatText Format = "text"
	// FormatJSON is the structured format for tool integration.
	FormatJSON Format = "json"
	// FormatMarkdown is the format for sharing results in documents.
	FormatMarkdown Format = "markdown"
)

// Formats lists the supported output formats.
var Formats = []Format{FormatText, FormatJSON, FormatMarkdown}

// NewWriter returns a Writer for format that outputs to output.
func NewWriter(format Format, output io.Writer, version string, verbose bool) (Writer, error) {
	switch Format(strings.ToLower(string(format))) {
	case FormatText, "":
		return NewSimpleWriter(output, WithVerbose(verbose)), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint(), WithVersion(version)), nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("unsupported report format %q (use text, json or markdown)", format)
	}
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the result to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(result *model.FixtureResult) (int, error) {
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

// WriteBatch outputs the batch to all configured Writers.
func (m *MultiWriter) WriteBatch(results []*model.FixtureResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteBatch(results)
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

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// compact drops nil results.
func compact(results []*model.FixtureResult) []*model.FixtureResult {
	out := make([]*model.FixtureResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// firstLine returns the first line of a possibly multi-line diagnostic.
func firstLine(s string) (string, bool) {
	line, _, multi := strings.Cut(s, "\n")
	return line, multi
}

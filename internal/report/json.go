package report

import (
	"encoding/json"
	"io"

	"github.com/Dogebooch/DougHub-sub001/internal/model"
)

// JSONWriter outputs results in JSON format.
// A single result is written as
// {"fixture": ..., "outcome": ..., "report": {"A": {...}, ...}, "record": {...}}.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is written into batch reports.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion sets the tool version recorded in batch reports.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one fixture result in JSON format.
func (w *JSONWriter) Write(result *model.FixtureResult) (int, error) {
	return w.writeJSON(result)
}

// BatchReport wraps the results of a batch with its summary.
type BatchReport struct {
	// Version is the doughub version that generated this report.
	Version string `json:"version,omitempty"`

	// Summary aggregates the results.
	Summary model.Summary `json:"summary"`

	// Results are the fixture results in input order.
	Results []*model.FixtureResult `json:"results"`
}

// NewBatchReport creates a BatchReport, skipping nil results.
func NewBatchReport(results []*model.FixtureResult, version string) *BatchReport {
	results = compact(results)
	return &BatchReport{
		Version: version,
		Summary: model.Summarize(results),
		Results: results,
	}
}

// WriteBatch outputs the batch report in JSON format.
func (w *JSONWriter) WriteBatch(results []*model.FixtureResult) (int, error) {
	return w.writeJSON(NewBatchReport(results, w.version))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	data = append(data, '\n')

	return w.output.Write(data)
}

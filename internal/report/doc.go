// Package report renders validation results.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown with a stage matrix for issues and PRs
//
// Every writer accepts a single model.FixtureResult or a whole batch. Batch
// output always carries the model.Summary of the results, so a reader can
// tell expected failures (malformed fixtures rejected by the input contract)
// from regressions at a glance.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dogebooch/DougHub-sub001/internal/config"
	"github.com/Dogebooch/DougHub-sub001/internal/database"
	"github.com/Dogebooch/DougHub-sub001/internal/model"
)

// Directions of an outcome change between two runs.
const (
	directionRegressed = "regressed"
	directionFixed     = "fixed"
	directionUnchanged = "unchanged"
)

// NewHistoryCmd creates the history command.
// This command compares validation runs stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [fixture-id]",
		Short: "Show and compare past validation runs of a fixture",
		Long: `History shows how a fixture's validation changed between runs.

Every 'doughub validate' run stores one record per fixture in the database.
This command compares the latest run with an earlier one and shows:
- Stages whose status changed
- Whether the outcome regressed, was fixed or is unchanged
- Whether the fixture digest changed between the runs

Examples:
  # Compare the latest two runs of a fixture
  doughub history sample_mksap

  # List all runs of a fixture
  doughub history --list sample_mksap

  # Compare with a specific run by ID
  doughub history --with-run-id 5 sample_mksap

  # Compare with the first run since a date
  doughub history --since "2025-01-01" sample_mksap

  # Output the comparison as JSON
  doughub history --json sample_mksap

  # List every fixture that has been validated
  doughub history --list-fixtures`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List run history for the specified fixture")
	cmd.Flags().BoolP("list-fixtures", "L", false,
		"List all fixtures with runs in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare with a specific run by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first run after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the SQLite database")

	return cmd
}

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	withRunID int64
	since     string
	json      bool
	markdown  bool
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listFixtures, err := cmd.Flags().GetBool("list-fixtures")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database
	var fixtureID string
	if !listFixtures {
		if len(args) == 0 {
			return errors.New("fixture id is required (use --list-fixtures to see validated fixtures)")
		}
		fixtureID = args[0]
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if listFixtures {
		return listValidatedFixtures(ctx, out, db)
	}

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listRunHistory(ctx, out, db, fixtureID)
	}

	var opts historyOptions
	if opts.withRunID, err = cmd.Flags().GetInt64("with-run-id"); err != nil {
		return err
	}
	if opts.since, err = cmd.Flags().GetString("since"); err != nil {
		return err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}

	return runComparison(ctx, out, db, fixtureID, opts)
}

// listValidatedFixtures lists all fixtures that have runs in the database.
func listValidatedFixtures(ctx context.Context, out io.Writer, db *database.QuestionDB) error {
	fixtures, err := db.ListFixtures(ctx)
	if err != nil {
		return err
	}

	if len(fixtures) == 0 {
		fmt.Fprintln(out, "No validated fixtures found in the database.")
		fmt.Fprintln(out, "\nUse 'doughub validate' to validate the fixture corpus.")
		return nil
	}

	fmt.Fprintf(out, "Validated fixtures (%d):\n\n", len(fixtures))
	for _, id := range fixtures {
		fmt.Fprintf(out, "  • %s\n", id)
	}
	fmt.Fprintln(out, "\nUse 'doughub history --list <fixture>' to see the runs of a fixture.")

	return nil
}

// listRunHistory lists all runs of one fixture.
func listRunHistory(ctx context.Context, out io.Writer, db *database.QuestionDB, fixtureID string) error {
	runs, err := db.FixtureHistory(ctx, fixtureID)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No run history found for %s\n", fixtureID)
		fmt.Fprintln(out, "\nUse 'doughub validate' to validate this fixture.")
		return nil
	}

	fmt.Fprintf(out, "Run history for %s (%d runs):\n\n", fixtureID, len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-20s  %s\n", "ID", "Date", "Outcome", "Stages")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))

	for _, run := range runs {
		fmt.Fprintf(out, "  %-6d  %-20s  %-20s  %s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Outcome,
			formatStages(run.Stages),
		)
	}

	fmt.Fprintln(out, "\nUse 'doughub history <fixture>' to compare the latest two runs.")
	fmt.Fprintln(out, "Use 'doughub history --with-run-id <id> <fixture>' to compare with a specific run.")

	return nil
}

// formatStages renders a stage status map as "A:pass B:pass ...".
func formatStages(stages map[string]string) string {
	if len(stages) == 0 {
		return "N/A"
	}

	parts := make([]string, 0, len(model.StageOrder))
	for _, id := range model.StageOrder {
		status, ok := stages[string(id)]
		if !ok {
			continue
		}
		parts = append(parts, string(id)+":"+status)
	}
	return strings.Join(parts, " ")
}

// runComparison selects the two runs and prints their comparison.
func runComparison(ctx context.Context, out io.Writer, db *database.QuestionDB, fixtureID string, opts historyOptions) error {
	runs, err := db.FixtureHistory(ctx, fixtureID)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		return fmt.Errorf("no run history found for %s", fixtureID)
	}

	previous, current, err := selectRuns(runs, opts)
	if err != nil {
		return err
	}

	comparison := compareRuns(previous, current)

	switch {
	case opts.json:
		return outputComparisonJSON(out, comparison)
	case opts.markdown:
		return outputComparisonMarkdown(out, comparison)
	default:
		return outputComparisonText(out, comparison)
	}
}

// selectRuns picks the runs to compare. runs are newest first; the latest
// run is always the current one.
func selectRuns(runs []database.RunMetadata, opts historyOptions) (previous, current database.RunMetadata, err error) {
	if len(runs) < 2 && opts.withRunID == 0 && opts.since == "" {
		return previous, current, fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
	}

	current = runs[0]

	switch {
	case opts.withRunID > 0:
		found := false
		for _, r := range runs {
			if r.ID == opts.withRunID {
				previous, found = r, true
				break
			}
		}
		if !found {
			return previous, current, fmt.Errorf("run with ID %d not found for %s", opts.withRunID, current.FixtureID)
		}
	case opts.since != "":
		sinceDate, err := time.Parse("2006-01-02", opts.since)
		if err != nil {
			return previous, current, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// Iterate oldest first to find the first run at or after the date
		found := false
		for i := len(runs) - 1; i >= 0; i-- {
			if !runs[i].Timestamp.Before(sinceDate) {
				previous, found = runs[i], true
				break
			}
		}
		if !found {
			return previous, current, fmt.Errorf("no runs found since %s", opts.since)
		}
	default:
		previous = runs[1]
	}

	if previous.ID == current.ID {
		return previous, current, errors.New("at least 2 runs are required for comparison; the selected run is the latest one")
	}
	return previous, current, nil
}

// RunComparison holds the result of comparing two validation runs.
type RunComparison struct {
	// FixtureID is the compared fixture.
	FixtureID string `json:"fixture"`

	// PreviousRun describes the older run.
	PreviousRun RunSummary `json:"previous_run"`

	// CurrentRun describes the latest run.
	CurrentRun RunSummary `json:"current_run"`

	// StageChanges lists stages whose status differs.
	StageChanges []StageChange `json:"stage_changes,omitempty"`

	// UnchangedStages is the number of stages with the same status.
	UnchangedStages int `json:"unchanged_stages"`

	// DigestChanged reports whether the fixture content changed between runs.
	DigestChanged bool `json:"digest_changed"`

	// Direction is "regressed", "fixed" or "unchanged".
	Direction string `json:"direction"`
}

// RunSummary contains the metadata of one run for display.
type RunSummary struct {
	ID          int64         `json:"id"`
	ValidatedAt time.Time     `json:"validated_at"`
	Outcome     model.Outcome `json:"outcome"`
	Digest      string        `json:"digest"`
}

// StageChange is a stage whose status changed between two runs.
type StageChange struct {
	Stage    model.StageID `json:"stage"`
	Title    string        `json:"title"`
	Previous string        `json:"previous"`
	Current  string        `json:"current"`
}

// compareRuns compares two runs of the same fixture.
func compareRuns(previous, current database.RunMetadata) *RunComparison {
	result := &RunComparison{
		FixtureID:     current.FixtureID,
		PreviousRun:   summarizeRun(previous),
		CurrentRun:    summarizeRun(current),
		DigestChanged: previous.Digest != current.Digest,
		Direction:     outcomeDirection(previous.Outcome, current.Outcome),
	}

	for _, id := range model.StageOrder {
		prev := previous.Stages[string(id)]
		cur := current.Stages[string(id)]
		if prev == cur {
			if cur != "" {
				result.UnchangedStages++
			}
			continue
		}
		result.StageChanges = append(result.StageChanges, StageChange{
			Stage:    id,
			Title:    id.Title(),
			Previous: orNone(prev),
			Current:  orNone(cur),
		})
	}

	return result
}

func summarizeRun(run database.RunMetadata) RunSummary {
	return RunSummary{
		ID:          run.ID,
		ValidatedAt: run.Timestamp,
		Outcome:     run.Outcome,
		Digest:      run.Digest,
	}
}

// outcomeDirection ranks outcomes: only unexpected failures count as broken.
func outcomeDirection(previous, current model.Outcome) string {
	wasBroken := previous == model.OutcomeUnexpectedFailure
	isBroken := current == model.OutcomeUnexpectedFailure
	switch {
	case isBroken && !wasBroken:
		return directionRegressed
	case wasBroken && !isBroken:
		return directionFixed
	default:
		return directionUnchanged
	}
}

func orNone(status string) string {
	if status == "" {
		return "none"
	}
	return status
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(out io.Writer, result *RunComparison) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *RunComparison) error {
	fmt.Fprintf(out, "# Run Comparison: %s\n\n", result.FixtureID)

	fmt.Fprintln(out, "## Summary")
	fmt.Fprintf(out, "\n**Status:** %s\n\n", formatDirection(result.Direction))

	fmt.Fprintln(out, "| Metric | Previous | Current |")
	fmt.Fprintln(out, "|--------|----------|---------|")
	fmt.Fprintf(out, "| Run | %d | %d |\n", result.PreviousRun.ID, result.CurrentRun.ID)
	fmt.Fprintf(out, "| Date | %s | %s |\n",
		result.PreviousRun.ValidatedAt.Format("2006-01-02 15:04"),
		result.CurrentRun.ValidatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "| Outcome | %s | %s |\n", result.PreviousRun.Outcome, result.CurrentRun.Outcome)
	fmt.Fprintf(out, "| Digest | `%s` | `%s` |\n", short(result.PreviousRun.Digest), short(result.CurrentRun.Digest))

	if len(result.StageChanges) > 0 {
		fmt.Fprintf(out, "\n## Stage Changes (%d)\n\n", len(result.StageChanges))
		for _, c := range result.StageChanges {
			fmt.Fprintf(out, "- **%s** %s: %s → %s\n", c.Stage, c.Title, c.Previous, c.Current)
		}
	}

	if result.DigestChanged {
		fmt.Fprintln(out, "\n> [!WARNING]\n> The fixture digest changed between these runs.")
	}

	if result.UnchangedStages > 0 {
		fmt.Fprintf(out, "\n---\n\n*%d stages unchanged*\n", result.UnchangedStages)
	}

	return nil
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(out io.Writer, result *RunComparison) error {
	fmt.Fprintf(out, "Run Comparison: %s\n", result.FixtureID)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nStatus: %s\n", formatDirection(result.Direction))

	fmt.Fprintf(out, "\nPrevious run: #%-6d %s  %s\n", result.PreviousRun.ID,
		result.PreviousRun.ValidatedAt.Format("2006-01-02 15:04:05"), result.PreviousRun.Outcome)
	fmt.Fprintf(out, "Current run:  #%-6d %s  %s\n", result.CurrentRun.ID,
		result.CurrentRun.ValidatedAt.Format("2006-01-02 15:04:05"), result.CurrentRun.Outcome)

	if result.DigestChanged {
		fmt.Fprintf(out, "\nDigest changed: %s -> %s\n", short(result.PreviousRun.Digest), short(result.CurrentRun.Digest))
	}

	if len(result.StageChanges) > 0 {
		fmt.Fprintf(out, "\nStage Changes (%d):\n", len(result.StageChanges))
		for _, c := range result.StageChanges {
			fmt.Fprintf(out, "  [%s] %-24s %s -> %s\n", c.Stage, c.Title, c.Previous, c.Current)
		}
	}

	if result.UnchangedStages > 0 {
		fmt.Fprintf(out, "\nUnchanged: %d stages\n", result.UnchangedStages)
	}

	return nil
}

// formatDirection formats the outcome direction for display.
func formatDirection(direction string) string {
	switch direction {
	case directionRegressed:
		return "REGRESSED (fixture now fails unexpectedly)"
	case directionFixed:
		return "FIXED (fixture no longer fails unexpectedly)"
	default:
		return "UNCHANGED"
	}
}

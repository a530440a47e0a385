package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dogebooch/DougHub-sub001/internal/config"
	"github.com/Dogebooch/DougHub-sub001/internal/database"
	"github.com/Dogebooch/DougHub-sub001/internal/fixture"
	"github.com/Dogebooch/DougHub-sub001/internal/golden"
	"github.com/Dogebooch/DougHub-sub001/internal/leakage"
	dlog "github.com/Dogebooch/DougHub-sub001/internal/log"
	"github.com/Dogebooch/DougHub-sub001/internal/model"
	"github.com/Dogebooch/DougHub-sub001/internal/pipeline"
	"github.com/Dogebooch/DougHub-sub001/internal/report"
	"github.com/Dogebooch/DougHub-sub001/internal/validate"
)

// errUnexpectedFailures is returned when at least one fixture regressed.
var errUnexpectedFailures = errors.New("unexpected failures")

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [fixture-id...]",
		Short: "Run the validation pipeline over the fixture corpus",
		Long: `Validate extracts a question record from every fixture in the manifest and
checks it through stages A-F:

  A  Fixture immutability   digest matches the one recorded in the manifest
  B  Input contract         the page parses into a non-empty document
  C  Schema                 stem and answer choices were located and are complete
  D  Content/golden-set     fields match the golden record; no answer leakage
  E  Persistence round trip the record survives a store and retrieve unchanged
  F  Rendering safety       fragments render without scripts or handlers

The command exits non-zero when any fixture fails unexpectedly. Fixtures
marked expect_malformed that fail stage B are counted as expected failures.

Examples:
  # Validate every fixture listed in testdata/fixtures.yaml
  doughub validate

  # Validate two fixtures and print a Markdown report
  doughub validate --format markdown sample_mksap sample_acep

  # Allow near-matches against the golden set
  doughub validate --threshold 0.95

  # Skip the persistence round trip
  doughub validate --no-db

Configuration file (.doughub.yaml) example:
  manifest: testdata/fixtures.yaml
  golden_dir: testdata/golden
  concurrency: 4
  platforms:
    acep:
      min_choice_tokens: 2`,
		Args: cobra.ArbitraryArgs,
		RunE: runValidateCmd,
	}

	// Corpus flags
	cmd.Flags().StringP("manifest", "M", config.DefaultManifestPath,
		"Fixture manifest file or directory containing fixtures.yaml")
	cmd.Flags().StringP("golden", "g", config.DefaultGoldenDir,
		"Golden record directory (empty disables the golden comparison)")
	cmd.Flags().Float64P("threshold", "t", config.DefaultSimilarityThreshold,
		"Minimum similarity for a golden field match, in (0, 1]")

	// Persistence flags
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the SQLite database")
	cmd.Flags().Bool("no-db", false,
		"Skip the persistence round trip and do not record the run")
	cmd.Flags().Duration("timeout", config.DefaultPersistenceTimeout,
		"Timeout for one persistence round trip")

	// Batch flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of fixtures validated concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .doughub.yaml in current or home directory)")

	// Report flags
	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Report format: text, json or markdown")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("json-logs", false,
		"Write logs as JSON")

	return cmd
}

// runValidateCmd executes the validate command.
func runValidateCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	jsonLogs, err := cmd.Flags().GetBool("json-logs")
	if err != nil {
		return err
	}
	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, jsonLogs)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, finishing started fixtures...")
			cancel()
		case <-ctx.Done():
		}
	}()

	_, err = runValidate(ctx, cfg, logger, cmd.OutOrStdout())
	return err
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from defaults, the configuration file and
// the flags the user actually set, in that order.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.FixtureIDs = args

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user explicitly specified a config file path, error if not found.
	// Otherwise silently use defaults when no file exists.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(cf, filepath.Dir(configPath))
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	flags := cmd.Flags()
	if flags.Changed("manifest") {
		if cfg.ManifestPath, err = flags.GetString("manifest"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("golden") {
		if cfg.GoldenDir, err = flags.GetString("golden"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("threshold") {
		if cfg.SimilarityThreshold, err = flags.GetFloat64("threshold"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, err
		}
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	if flags.Changed("timeout") {
		if cfg.PersistenceTimeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("format") {
		if cfg.Format, err = flags.GetString("format"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("output") {
		if cfg.ReportFile, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// setupLogger creates a structured logger based on verbosity setting.
func setupLogger(w io.Writer, verbose, jsonLogs bool) *slog.Logger {
	if jsonLogs {
		return dlog.NewJSONLogger(w, verbose)
	}
	return dlog.NewLogger(w, verbose)
}

// runValidate loads the corpus, runs the batch and writes the report.
// It returns the batch summary; the error is errUnexpectedFailures when a
// fixture regressed.
func runValidate(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) (*model.Summary, error) {
	manifest, err := fixture.LoadManifest(cfg.ManifestPath)
	if err != nil {
		return nil, err
	}
	hasher, err := manifest.Hasher()
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", cfg.ManifestPath, err)
	}
	fixtures, err := manifest.Load()
	if err != nil {
		return nil, err
	}
	fixtures, err = selectFixtures(fixtures, cfg.FixtureIDs)
	if err != nil {
		return nil, err
	}

	var store *golden.Store
	if cfg.GoldenDir != "" {
		store, err = golden.Open(cfg.GoldenDir,
			golden.WithCacheSize(cfg.GoldenCacheSize),
			golden.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
	}

	var db *database.QuestionDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	logger.Info("starting validation",
		"manifest", cfg.ManifestPath,
		"fixtures", len(fixtures),
		"hash", hasher.Algorithm(),
		"concurrency", cfg.Concurrency,
		"saveToDB", cfg.SaveToDB,
	)

	bp := pipeline.NewBatchProcessor(
		newPipelineFactory(cfg, hasher, store, db, logger),
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()
	results := make([]*model.FixtureResult, len(fixtures))

	var mu sync.Mutex
	batchErr := bp.ProcessBatchWithCallback(ctx, fixtures, func(result *model.FixtureResult, index int) {
		mu.Lock()
		defer mu.Unlock()

		results[index] = result
		logger.Debug("fixture validated",
			"fixture", result.FixtureID,
			"outcome", result.Outcome,
			"progress", fmt.Sprintf("%d/%d", index+1, len(fixtures)),
		)

		if db == nil {
			return
		}
		if err := db.SaveFixtureResult(context.WithoutCancel(ctx), result); err != nil {
			logger.Error("failed to save fixture result", "fixture", result.FixtureID, "error", err)
		}
	})

	summary := model.Summarize(results)
	logger.Info("validation complete",
		"elapsed", time.Since(startTime).Round(time.Millisecond),
		"ok", summary.OK,
		"expected_failures", summary.ExpectedFailures,
		"unexpected_failures", summary.UnexpectedFailures,
	)

	if err := outputReport(cfg, results, stdout); err != nil {
		return &summary, err
	}

	if batchErr != nil {
		return &summary, batchErr
	}
	if !summary.Passed() {
		return &summary, fmt.Errorf("%w: %s", errUnexpectedFailures,
			strings.Join(model.FailedFixtures(results), ", "))
	}
	return &summary, nil
}

// selectFixtures keeps the fixtures named in ids, in manifest order.
func selectFixtures(fixtures []fixture.RawFixture, ids []string) ([]fixture.RawFixture, error) {
	if len(ids) == 0 {
		return fixtures, nil
	}

	known := make(map[string]bool, len(fixtures))
	for _, f := range fixtures {
		known[f.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return nil, fmt.Errorf("unknown fixture %q", id)
		}
	}

	selected := make([]fixture.RawFixture, 0, len(ids))
	for _, f := range fixtures {
		if slices.Contains(ids, f.ID) {
			selected = append(selected, f)
		}
	}
	return selected, nil
}

// newPipelineFactory returns a factory building one validation pipeline per
// fixture. Detectors and the golden store are shared read-only.
func newPipelineFactory(cfg *config.Config, hasher fixture.Hasher, store *golden.Store, db *database.QuestionDB, logger *slog.Logger) func() *pipeline.Pipeline {
	defaults := config.PlatformConfig{}
	overrides := map[fixture.Platform]config.PlatformConfig{}
	if cfg.File != nil {
		defaults = cfg.File.Defaults
		overrides = cfg.File.PlatformOverrides()
	}

	base := leakage.NewDetector(leakageOptions(defaults)...)
	perPlatform := make(map[fixture.Platform]*leakage.Detector, len(overrides))
	for p, pc := range overrides {
		perPlatform[p] = leakage.NewDetector(leakageOptions(pc)...)
	}

	comparator := validate.NewGoldenComparator(cfg.SimilarityThreshold, hasher)

	var adapter database.Adapter
	if db != nil {
		adapter = db
	}

	return func() *pipeline.Pipeline {
		return pipeline.NewValidationPipeline(pipeline.Dependencies{
			Hasher:             hasher,
			Golden:             store,
			Comparator:         comparator,
			Leakage:            base,
			PlatformLeakage:    perPlatform,
			Adapter:            adapter,
			PersistenceTimeout: cfg.PersistenceTimeout,
			Logger:             logger,
		})
	}
}

// leakageOptions converts configured detector settings into options.
// Zero values keep the detector defaults.
func leakageOptions(pc config.PlatformConfig) []leakage.Option {
	opts := []leakage.Option{
		leakage.WithMinChoiceTokens(pc.MinChoiceTokens),
		leakage.WithMinSharedRun(pc.MinSharedRun),
		leakage.WithMinSentenceTokens(pc.MinSentenceTokens),
	}
	if len(pc.FeedbackPhrases) > 0 {
		opts = append(opts, leakage.WithFeedbackPhrases(pc.FeedbackPhrases...))
	}
	return opts
}

// outputReport writes the batch report in the configured format.
func outputReport(cfg *config.Config, results []*model.FixtureResult, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	w, err := report.NewWriter(report.Format(cfg.Format), output, getVersion(), cfg.Verbose)
	if err != nil {
		return err
	}
	_, err = w.WriteBatch(results)
	return err
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Dogebooch/DougHub-sub001/internal/config"
	"github.com/Dogebooch/DougHub-sub001/internal/database"
	"github.com/Dogebooch/DougHub-sub001/internal/fixture"
	"github.com/Dogebooch/DougHub-sub001/internal/model"
	"github.com/Dogebooch/DougHub-sub001/internal/report"
)

const (
	testManifest  = "../../testdata/fixtures.yaml"
	testGoldenDir = "../../testdata/golden"
)

// TestNewValidateCmd tests the validate command creation.
func TestNewValidateCmd(t *testing.T) {
	t.Parallel()

	cmd := NewValidateCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "validate [fixture-id...]" {
			t.Errorf("expected use 'validate [fixture-id...]', got %q", cmd.Use)
		}
	})

	t.Run("has long description", func(t *testing.T) {
		t.Parallel()
		if cmd.Long == "" {
			t.Error("expected non-empty long description")
		}
	})

	flagsWithShort := map[string]string{
		"manifest":    "M",
		"golden":      "g",
		"threshold":   "t",
		"concurrency": "n",
		"config":      "c",
		"format":      "f",
		"output":      "o",
	}
	for flag, shorthand := range flagsWithShort {
		t.Run("has "+flag+" flag", func(t *testing.T) {
			t.Parallel()
			f := cmd.Flags().Lookup(flag)
			if f == nil {
				t.Fatalf("expected flag %q to exist", flag)
			}
			if f.Shorthand != shorthand {
				t.Errorf("flag %q: expected shorthand %q, got %q", flag, shorthand, f.Shorthand)
			}
		})
	}

	t.Run("has persistence flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"db-dir", "no-db", "timeout", "json-logs"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected flag %q to exist", name)
			}
		}
	})

	t.Run("default format is text", func(t *testing.T) {
		t.Parallel()
		f := cmd.Flags().Lookup("format")
		if f == nil {
			t.Fatal("expected format flag")
		}
		if f.DefValue != config.DefaultFormat {
			t.Errorf("expected default %q, got %q", config.DefaultFormat, f.DefValue)
		}
	})
}

// TestBuildConfig tests flag and configuration file layering.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("flags override config file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := filepath.Join(dir, "doughub.yaml")
		content := "manifest: corpus/fixtures.yaml\nconcurrency: 8\nsimilarity_threshold: 0.9\n"
		if err := os.WriteFile(cfgPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cmd := NewValidateCmd()
		if err := cmd.ParseFlags([]string{"-c", cfgPath, "-n", "2", "--no-db"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"sample_mksap"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.ManifestPath != filepath.Join(dir, "corpus", "fixtures.yaml") {
			t.Errorf("expected manifest resolved against config dir, got %q", cfg.ManifestPath)
		}
		if cfg.Concurrency != 2 {
			t.Errorf("expected concurrency 2 from flag, got %d", cfg.Concurrency)
		}
		if cfg.SimilarityThreshold != 0.9 {
			t.Errorf("expected threshold 0.9 from file, got %v", cfg.SimilarityThreshold)
		}
		if cfg.SaveToDB {
			t.Error("expected SaveToDB to be false with --no-db")
		}
		if len(cfg.FixtureIDs) != 1 || cfg.FixtureIDs[0] != "sample_mksap" {
			t.Errorf("expected fixture filter, got %v", cfg.FixtureIDs)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewValidateCmd()
		missing := filepath.Join(t.TempDir(), "missing.yaml")
		if err := cmd.ParseFlags([]string{"--config", missing}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		_, err := buildConfig(cmd, nil)
		if err == nil {
			t.Fatal("expected error for missing config file")
		}
		if !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected 'not found' error, got %v", err)
		}
	})
}

// TestSelectFixtures tests fixture id filtering.
func TestSelectFixtures(t *testing.T) {
	t.Parallel()

	all := []fixture.RawFixture{
		fixture.New("a", []byte("<p>a</p>"), fixture.PlatformGeneric, ""),
		fixture.New("b", []byte("<p>b</p>"), fixture.PlatformGeneric, ""),
		fixture.New("c", []byte("<p>c</p>"), fixture.PlatformGeneric, ""),
	}

	t.Run("no filter keeps all", func(t *testing.T) {
		t.Parallel()
		got, err := selectFixtures(all, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 3 {
			t.Errorf("expected 3 fixtures, got %d", len(got))
		}
	})

	t.Run("keeps manifest order", func(t *testing.T) {
		t.Parallel()
		got, err := selectFixtures(all, []string{"c", "a"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
			t.Errorf("expected [a c], got %v", got)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()
		if _, err := selectFixtures(all, []string{"zzz"}); err == nil {
			t.Error("expected error for unknown fixture id")
		}
	})
}

// TestLeakageOptions tests that configured settings become options.
func TestLeakageOptions(t *testing.T) {
	t.Parallel()

	if got := len(leakageOptions(config.PlatformConfig{})); got != 3 {
		t.Errorf("expected 3 options for zero config, got %d", got)
	}

	pc := config.PlatformConfig{MinChoiceTokens: 2, FeedbackPhrases: []string{"the answer is"}}
	if got := len(leakageOptions(pc)); got != 4 {
		t.Errorf("expected 4 options with feedback phrases, got %d", got)
	}
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.NewConfig()
	cfg.ManifestPath = testManifest
	cfg.GoldenDir = testGoldenDir
	cfg.DBDir = t.TempDir()
	cfg.Format = "json"
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestRunValidate_Corpus validates the checked-in fixture corpus end to end.
func TestRunValidate_Corpus(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)

	var buf bytes.Buffer
	summary, err := runValidate(context.Background(), cfg, discardLogger(), &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Total != 8 {
		t.Errorf("expected 8 fixtures, got %d", summary.Total)
	}
	if !summary.Passed() {
		t.Errorf("expected summary to pass, got %+v", summary)
	}

	var rep report.BatchReport
	if err := json.Unmarshal(buf.Bytes(), &rep); err != nil {
		t.Fatalf("expected JSON report: %v", err)
	}
	if len(rep.Results) != 8 {
		t.Fatalf("expected 8 results in report, got %d", len(rep.Results))
	}

	want := map[string]model.Outcome{
		"sample_mksap":      model.OutcomeOK,
		"sample_acep":       model.OutcomeOK,
		"leakage_synthetic": model.OutcomeOK,
		"unclosed_tags":     model.OutcomeOK,
		"invalid_chars":     model.OutcomeOK,
		"empty_tags":        model.OutcomeExpectedFailure,
		"empty":             model.OutcomeExpectedFailure,
		"binary":            model.OutcomeExpectedFailure,
	}
	for _, r := range rep.Results {
		if r.Outcome != want[r.FixtureID] {
			t.Errorf("fixture %s: expected outcome %s, got %s", r.FixtureID, want[r.FixtureID], r.Outcome)
		}
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	fixtures, err := db.ListFixtures(context.Background())
	if err != nil {
		t.Fatalf("failed to list fixtures: %v", err)
	}
	if len(fixtures) != 8 {
		t.Errorf("expected 8 fixtures recorded, got %d", len(fixtures))
	}
}

// TestRunValidate_Filter tests fixture selection and the skipped persistence stage.
func TestRunValidate_Filter(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	cfg.SaveToDB = false
	cfg.FixtureIDs = []string{"sample_mksap"}

	var buf bytes.Buffer
	summary, err := runValidate(context.Background(), cfg, discardLogger(), &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Total != 1 {
		t.Errorf("expected 1 fixture, got %d", summary.Total)
	}

	var rep report.BatchReport
	if err := json.Unmarshal(buf.Bytes(), &rep); err != nil {
		t.Fatalf("expected JSON report: %v", err)
	}
	if len(rep.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(rep.Results))
	}
	if got := rep.Results[0].Report[model.StagePersistence].Status; got != model.StatusSkipped {
		t.Errorf("expected persistence stage skipped without database, got %s", got)
	}
}

// TestRunValidate_UnknownFixture tests that an unknown id is rejected.
func TestRunValidate_UnknownFixture(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	cfg.SaveToDB = false
	cfg.FixtureIDs = []string{"does_not_exist"}

	_, err := runValidate(context.Background(), cfg, discardLogger(), io.Discard)
	if err == nil {
		t.Fatal("expected error for unknown fixture")
	}
	if !strings.Contains(err.Error(), "does_not_exist") {
		t.Errorf("expected error to name the fixture, got %v", err)
	}
}

// TestRunValidate_Drift tests that an edited fixture fails unexpectedly.
func TestRunValidate_Drift(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	page := "<html><body><div class=\"question\"><p>Which drug is first line?</p></div></body></html>"
	if err := os.WriteFile(filepath.Join(dir, "page.html"), []byte(page), 0600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	manifest := "hash_algorithm: sha256\nfixtures:\n  - id: page\n    file: page.html\n    digest: " +
		strings.Repeat("0", 64) + "\n"
	manifestPath := filepath.Join(dir, "fixtures.yaml")
	if err := os.WriteFile(manifestPath, []byte(manifest), 0600); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	cfg := newTestConfig(t)
	cfg.ManifestPath = manifestPath
	cfg.GoldenDir = ""
	cfg.SaveToDB = false

	summary, err := runValidate(context.Background(), cfg, discardLogger(), io.Discard)
	if !errors.Is(err, errUnexpectedFailures) {
		t.Fatalf("expected errUnexpectedFailures, got %v", err)
	}
	if summary.UnexpectedFailures != 1 {
		t.Errorf("expected 1 unexpected failure, got %d", summary.UnexpectedFailures)
	}
}

// TestOutputReport tests writing the report to a nested file.
func TestOutputReport(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.Format = "markdown"
	cfg.ReportFile = filepath.Join(t.TempDir(), "reports", "nested", "report.md")

	if err := outputReport(cfg, nil, io.Discard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, err := os.ReadFile(cfg.ReportFile)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	if !strings.Contains(string(content), "DougHub Validation Report") {
		t.Errorf("expected markdown report title, got %s", content)
	}
}

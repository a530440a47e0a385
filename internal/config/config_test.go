package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Dogebooch/DougHub-sub001/internal/fixture"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// Changes to defaults should be intentional, so they are pinned here.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default ManifestPath is testdata/fixtures.yaml", func(t *testing.T) {
		t.Parallel()
		if cfg.ManifestPath != "testdata/fixtures.yaml" {
			t.Errorf("expected testdata/fixtures.yaml, got %s", cfg.ManifestPath)
		}
	})

	t.Run("default Concurrency is 4", func(t *testing.T) {
		t.Parallel()
		if cfg.Concurrency != 4 {
			t.Errorf("expected 4, got %d", cfg.Concurrency)
		}
	})

	t.Run("default PersistenceTimeout is 5 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.PersistenceTimeout != 5*time.Second {
			t.Errorf("expected 5s, got %v", cfg.PersistenceTimeout)
		}
	})

	t.Run("default SimilarityThreshold is exact", func(t *testing.T) {
		t.Parallel()
		if cfg.SimilarityThreshold != 1.0 {
			t.Errorf("expected 1.0, got %v", cfg.SimilarityThreshold)
		}
	})

	t.Run("persistence enabled under XDG data dir", func(t *testing.T) {
		t.Parallel()
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to default to true")
		}
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected %s, got %s", XDGDataDir(), cfg.DBDir)
		}
	})

	t.Run("file is never nil", func(t *testing.T) {
		t.Parallel()
		if cfg.File == nil || cfg.File.Platforms == nil {
			t.Error("expected empty file configuration")
		}
	})

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected defaults to validate, got %v", err)
		}
	})
}

// TestConfigValidate tests the Validate method with table-driven tests.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid config returns nil", mutate: func(*Config) {}},
		{name: "empty manifest", mutate: func(c *Config) { c.ManifestPath = "" }, wantErr: ErrNoManifest},
		{name: "zero concurrency", mutate: func(c *Config) { c.Concurrency = 0 }, wantErr: ErrInvalidConcurrency},
		{name: "negative concurrency", mutate: func(c *Config) { c.Concurrency = -1 }, wantErr: ErrInvalidConcurrency},
		{name: "zero timeout", mutate: func(c *Config) { c.PersistenceTimeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "zero threshold", mutate: func(c *Config) { c.SimilarityThreshold = 0 }, wantErr: ErrInvalidThreshold},
		{name: "threshold above one", mutate: func(c *Config) { c.SimilarityThreshold = 1.5 }, wantErr: ErrInvalidThreshold},
		{name: "fuzzy threshold", mutate: func(c *Config) { c.SimilarityThreshold = 0.9 }},
		{name: "negative cache", mutate: func(c *Config) { c.GoldenCacheSize = -1 }, wantErr: ErrInvalidCacheSize},
		{name: "unknown format", mutate: func(c *Config) { c.Format = "xml" }, wantErr: ErrUnsupportedFormat},
		{name: "uppercase format", mutate: func(c *Config) { c.Format = "JSON" }},
		{name: "md alias", mutate: func(c *Config) { c.Format = "md" }},
		{name: "db without dir", mutate: func(c *Config) { c.DBDir = "" }, wantErr: ErrNoDBDir},
		{name: "no db without dir", mutate: func(c *Config) { c.DBDir = ""; c.SaveToDB = false }},
		{
			name: "unknown platform in file",
			mutate: func(c *Config) {
				c.File.Platforms["uworld"] = PlatformConfig{MinChoiceTokens: 2}
			},
			wantErr: ErrUnknownPlatform,
		},
		{
			name: "negative detector setting",
			mutate: func(c *Config) {
				c.File.Platforms["mksap"] = PlatformConfig{MinSharedRun: -2}
			},
			wantErr: ErrInvalidDetectorSetting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestConfigApplyFile tests overlaying a configuration file.
func TestConfigApplyFile(t *testing.T) {
	t.Parallel()

	t.Run("overrides non-zero values", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.ApplyFile(&File{
			Manifest:            "fixtures.yaml",
			GoldenDir:           "/abs/golden",
			Concurrency:         8,
			PersistenceTimeout:  2 * time.Second,
			SimilarityThreshold: 0.95,
			Report:              ReportConfig{Format: "json", Output: "out/report.json"},
		}, "/repo")

		if cfg.ManifestPath != filepath.Join("/repo", "fixtures.yaml") {
			t.Errorf("expected manifest resolved against base, got %s", cfg.ManifestPath)
		}
		if cfg.GoldenDir != "/abs/golden" {
			t.Errorf("expected absolute golden dir kept, got %s", cfg.GoldenDir)
		}
		if cfg.Concurrency != 8 || cfg.PersistenceTimeout != 2*time.Second || cfg.SimilarityThreshold != 0.95 {
			t.Errorf("expected numeric overrides, got %+v", cfg)
		}
		if cfg.Format != "json" || cfg.ReportFile != filepath.Join("/repo", "out/report.json") {
			t.Errorf("expected report overrides, got %s %s", cfg.Format, cfg.ReportFile)
		}
	})

	t.Run("zero values keep defaults", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.ApplyFile(&File{}, "")

		if cfg.ManifestPath != DefaultManifestPath || cfg.Concurrency != DefaultConcurrency {
			t.Errorf("expected defaults to survive, got %+v", cfg)
		}
	})

	t.Run("nil file is ignored", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.ApplyFile(nil, "")
		if cfg.File == nil {
			t.Error("expected file configuration to remain set")
		}
	})
}

// TestFileGetPlatformConfig tests merging platform settings with defaults.
func TestFileGetPlatformConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: PlatformConfig{MinChoiceTokens: 3, MinSharedRun: 4},
		Platforms: map[string]PlatformConfig{
			"mksap":    {MinChoiceTokens: 2},
			"peerprep": {FeedbackPhrases: []string{"peer answer"}},
		},
	}

	t.Run("returns defaults when platform not found", func(t *testing.T) {
		t.Parallel()

		got := cf.GetPlatformConfig("generic")
		if got.MinChoiceTokens != 3 || got.MinSharedRun != 4 {
			t.Errorf("expected defaults, got %+v", got)
		}
	})

	t.Run("platform values override defaults", func(t *testing.T) {
		t.Parallel()

		got := cf.GetPlatformConfig("mksap")
		if got.MinChoiceTokens != 2 {
			t.Errorf("expected override 2, got %d", got.MinChoiceTokens)
		}
		if got.MinSharedRun != 4 {
			t.Errorf("expected default shared run 4, got %d", got.MinSharedRun)
		}
	})

	t.Run("aliases resolve to the same platform", func(t *testing.T) {
		t.Parallel()

		got := cf.GetPlatformConfig("acep")
		if len(got.FeedbackPhrases) != 1 || got.FeedbackPhrases[0] != "peer answer" {
			t.Errorf("expected peerprep entry for acep, got %+v", got)
		}
	})

	t.Run("overrides keyed by platform", func(t *testing.T) {
		t.Parallel()

		overrides := cf.PlatformOverrides()
		if len(overrides) != 2 {
			t.Fatalf("expected 2 overrides, got %d", len(overrides))
		}
		if overrides[fixture.PlatformACEP].MinChoiceTokens != 3 {
			t.Errorf("expected merged defaults for acep, got %+v", overrides[fixture.PlatformACEP])
		}
		if overrides[fixture.PlatformMKSAP].MinChoiceTokens != 2 {
			t.Errorf("expected mksap override, got %+v", overrides[fixture.PlatformMKSAP])
		}
	})

	t.Run("nil platforms map", func(t *testing.T) {
		t.Parallel()

		empty := &File{Defaults: PlatformConfig{MinSentenceTokens: 9}}
		if got := empty.GetPlatformConfig("mksap"); got.MinSentenceTokens != 9 {
			t.Errorf("expected defaults, got %+v", got)
		}
	})
}

// TestPlatformConfigIsZero tests the empty check.
func TestPlatformConfigIsZero(t *testing.T) {
	t.Parallel()

	if !(PlatformConfig{}).IsZero() {
		t.Error("expected empty config to be zero")
	}
	if (PlatformConfig{FeedbackPhrases: []string{"x"}}).IsZero() {
		t.Error("expected config with phrases to be non-zero")
	}
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.doughub.yaml")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `manifest: testdata/fixtures.yaml
golden_dir: testdata/golden
concurrency: 2
persistence_timeout: 750ms
similarity_threshold: 0.9
report:
  format: markdown
  output: reports/latest.md
defaults:
  min_choice_tokens: 3
platforms:
  acep:
    min_shared_run: 5
    feedback_phrases:
      - "peers answered"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cf, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cf.Concurrency != 2 {
			t.Errorf("expected concurrency 2, got %d", cf.Concurrency)
		}
		if cf.PersistenceTimeout != 750*time.Millisecond {
			t.Errorf("expected 750ms, got %v", cf.PersistenceTimeout)
		}
		if cf.Report.Format != "markdown" {
			t.Errorf("expected markdown, got %q", cf.Report.Format)
		}
		acep, ok := cf.Platforms["acep"]
		if !ok {
			t.Fatal("expected acep in platforms")
		}
		if acep.MinSharedRun != 5 || len(acep.FeedbackPhrases) != 1 {
			t.Errorf("unexpected acep config: %+v", acep)
		}
		if err := cf.Validate(); err != nil {
			t.Errorf("expected file to validate, got %v", err)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Platforms map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(configPath, []byte("concurrency: 1\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cf, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Platforms == nil {
			t.Error("expected Platforms map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{"data": XDGDataDir(), "config": XDGConfigDir()} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if dir == "" {
				t.Fatal("expected non-empty path")
			}
			if !strings.HasSuffix(dir, AppName) {
				t.Errorf("expected path to end with %s, got %s", AppName, dir)
			}
		})
	}
}

package config

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultManifestPath is where the fixture manifest lives in a checkout.
	DefaultManifestPath = "testdata/fixtures.yaml"

	// DefaultGoldenDir holds the hand-verified golden records.
	DefaultGoldenDir = "testdata/golden"

	// DefaultConcurrency is the number of fixtures validated at once.
	// Fixtures are small and CPU bound; the SQLite writer serializes
	// persistence anyway.
	DefaultConcurrency = 4

	// DefaultPersistenceTimeout bounds one store-and-retrieve round trip.
	DefaultPersistenceTimeout = 5 * time.Second

	// DefaultSimilarityThreshold requires exact field equality against the
	// golden set. Lower values allow Levenshtein-based fuzzy matches.
	DefaultSimilarityThreshold = 1.0

	// DefaultGoldenCacheSize is the number of parsed golden entries kept in
	// memory.
	DefaultGoldenCacheSize = 128

	// DefaultFormat is the report format used when none is given.
	DefaultFormat = "text"

	// AppName is the application name used for XDG directory paths.
	AppName = "doughub"
)

// Formats lists the report formats accepted by Validate.
var Formats = []string{"text", "json", "markdown", "md"}

// Config holds all configuration options for doughub.
// This struct is populated from defaults, the optional .doughub.yaml file
// and CLI flags, in that order, and passed through the application rather
// than kept in global state.
type Config struct {
	// ManifestPath is the fixture manifest (fixtures.yaml) to validate.
	ManifestPath string

	// GoldenDir is the directory of golden JSON records.
	// When empty, the golden comparison of Stage D is disabled.
	GoldenDir string

	// GoldenCacheSize is the number of parsed golden entries kept in memory.
	GoldenCacheSize int

	// DBDir is the directory of the SQLite database used for the
	// persistence round trip and for validation history.
	// Defaults to XDG data directory (~/.local/share/doughub on Linux).
	DBDir string

	// SaveToDB enables Stage E and the history of validation runs.
	// When false, Stage E is reported as skipped.
	SaveToDB bool

	// Concurrency is the number of fixtures validated at once.
	Concurrency int

	// PersistenceTimeout bounds the Stage E round trip for one fixture.
	PersistenceTimeout time.Duration

	// SimilarityThreshold is the minimum similarity for a golden field
	// match, in (0, 1].
	SimilarityThreshold float64

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// Format selects the report format: text, json or markdown.
	Format string

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .doughub.yaml in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// File holds the loaded configuration file, including the per-platform
	// detector settings. Never nil after NewConfig.
	File *File

	// FixtureIDs restricts validation to the named fixtures.
	// Empty means every fixture in the manifest.
	FixtureIDs []string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		ManifestPath:        DefaultManifestPath,
		GoldenDir:           DefaultGoldenDir,
		GoldenCacheSize:     DefaultGoldenCacheSize,
		DBDir:               XDGDataDir(),
		SaveToDB:            true,
		Concurrency:         DefaultConcurrency,
		PersistenceTimeout:  DefaultPersistenceTimeout,
		SimilarityThreshold: DefaultSimilarityThreshold,
		Format:              DefaultFormat,
		File:                &File{Platforms: make(map[string]PlatformConfig)},
	}
}

// ApplyFile overlays the non-zero settings of cf onto c.
// Paths in cf are resolved against the directory of the configuration file
// when base is not empty.
func (c *Config) ApplyFile(cf *File, base string) {
	if cf == nil {
		return
	}
	c.File = cf

	resolve := func(p string) string {
		if base == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	if cf.Manifest != "" {
		c.ManifestPath = resolve(cf.Manifest)
	}
	if cf.GoldenDir != "" {
		c.GoldenDir = resolve(cf.GoldenDir)
	}
	if cf.DBDir != "" {
		c.DBDir = resolve(cf.DBDir)
	}
	if cf.Concurrency != 0 {
		c.Concurrency = cf.Concurrency
	}
	if cf.PersistenceTimeout != 0 {
		c.PersistenceTimeout = cf.PersistenceTimeout
	}
	if cf.SimilarityThreshold != 0 {
		c.SimilarityThreshold = cf.SimilarityThreshold
	}
	if cf.GoldenCacheSize != 0 {
		c.GoldenCacheSize = cf.GoldenCacheSize
	}
	if cf.Report.Format != "" {
		c.Format = cf.Report.Format
	}
	if cf.Report.Output != "" {
		c.ReportFile = resolve(cf.Report.Output)
	}
}

// XDGDataDir returns the XDG data directory for doughub.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/doughub
// On macOS: ~/Library/Application Support/doughub
// On Windows: %LOCALAPPDATA%\doughub
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for doughub.
// On Linux: ~/.config/doughub
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first sentinel error describing what is invalid.
func (c *Config) Validate() error {
	if c.ManifestPath == "" {
		return ErrNoManifest
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.PersistenceTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return ErrInvalidThreshold
	}

	if c.GoldenCacheSize < 0 {
		return ErrInvalidCacheSize
	}

	if !slices.Contains(Formats, strings.ToLower(c.Format)) {
		return ErrUnsupportedFormat
	}

	if c.SaveToDB && c.DBDir == "" {
		return ErrNoDBDir
	}

	if c.File != nil {
		if err := c.File.Validate(); err != nil {
			return err
		}
	}

	return nil
}

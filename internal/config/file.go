package config

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/Dogebooch/DougHub-sub001/internal/fixture"
)

// PlatformConfig holds the leakage detector settings for one platform.
// Zero values mean "use the detector default".
type PlatformConfig struct {
	// MinChoiceTokens is how many distinguishing tokens a choice needs
	// before it is checked for leakage.
	MinChoiceTokens int `yaml:"min_choice_tokens,omitempty"`

	// MinSharedRun is the shared token run that counts as a leak.
	MinSharedRun int `yaml:"min_shared_run,omitempty"`

	// MinSentenceTokens is the length an explanation sentence must reach
	// to be checked.
	MinSentenceTokens int `yaml:"min_sentence_tokens,omitempty"`

	// FeedbackPhrases replaces the phrases that only appear in answer
	// feedback.
	FeedbackPhrases []string `yaml:"feedback_phrases,omitempty"`
}

// IsZero reports whether no setting is present.
func (pc PlatformConfig) IsZero() bool {
	return pc.MinChoiceTokens == 0 && pc.MinSharedRun == 0 &&
		pc.MinSentenceTokens == 0 && len(pc.FeedbackPhrases) == 0
}

// ReportConfig selects the report format and destination.
type ReportConfig struct {
	// Format is text, json or markdown.
	Format string `yaml:"format,omitempty"`

	// Output is the report file path. Empty means stdout.
	Output string `yaml:"output,omitempty"`
}

// File represents the structure of the .doughub.yaml configuration file.
type File struct {
	// Manifest is the fixture manifest path.
	Manifest string `yaml:"manifest,omitempty"`

	// GoldenDir is the golden record directory.
	GoldenDir string `yaml:"golden_dir,omitempty"`

	// GoldenCacheSize is the number of parsed golden entries kept in memory.
	GoldenCacheSize int `yaml:"golden_cache_size,omitempty"`

	// DBDir is the SQLite database directory.
	DBDir string `yaml:"db_dir,omitempty"`

	// Concurrency is the number of fixtures validated at once.
	Concurrency int `yaml:"concurrency,omitempty"`

	// PersistenceTimeout bounds one persistence round trip, e.g. "5s".
	PersistenceTimeout time.Duration `yaml:"persistence_timeout,omitempty"`

	// SimilarityThreshold is the golden match threshold in (0, 1].
	SimilarityThreshold float64 `yaml:"similarity_threshold,omitempty"`

	// Report selects the report format and destination.
	Report ReportConfig `yaml:"report,omitempty"`

	// Defaults contains detector settings applied to all platforms
	// unless overridden in the platform-specific configuration.
	Defaults PlatformConfig `yaml:"defaults,omitempty"`

	// Platforms maps platform tags (mksap, acep, generic) to their
	// detector settings.
	Platforms map[string]PlatformConfig `yaml:"platforms,omitempty"`
}

// GetPlatformConfig returns the configuration for a platform tag.
// It merges the platform-specific configuration with defaults.
func (cf *File) GetPlatformConfig(platform string) PlatformConfig {
	result := cf.Defaults

	override, ok := cf.lookup(platform)
	if !ok {
		return result
	}

	if override.MinChoiceTokens != 0 {
		result.MinChoiceTokens = override.MinChoiceTokens
	}
	if override.MinSharedRun != 0 {
		result.MinSharedRun = override.MinSharedRun
	}
	if override.MinSentenceTokens != 0 {
		result.MinSentenceTokens = override.MinSentenceTokens
	}
	if len(override.FeedbackPhrases) > 0 {
		result.FeedbackPhrases = override.FeedbackPhrases
	}

	return result
}

// lookup finds the platform entry, accepting aliases such as "peerprep".
func (cf *File) lookup(platform string) (PlatformConfig, bool) {
	if pc, ok := cf.Platforms[platform]; ok {
		return pc, true
	}
	want, err := fixture.ParsePlatform(platform)
	if err != nil || want == fixture.PlatformUnknown {
		return PlatformConfig{}, false
	}
	for _, name := range slices.Sorted(maps.Keys(cf.Platforms)) {
		if p, err := fixture.ParsePlatform(name); err == nil && p == want {
			return cf.Platforms[name], true
		}
	}
	return PlatformConfig{}, false
}

// PlatformOverrides returns the merged settings of every platform named in
// the file, keyed by platform.
func (cf *File) PlatformOverrides() map[fixture.Platform]PlatformConfig {
	out := make(map[fixture.Platform]PlatformConfig, len(cf.Platforms))
	for name := range cf.Platforms {
		p, err := fixture.ParsePlatform(name)
		if err != nil || p == fixture.PlatformUnknown {
			continue
		}
		out[p] = cf.GetPlatformConfig(name)
	}
	return out
}

// Validate checks platform names and detector settings.
func (cf *File) Validate() error {
	if err := cf.Defaults.validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	for _, name := range slices.Sorted(maps.Keys(cf.Platforms)) {
		p, err := fixture.ParsePlatform(name)
		if err != nil || p == fixture.PlatformUnknown {
			return fmt.Errorf("%w: %q", ErrUnknownPlatform, name)
		}
		if err := cf.Platforms[name].validate(); err != nil {
			return fmt.Errorf("platform %s: %w", name, err)
		}
	}
	return nil
}

func (pc PlatformConfig) validate() error {
	if pc.MinChoiceTokens < 0 || pc.MinSharedRun < 0 || pc.MinSentenceTokens < 0 {
		return ErrInvalidDetectorSetting
	}
	return nil
}

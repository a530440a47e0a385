package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and File.Validate() so
// callers can use errors.Is() while still printing a readable message.
var (
	// ErrNoManifest is returned when no fixture manifest is configured.
	ErrNoManifest = errors.New("no fixture manifest specified: use --manifest or set manifest in .doughub.yaml")

	// ErrInvalidConcurrency is returned when concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTimeout is returned when the persistence timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid persistence timeout: must be positive")

	// ErrInvalidThreshold is returned when the similarity threshold is outside (0, 1].
	ErrInvalidThreshold = errors.New("invalid similarity threshold: must be in (0, 1]")

	// ErrInvalidCacheSize is returned when the golden cache size is negative.
	ErrInvalidCacheSize = errors.New("invalid golden cache size: must be non-negative")

	// ErrUnsupportedFormat is returned for an unknown report format.
	ErrUnsupportedFormat = errors.New("unsupported report format: use text, json or markdown")

	// ErrNoDBDir is returned when persistence is enabled without a database directory.
	ErrNoDBDir = errors.New("no database directory: set --db-dir or use --no-db")

	// ErrUnknownPlatform is returned when the configuration file names a
	// platform that has no extraction profile.
	ErrUnknownPlatform = errors.New("unknown platform in configuration file")

	// ErrInvalidDetectorSetting is returned when a leakage detector setting
	// is negative.
	ErrInvalidDetectorSetting = errors.New("invalid leakage detector setting: must be non-negative")
)

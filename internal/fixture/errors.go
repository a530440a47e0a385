package fixture

import "errors"

var (
	// ErrFixtureDrift is returned when a fixture's digest no longer matches
	// the digest recorded in the manifest. Golden expectations derived from
	// the fixture are stale once this happens.
	ErrFixtureDrift = errors.New("fixture drift: content digest does not match recorded digest")

	// ErrNoRecordedDigest is returned when a fixture has no digest to verify against.
	ErrNoRecordedDigest = errors.New("fixture has no recorded digest")

	// ErrUnknownAlgorithm is returned for hash algorithms other than sha256 and blake2b.
	ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

	// ErrUnknownPlatform is returned when a manifest names a platform that
	// has no region-location strategy.
	ErrUnknownPlatform = errors.New("unknown source platform")

	// ErrManifestNotFound is returned when the manifest file does not exist.
	ErrManifestNotFound = errors.New("fixture manifest not found")

	// ErrDuplicateFixture is returned when two manifest entries share an ID.
	ErrDuplicateFixture = errors.New("duplicate fixture id")
)

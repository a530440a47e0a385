// Package fixture defines captured HTML fixtures and the digest used to
// prove they have not drifted.
//
// A RawFixture is the unit of work for the validation pipeline: the exact
// bytes scraped from a question platform, the platform tag that selects a
// region-location strategy, and a provenance string pointing back at the
// capture it came from. Fixtures are loaded from a YAML manifest that also
// records each fixture's digest so Stage A can detect corpus drift.
//
// The Hasher is a pure function over bytes. SHA-256 is the default; BLAKE2b
// is available for corpora recorded with it.
package fixture

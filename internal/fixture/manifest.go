package fixture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultManifestFile is the manifest name looked up inside a fixtures directory.
const DefaultManifestFile = "fixtures.yaml"

// ManifestEntry describes one fixture in the manifest.
type ManifestEntry struct {
	// ID names the fixture. Defaults to the file name without extension.
	ID string `yaml:"id,omitempty"`

	// File is the fixture path relative to the manifest directory.
	File string `yaml:"file"`

	// Platform is the source platform tag (mksap, acep, generic).
	Platform string `yaml:"platform,omitempty"`

	// Origin is the provenance reference of the capture.
	Origin string `yaml:"origin,omitempty"`

	// Digest is the digest recorded when the fixture was captured.
	Digest string `yaml:"digest,omitempty"`

	// ExpectMalformed marks fixtures that should fail input validation.
	ExpectMalformed bool `yaml:"expect_malformed,omitempty"`

	// Golden names the golden-set file holding the fixture's expected extraction.
	Golden string `yaml:"golden,omitempty"`
}

// Manifest lists the fixtures of a corpus together with their recorded digests.
type Manifest struct {
	// HashAlgorithm is the algorithm the digests were recorded with.
	HashAlgorithm string `yaml:"hash_algorithm,omitempty"`

	// Fixtures are the corpus entries in run order.
	Fixtures []ManifestEntry `yaml:"fixtures"`

	// dir is the directory the manifest was loaded from.
	dir string
}

// LoadManifest reads a manifest file. If path is a directory,
// DefaultManifestFile inside it is used.
func LoadManifest(path string) (*Manifest, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultManifestFile)
	}

	data, err := os.ReadFile(path) //nolint:gosec // manifest path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	m.dir = filepath.Dir(path)

	seen := make(map[string]bool, len(m.Fixtures))
	for i := range m.Fixtures {
		e := &m.Fixtures[i]
		if e.ID == "" {
			e.ID = strings.TrimSuffix(filepath.Base(e.File), filepath.Ext(e.File))
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFixture, e.ID)
		}
		seen[e.ID] = true
	}

	return &m, nil
}

// Dir returns the directory fixture paths are resolved against.
func (m *Manifest) Dir() string {
	return m.dir
}

// Hasher returns the Hasher matching the manifest's algorithm.
func (m *Manifest) Hasher() (Hasher, error) {
	return NewHasher(m.HashAlgorithm)
}

// Load reads every fixture listed in the manifest.
// A missing file is an error; a fixture's content is never modified.
func (m *Manifest) Load() ([]RawFixture, error) {
	fixtures := make([]RawFixture, 0, len(m.Fixtures))
	for _, e := range m.Fixtures {
		platform, err := ParsePlatform(e.Platform)
		if err != nil {
			return nil, fmt.Errorf("fixture %s: %w", e.ID, err)
		}

		raw, err := os.ReadFile(filepath.Join(m.dir, e.File)) //nolint:gosec // paths come from the manifest
		if err != nil {
			return nil, fmt.Errorf("fixture %s: %w", e.ID, err)
		}

		origin := e.Origin
		if origin == "" {
			origin = e.File
		}

		f := New(e.ID, raw, platform, origin)
		f.RecordedDigest = e.Digest
		f.ExpectMalformed = e.ExpectMalformed
		f.Golden = e.Golden
		fixtures = append(fixtures, f)
	}
	return fixtures, nil
}

// Record recomputes the digest of every fixture and stores it in the
// manifest. It returns the IDs whose digest changed.
func (m *Manifest) Record() ([]string, error) {
	h, err := m.Hasher()
	if err != nil {
		return nil, err
	}

	var changed []string
	for i := range m.Fixtures {
		e := &m.Fixtures[i]
		raw, err := os.ReadFile(filepath.Join(m.dir, e.File)) //nolint:gosec // paths come from the manifest
		if err != nil {
			return nil, fmt.Errorf("fixture %s: %w", e.ID, err)
		}
		d := h.Digest(raw)
		if d != e.Digest {
			changed = append(changed, e.ID)
			e.Digest = d
		}
	}
	return changed, nil
}

// Save writes the manifest back to path.
func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

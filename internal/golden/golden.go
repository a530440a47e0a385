// Package golden reads the hand-verified expected extractions used by the
// content stage.
//
// A golden directory holds one JSON file per entry. The Store indexes the
// directory once at Open and loads entries lazily through an LRU cache, so
// it is safe for concurrent readers and never writes.
package golden

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Dogebooch/DougHub-sub001/internal/fixture"
)

// DefaultCacheSize is the number of parsed entries kept in memory.
const DefaultCacheSize = 128

var (
	// ErrStoreNotFound is returned when the golden directory does not exist.
	ErrStoreNotFound = errors.New("golden directory not found")

	// ErrEntryNotFound is returned when a named entry does not exist.
	ErrEntryNotFound = errors.New("golden entry not found")

	// ErrInvalidEntry is returned when an entry file cannot be decoded.
	ErrInvalidEntry = errors.New("invalid golden entry")
)

// Entry is one hand-verified expected extraction.
type Entry struct {
	Description         string `json:"description"`
	Source              string `json:"source"`
	RawHTML             string `json:"raw_html"`
	ExpectedContextHTML string `json:"expected_context_html"`
	ExpectedStemHTML    string `json:"expected_stem_html"`

	// Name is the file name the entry was read from.
	Name string `json:"-"`
}

// IsStale reports whether the entry was captured from different bytes than
// the fixture with the given digest.
func (e Entry) IsStale(h fixture.Hasher, digest string) bool {
	if e.RawHTML == "" {
		return false
	}
	return h.Digest([]byte(e.RawHTML)) != strings.ToLower(strings.TrimSpace(digest))
}

// Store is a read-only golden corpus.
type Store struct {
	dir      string
	files    map[string]bool
	bySource map[string]string
	byBase   map[string]string
	cache    *lru.Cache[string, Entry]
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	cacheSize int
	logger    *slog.Logger
}

// WithCacheSize sets how many parsed entries are kept in memory.
func WithCacheSize(n int) Option {
	return func(o *storeOptions) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(o *storeOptions) {
		o.logger = logger
	}
}

// Open indexes the *.json entries in dir.
func Open(dir string, opts ...Option) (*Store, error) {
	o := storeOptions{cacheSize: DefaultCacheSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, dir)
		}
		return nil, fmt.Errorf("failed to stat golden directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrStoreNotFound, dir)
	}

	cache, err := lru.New[string, Entry](o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create golden cache: %w", err)
	}

	s := &Store{
		dir:      dir,
		files:    make(map[string]bool),
		bySource: make(map[string]string),
		byBase:   make(map[string]string),
		cache:    cache,
		logger:   o.logger,
	}
	if err := s.index(); err != nil {
		return nil, err
	}
	return s, nil
}

// index records every entry's file name and source reference.
func (s *Store) index() error {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to list golden directory: %w", err)
	}
	slices.Sort(matches)

	for _, p := range matches {
		name := filepath.Base(p)
		data, err := os.ReadFile(p) //nolint:gosec // path comes from Glob over the configured directory
		if err != nil {
			return fmt.Errorf("failed to read golden entry %s: %w", name, err)
		}
		var head struct {
			Source string `json:"source"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidEntry, name, err)
		}

		s.files[name] = true
		if head.Source == "" {
			continue
		}
		if prev, dup := s.bySource[head.Source]; dup {
			s.logger.Warn("golden source referenced twice", "source", head.Source, "kept", prev, "ignored", name)
			continue
		}
		s.bySource[head.Source] = name
		s.byBase[baseName(head.Source)] = name
	}
	return nil
}

// Dir returns the directory the store was opened on.
func (s *Store) Dir() string {
	return s.dir
}

// Len returns the number of indexed entries.
func (s *Store) Len() int {
	return len(s.files)
}

// Names returns the indexed file names, sorted.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.files))
	for n := range s.files {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Get returns the entry stored in the named file.
func (s *Store) Get(name string) (*Entry, error) {
	if !s.files[name] {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	if e, ok := s.cache.Get(name); ok {
		return &e, nil
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name)) //nolint:gosec // name is an indexed entry
	if err != nil {
		return nil, fmt.Errorf("failed to read golden entry %s: %w", name, err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidEntry, name, err)
	}
	e.Name = name
	s.cache.Add(name, e)
	return &e, nil
}

// Lookup finds the entry for f: the entry named by f.Golden, else the entry
// whose source matches f.Origin exactly or by file name, else the entry
// named after f.ID. It returns nil, nil when the fixture has no entry.
func (s *Store) Lookup(f fixture.RawFixture) (*Entry, error) {
	if f.Golden != "" {
		return s.Get(f.Golden)
	}
	if f.Origin != "" {
		if name, ok := s.bySource[f.Origin]; ok {
			return s.Get(name)
		}
		if name, ok := s.byBase[baseName(f.Origin)]; ok {
			return s.Get(name)
		}
	}
	if name := f.ID + ".json"; s.files[name] {
		return s.Get(name)
	}
	return nil, nil
}

// baseName returns the last element of a slash- or backslash-separated path.
func baseName(ref string) string {
	return path.Base(strings.ReplaceAll(ref, `\`, "/"))
}

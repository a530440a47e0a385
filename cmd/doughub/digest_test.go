package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Dogebooch/DougHub-sub001/internal/fixture"
)

// writeCorpus creates a two-fixture corpus whose second digest is missing.
func writeCorpus(t *testing.T, firstDigest string) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"one.html": "<html><body><p>One</p></body></html>",
		"two.html": "<html><body><p>Two</p></body></html>",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}
	}

	manifest := "hash_algorithm: sha256\nfixtures:\n" +
		"  - id: one\n    file: one.html\n    digest: " + firstDigest + "\n" +
		"  - id: two\n    file: two.html\n"
	path := filepath.Join(dir, fixture.DefaultManifestFile)
	if err := os.WriteFile(path, []byte(manifest), 0600); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

func runDigest(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewDigestCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// TestNewDigestCmd tests the digest command creation.
func TestNewDigestCmd(t *testing.T) {
	t.Parallel()

	cmd := NewDigestCmd()
	if cmd.Use != "digest" {
		t.Errorf("expected use 'digest', got %q", cmd.Use)
	}
	for flag, shorthand := range map[string]string{"manifest": "M", "write": "w"} {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			t.Errorf("expected flag %q to exist", flag)
			continue
		}
		if f.Shorthand != shorthand {
			t.Errorf("flag %q: expected shorthand %q, got %q", flag, shorthand, f.Shorthand)
		}
	}
}

// TestRunDigestCmd tests digest checking and recording.
func TestRunDigestCmd(t *testing.T) {
	t.Parallel()

	oneDigest := fixture.Digest([]byte("<html><body><p>One</p></body></html>"))

	t.Run("reports ok and missing", func(t *testing.T) {
		t.Parallel()

		path := writeCorpus(t, oneDigest)
		out, err := runDigest(t, "-M", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "one") || !strings.Contains(out, digestOK) {
			t.Errorf("expected ok state for fixture one, got:\n%s", out)
		}
		if !strings.Contains(out, digestMissing) {
			t.Errorf("expected missing state for fixture two, got:\n%s", out)
		}
	})

	t.Run("fails on drift", func(t *testing.T) {
		t.Parallel()

		path := writeCorpus(t, strings.Repeat("a", 64))
		out, err := runDigest(t, "-M", path)
		if !errors.Is(err, errDigestDrift) {
			t.Fatalf("expected errDigestDrift, got %v", err)
		}
		if !strings.Contains(out, digestDrift) {
			t.Errorf("expected drift state in output, got:\n%s", out)
		}
	})

	t.Run("write records digests", func(t *testing.T) {
		t.Parallel()

		path := writeCorpus(t, strings.Repeat("a", 64))
		out, err := runDigest(t, "-M", filepath.Dir(path), "--write")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Recorded 2 digest(s)") {
			t.Errorf("expected two recorded digests, got:\n%s", out)
		}

		m, err := fixture.LoadManifest(path)
		if err != nil {
			t.Fatalf("failed to reload manifest: %v", err)
		}
		if m.Fixtures[0].Digest != oneDigest {
			t.Errorf("expected digest %s, got %s", oneDigest, m.Fixtures[0].Digest)
		}

		if _, err := runDigest(t, "-M", path); err != nil {
			t.Errorf("expected clean check after write, got %v", err)
		}
	})
}

// TestShort tests digest abbreviation.
func TestShort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{input: "", want: "-"},
		{input: "abc", want: "abc"},
		{input: strings.Repeat("f", 64), want: strings.Repeat("f", 12)},
	}
	for _, tt := range tests {
		if got := short(tt.input); got != tt.want {
			t.Errorf("short(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/Dogebooch/DougHub-sub001/internal/config"
)

// TestNewInitCmd tests the init command flags.
func TestNewInitCmd(t *testing.T) {
	t.Parallel()

	cmd := NewInitCmd()
	if cmd.Use != "init" {
		t.Errorf("expected use 'init', got %q", cmd.Use)
	}

	tests := []struct {
		flag      string
		shorthand string
		def       string
	}{
		{flag: "output", shorthand: "o", def: config.DefaultConfigFile},
		{flag: "force", shorthand: "f", def: "false"},
	}
	for _, tt := range tests {
		f := cmd.Flags().Lookup(tt.flag)
		if f == nil {
			t.Errorf("expected flag %q to exist", tt.flag)
			continue
		}
		if f.Shorthand != tt.shorthand {
			t.Errorf("flag %q: expected shorthand %q, got %q", tt.flag, tt.shorthand, f.Shorthand)
		}
		if f.DefValue != tt.def {
			t.Errorf("flag %q: expected default %q, got %q", tt.flag, tt.def, f.DefValue)
		}
	}
}

func runInit(t *testing.T, args ...string) error {
	t.Helper()

	cmd := NewInitCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs(args)
	return cmd.Execute()
}

// TestRunInitCmd tests writing the configuration template.
func TestRunInitCmd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		relPath  string
		existing string
		force    bool
		wantErr  string
	}{
		{name: "new file", relPath: config.DefaultConfigFile},
		{name: "nested directories", relPath: filepath.Join("a", "b", config.DefaultConfigFile)},
		{name: "existing file kept", relPath: config.DefaultConfigFile, existing: "manifest: mine.yaml\n", wantErr: "already exists"},
		{name: "existing file forced", relPath: config.DefaultConfigFile, existing: "manifest: mine.yaml\n", force: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), tt.relPath)
			if tt.existing != "" {
				if err := os.WriteFile(path, []byte(tt.existing), 0600); err != nil {
					t.Fatalf("failed to seed file: %v", err)
				}
			}

			args := []string{"-o", path}
			if tt.force {
				args = append(args, "-f")
			}
			err := runInit(t, args...)

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				content, _ := os.ReadFile(path) //nolint:errcheck // checked by content comparison
				if string(content) != tt.existing {
					t.Error("expected existing file to be left alone")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			content, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("expected config file: %v", err)
			}
			if !strings.Contains(string(content), "platforms:") {
				t.Errorf("expected template content, got %q", content)
			}

			if runtime.GOOS != "windows" {
				info, err := os.Stat(path)
				if err != nil {
					t.Fatalf("stat: %v", err)
				}
				if perm := info.Mode().Perm(); perm != 0600 {
					t.Errorf("expected permissions 0600, got %o", perm)
				}
			}
		})
	}
}

// TestConfigTemplate tests that the embedded template is a valid configuration.
func TestConfigTemplate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), config.DefaultConfigFile)
	if err := runInit(t, "-o", path); err != nil {
		t.Fatalf("init: %v", err)
	}

	cf, err := config.LoadConfigFile(path)
	if err != nil {
		t.Fatalf("expected template to parse: %v", err)
	}
	if err := cf.Validate(); err != nil {
		t.Errorf("expected template to validate: %v", err)
	}
	if cf.Concurrency != config.DefaultConcurrency {
		t.Errorf("expected concurrency %d, got %d", config.DefaultConcurrency, cf.Concurrency)
	}
	if cf.PersistenceTimeout != config.DefaultPersistenceTimeout {
		t.Errorf("expected timeout %v, got %v", config.DefaultPersistenceTimeout, cf.PersistenceTimeout)
	}
	if cf.Defaults.MinSharedRun != 4 {
		t.Errorf("expected min_shared_run 4, got %d", cf.Defaults.MinSharedRun)
	}
}

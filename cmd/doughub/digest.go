package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Dogebooch/DougHub-sub001/internal/config"
	"github.com/Dogebooch/DougHub-sub001/internal/fixture"
)

// Digest states reported by the digest command.
const (
	digestOK      = "ok"
	digestDrift   = "drift"
	digestMissing = "missing"
)

// errDigestDrift is returned when at least one fixture no longer matches its
// recorded digest.
var errDigestDrift = errors.New("fixture digests do not match the manifest")

// NewDigestCmd creates the digest command.
func NewDigestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Show or record fixture digests",
		Long: `Digest recomputes the digest of every fixture in the manifest and compares it
with the recorded one. Fixtures are immutable; a drifted digest means the file
was edited after capture.

Use --write only when a fixture was intentionally re-captured. It rewrites the
digests in the manifest.

Examples:
  # Check every fixture against the manifest
  doughub digest

  # Record digests after adding new fixtures
  doughub digest --write`,
		Args: cobra.NoArgs,
		RunE: runDigestCmd,
	}

	cmd.Flags().StringP("manifest", "M", config.DefaultManifestPath,
		"Fixture manifest file or directory containing fixtures.yaml")
	cmd.Flags().BoolP("write", "w", false,
		"Record the computed digests in the manifest")

	return cmd
}

// runDigestCmd executes the digest command.
func runDigestCmd(cmd *cobra.Command, _ []string) error {
	manifestPath, err := cmd.Flags().GetString("manifest")
	if err != nil {
		return err
	}
	write, err := cmd.Flags().GetBool("write")
	if err != nil {
		return err
	}

	manifest, err := fixture.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if write {
		return recordDigests(out, manifest, manifestPath)
	}
	return checkDigests(out, manifest)
}

// digestStatus is the state of one fixture digest.
type digestStatus struct {
	ID       string
	Recorded string
	Computed string
	State    string
}

// computeDigests compares recorded and computed digests for each fixture.
func computeDigests(manifest *fixture.Manifest) ([]digestStatus, error) {
	hasher, err := manifest.Hasher()
	if err != nil {
		return nil, err
	}
	fixtures, err := manifest.Load()
	if err != nil {
		return nil, err
	}

	statuses := make([]digestStatus, 0, len(fixtures))
	for _, f := range fixtures {
		s := digestStatus{
			ID:       f.ID,
			Recorded: f.RecordedDigest,
			Computed: hasher.Digest(f.Raw()),
		}
		switch err := hasher.Verify(f); {
		case err == nil:
			s.State = digestOK
		case errors.Is(err, fixture.ErrNoRecordedDigest):
			s.State = digestMissing
		default:
			s.State = digestDrift
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

// checkDigests prints the digest table and fails on drift.
func checkDigests(out io.Writer, manifest *fixture.Manifest) error {
	statuses, err := computeDigests(manifest)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "  %-24s  %-8s  %-14s  %s\n", "Fixture", "State", "Recorded", "Computed")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 66))

	var drifted []string
	for _, s := range statuses {
		fmt.Fprintf(out, "  %-24s  %-8s  %-14s  %s\n", s.ID, s.State, short(s.Recorded), short(s.Computed))
		if s.State == digestDrift {
			drifted = append(drifted, s.ID)
		}
	}

	if len(drifted) > 0 {
		return fmt.Errorf("%w: %s", errDigestDrift, strings.Join(drifted, ", "))
	}
	return nil
}

// recordDigests writes the computed digests back to the manifest file.
func recordDigests(out io.Writer, manifest *fixture.Manifest, manifestPath string) error {
	changed, err := manifest.Record()
	if err != nil {
		return err
	}

	path := manifestPath
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, fixture.DefaultManifestFile)
	}
	if err := manifest.Save(path); err != nil {
		return err
	}

	if len(changed) == 0 {
		fmt.Fprintln(out, "All digests already up to date.")
		return nil
	}
	fmt.Fprintf(out, "Recorded %d digest(s) in %s:\n", len(changed), path)
	for _, id := range changed {
		fmt.Fprintf(out, "  • %s\n", id)
	}
	return nil
}

func short(digest string) string {
	if digest == "" {
		return "-"
	}
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

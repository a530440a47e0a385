package fixture

import (
	"fmt"
	"strings"
)

// Platform identifies the question platform a fixture was scraped from.
// Each platform has its own markup conventions and therefore its own
// region-location strategy.
type Platform string

const (
	// PlatformUnknown means the manifest did not tag the fixture.
	// The locator falls back to structural detection.
	PlatformUnknown Platform = ""
	// PlatformMKSAP is the static server-rendered MKSAP question markup.
	PlatformMKSAP Platform = "mksap"
	// PlatformACEP is the Angular-rendered ACEP PeerPrep single-page app.
	PlatformACEP Platform = "acep"
	// PlatformGeneric covers any other page with a paragraph stem followed by a list.
	PlatformGeneric Platform = "generic"
)

// String returns the platform tag, or "unknown" for an untagged fixture.
func (p Platform) String() string {
	if p == PlatformUnknown {
		return "unknown"
	}
	return string(p)
}

// IsValid reports whether p names a known platform.
func (p Platform) IsValid() bool {
	switch p {
	case PlatformMKSAP, PlatformACEP, PlatformGeneric:
		return true
	default:
		return false
	}
}

// ParsePlatform converts a manifest tag into a Platform.
// Matching is case-insensitive; "peerprep" is accepted as an alias for ACEP.
// An empty tag yields PlatformUnknown without error.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return PlatformUnknown, nil
	case "mksap":
		return PlatformMKSAP, nil
	case "acep", "peerprep", "acep_peerprep":
		return PlatformACEP, nil
	case "generic":
		return PlatformGeneric, nil
	default:
		return PlatformUnknown, fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
	}
}

package fixture

import (
	"path"
	"strings"
	"time"
)

// RawFixture is a captured HTML page used as pipeline input.
// The content is fixed at construction; Raw returns a copy so no caller
// can mutate the bytes the digest was computed over.
type RawFixture struct {
	// ID names the fixture in reports. It defaults to the base name of the file.
	ID string

	// Platform selects the region-location strategy.
	Platform Platform

	// Origin is the provenance string, usually the original capture filename or URL.
	Origin string

	// RecordedDigest is the digest stored in the manifest when the fixture was captured.
	RecordedDigest string

	// ExpectMalformed marks fixtures that are deliberately broken.
	// A Stage B failure on such a fixture is an expected outcome.
	ExpectMalformed bool

	// Golden optionally names the golden-set entry for this fixture.
	Golden string

	raw []byte
}

// New creates a RawFixture over a private copy of raw.
func New(id string, raw []byte, platform Platform, origin string) RawFixture {
	buf := make([]byte, len(raw))
	copy(buf, raw)
	return RawFixture{
		ID:       id,
		Platform: platform,
		Origin:   origin,
		raw:      buf,
	}
}

// Raw returns a copy of the fixture content.
func (f RawFixture) Raw() []byte {
	buf := make([]byte, len(f.raw))
	copy(buf, f.raw)
	return buf
}

// Size returns the content length in bytes.
func (f RawFixture) Size() int {
	return len(f.raw)
}

// Provenance is the information encoded in a capture filename of the form
// YYYYMMDD_HHMMSS_Source_Key.ext, e.g. 20251116_150929_MKSAP_19_0.html.
type Provenance struct {
	// Source is everything between the timestamp and the key ("MKSAP_19").
	Source string
	// Key is the last underscore-separated part without extension ("0").
	Key string
	// CapturedAt is the capture time, zero when the timestamp does not parse.
	CapturedAt time.Time
}

// captureLayout is the timestamp layout used in capture filenames.
const captureLayout = "20060102_150405"

// ParseOrigin extracts provenance from an origin reference.
// Only the last path element is considered, so both plain filenames and
// URLs work. ok is false when the name does not follow the capture format.
func ParseOrigin(origin string) (p Provenance, ok bool) {
	name := path.Base(strings.ReplaceAll(origin, "\\", "/"))
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSuffix(name, path.Ext(name))

	parts := strings.Split(name, "_")
	if len(parts) < 4 {
		return Provenance{}, false
	}

	remaining := parts[2:]
	p.Key = remaining[len(remaining)-1]
	p.Source = strings.Join(remaining[:len(remaining)-1], "_")
	if p.Key == "" || p.Source == "" {
		return Provenance{}, false
	}

	if t, err := time.Parse(captureLayout, parts[0]+"_"+parts[1]); err == nil {
		p.CapturedAt = t
	}
	return p, true
}

package htmldoc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrMalformedInput is returned when the input is empty or is not text.
// Tolerated defects such as unclosed tags never produce this error.
var ErrMalformedInput = errors.New("malformed input")

// maxBinaryRatio is the share of NUL or undecodable bytes above which the
// input is treated as binary rather than damaged text.
const maxBinaryRatio = 0.3

// Document is a normalized HTML document owned by a single pipeline run.
type Document struct {
	root     *html.Node
	dom      *goquery.Document
	warnings []string
}

// Root returns the document node of the parsed tree.
func (d *Document) Root() *html.Node {
	return d.root
}

// Query returns a goquery view over the tree for selector-based lookups.
func (d *Document) Query() *goquery.Document {
	return d.dom
}

// Warnings returns the tolerated defects found while normalizing.
func (d *Document) Warnings() []string {
	out := make([]string, len(d.warnings))
	copy(out, d.warnings)
	return out
}

// ParseWarnings returns the number of tolerated defects.
func (d *Document) ParseWarnings() int {
	return len(d.warnings)
}

// Text returns the whitespace-collapsed visible text of the body.
func (d *Document) Text() string {
	body := d.dom.Find("body")
	body = body.Clone()
	body.Find("script, style, template, noscript").Remove()
	return strings.Join(strings.Fields(body.Text()), " ")
}

// IsEmpty reports whether the body holds neither text nor images.
func (d *Document) IsEmpty() bool {
	if d.Text() != "" {
		return false
	}
	return d.dom.Find("body img[src]").Length() == 0
}

// Normalize parses raw into a Document. It fails only when raw is empty,
// whitespace, or binary; every other defect becomes a parse warning.
func Normalize(raw []byte) (*Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: input is empty", ErrMalformedInput)
	}
	if !looksLikeText(raw) {
		return nil, fmt.Errorf("%w: input is not text", ErrMalformedInput)
	}

	clean, warnings := sanitize(raw)
	warnings = append(warnings, structuralWarnings(clean)...)

	root, err := html.Parse(strings.NewReader(clean))
	if err != nil {
		// html.Parse only fails on reader errors, which a strings.Reader never returns.
		return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	warnings = append(warnings, emptyElementWarnings(root)...)

	return &Document{
		root:     root,
		dom:      goquery.NewDocumentFromNode(root),
		warnings: warnings,
	}, nil
}

// looksLikeText rejects input dominated by NUL or undecodable bytes.
func looksLikeText(raw []byte) bool {
	bad := 0
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		if r == 0 || (r == utf8.RuneError && size == 1) {
			bad++
		}
		i += size
	}
	return float64(bad)/float64(len(raw)) <= maxBinaryRatio
}

// sanitize drops invalid UTF-8 runs and disallowed control characters.
// Each contiguous run of dropped bytes counts as one warning.
func sanitize(raw []byte) (string, []string) {
	var (
		sb       strings.Builder
		warnings []string
		invalid  int
		control  int
		offset   int
	)

	flush := func() {
		if invalid > 0 {
			warnings = append(warnings, fmt.Sprintf("skipped %d invalid byte(s) at offset %d", invalid, offset))
			invalid = 0
		}
		if control > 0 {
			warnings = append(warnings, fmt.Sprintf("dropped %d control character(s) at offset %d", control, offset))
			control = 0
		}
	}

	sb.Grow(len(raw))
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			if invalid == 0 && control == 0 {
				offset = i
			}
			invalid++
		case isDisallowedControl(r):
			if invalid == 0 && control == 0 {
				offset = i
			}
			control++
		default:
			flush()
			sb.WriteRune(r)
		}
		i += size
	}
	flush()

	return sb.String(), warnings
}

// isDisallowedControl reports C0/C1 controls other than tab, newline,
// carriage return and form feed.
func isDisallowedControl(r rune) bool {
	switch r {
	case '\t', '\n', '\r', '\f':
		return false
	}
	return r < 0x20 || (r >= 0x7f && r <= 0x9f)
}

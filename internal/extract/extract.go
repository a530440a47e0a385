// Package extract assembles QuestionRecords from located regions.
//
// Fragments keep their inner markup verbatim; only whitespace runs are
// collapsed and ends trimmed. Choices keep document order because some
// platforms shuffle label assignment. Correctness and peer statistics are
// recorded only when the page shows them.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/Dogebooch/DougHub-sub001/internal/fixture"
	"github.com/Dogebooch/DougHub-sub001/internal/htmldoc"
	"github.com/Dogebooch/DougHub-sub001/internal/locate"
	"github.com/Dogebooch/DougHub-sub001/internal/model"
	"github.com/Dogebooch/DougHub-sub001/internal/textnorm"
)

// Metadata keys written by the engine.
const (
	MetaFixture         = "fixture_id"
	MetaPlatform        = "platform"
	MetaOrigin          = "origin"
	MetaDigest          = "digest"
	MetaParseWarnings   = "parse_warnings"
	MetaExplanationHTML = "explanation_html"
	MetaSource          = "source"
	MetaSourceKey       = "source_key"
	MetaCapturedAt      = "captured_at"
)

var (
	peerPattern          = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	correctAnswerPattern = regexp.MustCompile(`(?i)correct\s+answer\s*:\s*\(?([a-z])\b`)
)

// Engine turns a normalized document into a QuestionRecord.
type Engine struct {
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an extraction engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RecordID derives the stable record id of a fixture from its id and digest.
func RecordID(fixtureID, digest string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("doughub:"+fixtureID+":"+digest)).String()
}

// Extract builds the record for f from doc. digest is the fixture's content
// digest. When the stem cannot be located, the partial record is returned
// along with an error wrapping locate.ErrRegionNotFound.
func (e *Engine) Extract(doc *htmldoc.Document, f fixture.RawFixture, digest string) (model.QuestionRecord, error) {
	regions, locErr := locate.Locate(doc, f.Platform)
	if regions == nil {
		return model.QuestionRecord{}, fmt.Errorf("failed to locate regions: %w", locErr)
	}

	rec := model.QuestionRecord{
		ID:        RecordID(f.ID, digest),
		ImageRefs: []string{},
		Metadata:  metadata(doc, f, digest, regions),
	}

	if regions.Stem != nil {
		rec.StemHTML = renderOuter(regions.Stem)
	}
	blocks := make([]string, 0, len(regions.Context))
	for _, n := range regions.Context {
		if s := renderOuter(n); s != "" {
			blocks = append(blocks, s)
		}
	}
	rec.ContextHTML = strings.Join(blocks, "\n")
	rec.AnswerChoices = choices(regions)
	rec.ImageRefs = resolveImages(doc, f.Origin, regions.Images)

	e.logger.Debug("extracted record",
		"fixture", f.ID,
		"platform", regions.Platform.String(),
		"choices", len(rec.AnswerChoices),
		"images", len(rec.ImageRefs),
		"stem_found", regions.Stem != nil,
	)

	if locErr != nil {
		return rec, fmt.Errorf("partial extraction: %w", locErr)
	}
	return rec, nil
}

// IsRegionNotFound reports whether err came from a missing region.
func IsRegionNotFound(err error) bool {
	return errors.Is(err, locate.ErrRegionNotFound)
}

func metadata(doc *htmldoc.Document, f fixture.RawFixture, digest string, r *locate.Regions) map[string]string {
	meta := map[string]string{
		MetaFixture:       f.ID,
		MetaPlatform:      r.Platform.String(),
		MetaDigest:        digest,
		MetaParseWarnings: strconv.Itoa(doc.ParseWarnings()),
	}
	if f.Origin != "" {
		meta[MetaOrigin] = f.Origin
	}
	if r.Explanation != nil {
		meta[MetaExplanationHTML] = renderInner(r.Explanation, nil)
	}
	if p, ok := fixture.ParseOrigin(f.Origin); ok {
		meta[MetaSource] = p.Source
		meta[MetaSourceKey] = p.Key
		meta[MetaCapturedAt] = p.CapturedAt.Format(time.RFC3339)
	}
	return meta
}

func choices(r *locate.Regions) []model.AnswerChoice {
	out := make([]model.AnswerChoice, 0, len(r.Choices))
	marked := false
	for i, c := range r.Choices {
		omit := make(map[*html.Node]bool, len(c.Omit))
		for _, n := range c.Omit {
			omit[n] = true
		}

		choice := model.AnswerChoice{
			Label: c.Label,
			Text:  renderInner(c.Body, omit),
		}
		if choice.Label == "" {
			choice.Label = positionalLabel(i)
		}
		if m := peerPattern.FindStringSubmatch(c.Peer); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				choice.PeerPercentage = model.Float64(v)
			}
		}
		switch {
		case c.Correct:
			choice.IsCorrect = model.Bool(true)
			marked = true
		case c.Incorrect:
			choice.IsCorrect = model.Bool(false)
		}
		out = append(out, choice)
	}

	if !marked && r.Explanation != nil {
		if m := correctAnswerPattern.FindStringSubmatch(textnorm.Text(renderInner(r.Explanation, nil))); m != nil {
			label := strings.ToUpper(m[1])
			for i := range out {
				if out[i].Label == label {
					out[i].IsCorrect = model.Bool(true)
				}
			}
		}
	}
	return out
}

// positionalLabel returns A, B, ... Z, then AA, AB, ...
func positionalLabel(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return positionalLabel(i/26-1) + string(rune('A'+i%26))
}

// resolveImages resolves refs against the document's <base href> or, failing
// that, an absolute-URL origin, and removes duplicates.
func resolveImages(doc *htmldoc.Document, origin string, refs []string) []string {
	base := baseURL(doc, origin)
	seen := make(map[string]bool, len(refs))
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if base != nil {
			if u, err := url.Parse(ref); err == nil {
				ref = base.ResolveReference(u).String()
			}
		}
		if !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}
	return out
}

func baseURL(doc *htmldoc.Document, origin string) *url.URL {
	var originURL *url.URL
	if u, err := url.Parse(origin); err == nil && u.IsAbs() && (u.Scheme == "http" || u.Scheme == "https") {
		originURL = u
	}

	href, ok := doc.Query().Find("base[href]").First().Attr("href")
	if !ok {
		return originURL
	}
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return originURL
	}
	if u.IsAbs() {
		return u
	}
	if originURL != nil {
		return originURL.ResolveReference(u)
	}
	return nil
}

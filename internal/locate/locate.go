// Package locate finds the question regions of a normalized document.
//
// Each source platform marks up questions differently, so location is a
// Strategy selected by platform tag. Static-markup pages are located by
// structural position. Client-rendered pages are located by component-root
// markers (custom element names and data attributes), never by generated
// class names, which change between builds.
package locate

import (
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/Dogebooch/DougHub-sub001/internal/fixture"
	"github.com/Dogebooch/DougHub-sub001/internal/htmldoc"
)

// ErrRegionNotFound is returned when a required region, the stem, is
// missing. The partial Regions located so far are returned with it.
var ErrRegionNotFound = errors.New("region not found")

// Regions holds the subtrees located for one question.
// Nodes belong to the document they were located in.
type Regions struct {
	// Platform is the strategy that produced the regions.
	Platform fixture.Platform

	// Context holds the blocks preceding the stem, in document order.
	Context []*html.Node

	// Stem is the question block; nil when it could not be located.
	Stem *html.Node

	// Choices are in document order.
	Choices []ChoiceRegion

	// Explanation is the answer discussion shown in feedback state, if any.
	Explanation *html.Node

	// Images holds raw image references as they appear in the markup.
	Images []string
}

// ChoiceRegion is one located answer choice.
type ChoiceRegion struct {
	// Root is the outermost node of the choice.
	Root *html.Node

	// Body is the node whose children make up the choice text.
	Body *html.Node

	// Omit lists nodes inside Body that are not part of the text, such as
	// the label bubble or the peer statistics.
	Omit []*html.Node

	// Label is the label shown by the page, or empty when it shows none.
	Label string

	// Peer is the raw peer statistic text, or empty.
	Peer string

	// Correct is true when the page marks this choice as the answer.
	Correct bool

	// Incorrect is true when the page marks this choice as wrong.
	Incorrect bool
}

// Strategy locates regions for one platform's markup conventions.
type Strategy interface {
	// Name returns the platform the strategy handles.
	Name() fixture.Platform

	// Stem returns the question stem block, or nil.
	Stem(doc *goquery.Document) *html.Node

	// Context returns the blocks preceding stem inside the question.
	Context(doc *goquery.Document, stem *html.Node) []*html.Node

	// Choices returns the answer choices in document order.
	Choices(doc *goquery.Document) []ChoiceRegion

	// Explanation returns the feedback explanation block, or nil.
	Explanation(doc *goquery.Document) *html.Node

	// Images returns image references from the question regions.
	Images(doc *goquery.Document, r *Regions) []string
}

// For returns the strategy for platform. Platforms without a dedicated
// strategy get the generic one.
func For(platform fixture.Platform) Strategy {
	switch platform {
	case fixture.PlatformMKSAP:
		return MKSAP{}
	case fixture.PlatformACEP:
		return ACEP{}
	default:
		return Generic{}
	}
}

// Detect guesses the platform from component markers in the document.
func Detect(doc *goquery.Document) fixture.Platform {
	switch {
	case doc.Find(acepStemRoots+", div.questionStem").Length() > 0:
		return fixture.PlatformACEP
	case doc.Find("section.q_info, section.q_mcq").Length() > 0:
		return fixture.PlatformMKSAP
	default:
		return fixture.PlatformGeneric
	}
}

// Locate runs the strategy for platform over doc. An unknown platform is
// detected from the markup. When the stem cannot be found the partial
// regions are returned together with ErrRegionNotFound.
func Locate(doc *htmldoc.Document, platform fixture.Platform) (*Regions, error) {
	q := doc.Query()
	if !platform.IsValid() {
		platform = Detect(q)
	}
	s := For(platform)

	r := &Regions{
		Platform:    s.Name(),
		Choices:     s.Choices(q),
		Explanation: s.Explanation(q),
		Stem:        s.Stem(q),
	}
	if r.Stem != nil {
		r.Context = s.Context(q, r.Stem)
	}
	r.Images = s.Images(q, r)

	if r.Stem == nil {
		return r, fmt.Errorf("%w: no stem in %s markup", ErrRegionNotFound, s.Name())
	}
	return r, nil
}

package locate

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/Dogebooch/DougHub-sub001/internal/fixture"
)

// MKSAP selectors. The question block holds the vignette paragraphs and the
// stem; choices and the answer discussion are sibling sections.
const (
	mksapQuestion    = "section.q_info, div.question-content"
	mksapChoiceBlock = "section.q_mcq"
	mksapChoice      = "section.q_mcq div.option"
	mksapLabel       = "div.bubble, span.letter"
	mksapText        = "span.answer-text, span.text"
	mksapPeer        = "div.stats, div.peer"
	mksapExplanation = "section.answer, div.exposition"
	mksapCorrect     = "r_a"
	mksapIncorrect   = "r_w"
)

// MKSAP locates regions in static MKSAP question pages by structural position.
type MKSAP struct{}

// Name implements Strategy.
func (MKSAP) Name() fixture.Platform { return fixture.PlatformMKSAP }

// Stem implements Strategy.
func (MKSAP) Stem(doc *goquery.Document) *html.Node {
	question := doc.Find(mksapQuestion).First()
	if question.Length() == 0 {
		return nil
	}
	return pickStem(question, mksapChoiceBlock+", div.option")
}

// Context implements Strategy.
func (MKSAP) Context(doc *goquery.Document, stem *html.Node) []*html.Node {
	container := first(doc.Find(mksapQuestion))
	return precedingBlocks(stem, container, func(n *html.Node) bool {
		return matches(doc, n, mksapChoiceBlock+", div.option, "+mksapExplanation)
	})
}

// Choices implements Strategy.
func (MKSAP) Choices(doc *goquery.Document) []ChoiceRegion {
	var choices []ChoiceRegion
	doc.Find(mksapChoice).Each(func(_ int, s *goquery.Selection) {
		c := ChoiceRegion{
			Root:      s.Get(0),
			Body:      s.Get(0),
			Correct:   s.HasClass(mksapCorrect),
			Incorrect: s.HasClass(mksapIncorrect),
		}

		if label := s.Find(mksapLabel).First(); label.Length() > 0 {
			c.Label = cleanLabel(label.Text())
			c.Omit = append(c.Omit, label.Get(0))
		}
		if peer := s.Find(mksapPeer).First(); peer.Length() > 0 {
			c.Peer = peer.Text()
			c.Omit = append(c.Omit, peer.Get(0))
		}
		if text := s.Find(mksapText).First(); text.Length() > 0 {
			c.Body = text.Get(0)
		}
		choices = append(choices, c)
	})
	return choices
}

// Explanation implements Strategy.
func (MKSAP) Explanation(doc *goquery.Document) *html.Node {
	return first(doc.Find(mksapExplanation))
}

// Images implements Strategy.
func (MKSAP) Images(_ *goquery.Document, r *Regions) []string {
	return regionImages(r)
}

package locate

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/Dogebooch/DougHub-sub001/internal/fixture"
)

// ACEP PeerPrep is an Angular application. Component roots (custom
// elements and data-component attributes) are stable across builds; the
// _ngcontent-* attributes and ng-* classes are not and are never matched.
// The plain class hooks below have survived every captured build and serve
// as fallbacks for pages rendered without component wrappers.
const (
	acepStemRoots    = `app-question-stem, [data-component="question-stem"]`
	acepStemHook     = "div.questionStem"
	acepChoiceRoots  = `app-answer-choice, [data-component="answer-choice"]`
	acepChoiceHook   = "div.choices li.paper-shadow"
	acepChoiceList   = "div.choices li"
	acepLabel        = ".choice-letter, .letter"
	acepPeer         = ".peer-percent"
	acepExplanation  = `app-explanation, [data-component="explanation"], div.exam-reasoning, div.reasoning`
	acepCorrectClass = "correct"
	acepWrongClass   = "incorrect"
)

// ACEP locates regions in ACEP PeerPrep pages by component-root markers.
type ACEP struct{}

// Name implements Strategy.
func (ACEP) Name() fixture.Platform { return fixture.PlatformACEP }

func (ACEP) stemRoot(doc *goquery.Document) *goquery.Selection {
	if root := doc.Find(acepStemRoots).First(); root.Length() > 0 {
		if inner := root.Find(acepStemHook).First(); inner.Length() > 0 {
			return inner
		}
		return root
	}
	return doc.Find(acepStemHook).First()
}

// Stem implements Strategy.
func (a ACEP) Stem(doc *goquery.Document) *html.Node {
	root := a.stemRoot(doc)
	if root.Length() == 0 {
		return nil
	}
	return pickStem(root, "")
}

// Context implements Strategy.
func (a ACEP) Context(doc *goquery.Document, stem *html.Node) []*html.Node {
	return precedingBlocks(stem, first(a.stemRoot(doc)), nil)
}

// Choices implements Strategy.
func (ACEP) Choices(doc *goquery.Document) []ChoiceRegion {
	sel := doc.Find(acepChoiceRoots)
	if sel.Length() == 0 {
		sel = doc.Find(acepChoiceHook)
	}
	if sel.Length() == 0 {
		sel = doc.Find(acepChoiceList)
	}

	var choices []ChoiceRegion
	sel.Each(func(_ int, s *goquery.Selection) {
		c := ChoiceRegion{
			Root: s.Get(0),
			Body: s.Get(0),
			Correct: s.HasClass(acepCorrectClass) ||
				s.Closest("li").HasClass(acepCorrectClass) ||
				s.AttrOr("data-correct", "") == "true",
			Incorrect: s.HasClass(acepWrongClass) ||
				s.Closest("li").HasClass(acepWrongClass) ||
				s.AttrOr("data-correct", "") == "false",
		}

		if body := s.Find("label").First(); body.Length() > 0 {
			c.Body = body.Get(0)
		}
		labelNode := s.Find(acepLabel).First()
		if labelNode.Length() > 0 {
			c.Omit = append(c.Omit, labelNode.Get(0))
		}
		switch {
		case s.AttrOr("data-letter", "") != "":
			c.Label = cleanLabel(s.AttrOr("data-letter", ""))
		case s.AttrOr("data-label", "") != "":
			c.Label = cleanLabel(s.AttrOr("data-label", ""))
		case labelNode.Length() > 0:
			c.Label = cleanLabel(labelNode.Text())
		}
		if peer := s.Find(acepPeer).First(); peer.Length() > 0 {
			c.Peer = peer.Text()
			c.Omit = append(c.Omit, peer.Get(0))
		}
		choices = append(choices, c)
	})
	return choices
}

// Explanation implements Strategy.
func (ACEP) Explanation(doc *goquery.Document) *html.Node {
	return first(doc.Find(acepExplanation))
}

// Images implements Strategy.
func (ACEP) Images(_ *goquery.Document, r *Regions) []string {
	return regionImages(r)
}

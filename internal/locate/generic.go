package locate

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/Dogebooch/DougHub-sub001/internal/fixture"
)

const (
	genericLists       = "ol, ul"
	genericPeer        = ".peer-percent, .percent"
	genericExplanation = ".explanation, .rationale, div.answer"
)

// Generic locates regions in unknown markup: the choices are the first list
// with at least two items, and the stem is the paragraph block preceding it.
type Generic struct{}

// Name implements Strategy.
func (Generic) Name() fixture.Platform { return fixture.PlatformGeneric }

// choiceList returns the first ordered or unordered list with two or more
// items, or an empty selection.
func (Generic) choiceList(doc *goquery.Document) *goquery.Selection {
	return doc.Find(genericLists).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return listItems(s).Length() >= 2
	}).First()
}

// listItems returns the items that belong to list itself. The parser may
// re-open unclosed formatting elements between a list and its items, so
// items are matched by their nearest enclosing list rather than as children.
func listItems(list *goquery.Selection) *goquery.Selection {
	return list.Find("li").FilterFunction(func(_ int, li *goquery.Selection) bool {
		return li.Closest(genericLists).IsSelection(list)
	})
}

// Stem implements Strategy.
func (g Generic) Stem(doc *goquery.Document) *html.Node {
	list := first(g.choiceList(doc))
	order := documentOrder(doc.Get(0))

	var candidates []*html.Node
	doc.Find("body p").Each(func(_ int, p *goquery.Selection) {
		if p.Closest(genericLists).Length() > 0 {
			return
		}
		n := p.Get(0)
		if list != nil && order[n] > order[list] {
			return
		}
		candidates = append(candidates, n)
	})
	return lastQuestion(candidates)
}

// Context implements Strategy.
func (g Generic) Context(doc *goquery.Document, stem *html.Node) []*html.Node {
	container := stem.Parent
	if list := first(g.choiceList(doc)); list != nil {
		for a := stem.Parent; a != nil; a = a.Parent {
			if contains(a, list) {
				container = a
				break
			}
		}
	}
	return precedingBlocks(stem, container, func(n *html.Node) bool {
		return n.Data == "ol" || n.Data == "ul" || n.Data == "script" || n.Data == "style"
	})
}

// Choices implements Strategy.
func (g Generic) Choices(doc *goquery.Document) []ChoiceRegion {
	var choices []ChoiceRegion
	listItems(g.choiceList(doc)).Each(func(_ int, s *goquery.Selection) {
		c := ChoiceRegion{
			Root:      s.Get(0),
			Body:      s.Get(0),
			Label:     cleanLabel(s.AttrOr("data-label", s.AttrOr("data-letter", ""))),
			Correct:   s.HasClass("correct") || s.AttrOr("data-correct", "") == "true",
			Incorrect: s.HasClass("incorrect") || s.HasClass("wrong") || s.AttrOr("data-correct", "") == "false",
		}
		if peer := s.Find(genericPeer).First(); peer.Length() > 0 {
			c.Peer = peer.Text()
			c.Omit = append(c.Omit, peer.Get(0))
		}
		choices = append(choices, c)
	})
	return choices
}

// Explanation implements Strategy.
func (Generic) Explanation(doc *goquery.Document) *html.Node {
	return first(doc.Find(genericExplanation))
}

// Images implements Strategy.
func (Generic) Images(_ *goquery.Document, r *Regions) []string {
	return regionImages(r)
}

// documentOrder numbers every node under root in pre-order.
func documentOrder(root *html.Node) map[*html.Node]int {
	order := make(map[*html.Node]int)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		order[n] = len(order)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return order
}

// contains reports whether n is an ancestor of (or equal to) other.
func contains(n, other *html.Node) bool {
	for o := other; o != nil; o = o.Parent {
		if o == n {
			return true
		}
	}
	return false
}

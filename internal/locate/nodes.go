package locate

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// explicitStem matches stems that are marked up as such.
const explicitStem = ".stem, .q_stem, .question-stem"

// first returns the first node of sel, or nil.
func first(sel *goquery.Selection) *html.Node {
	if sel.Length() == 0 {
		return nil
	}
	return sel.Get(0)
}

// pickStem chooses the stem among the paragraphs of sel: an explicitly
// marked block, else the last paragraph asking a question, else the last
// paragraph. Paragraphs matching skip are ignored.
func pickStem(sel *goquery.Selection, skip string) *html.Node {
	if n := first(sel.Find(explicitStem)); n != nil {
		return n
	}

	paragraphs := sel.Find("p")
	if skip != "" {
		paragraphs = paragraphs.FilterFunction(func(_ int, p *goquery.Selection) bool {
			return p.Closest(skip).Length() == 0
		})
	}
	return lastQuestion(paragraphs.Nodes)
}

// lastQuestion returns the last node containing a question mark, or the
// last node when none does.
func lastQuestion(nodes []*html.Node) *html.Node {
	for i := len(nodes) - 1; i >= 0; i-- {
		if strings.Contains(nodeText(nodes[i]), "?") {
			return nodes[i]
		}
	}
	if len(nodes) == 0 {
		return nil
	}
	return nodes[len(nodes)-1]
}

// precedingBlocks collects the siblings that come before stem at every
// level between stem and container, in document order. Nodes for which
// skip returns true are left out, as are blank text nodes.
func precedingBlocks(stem, container *html.Node, skip func(*html.Node) bool) []*html.Node {
	var levels [][]*html.Node
	for n := stem; n != nil && n != container; n = n.Parent {
		if n.Type == html.ElementNode && n.Data == "body" {
			break
		}
		var level []*html.Node
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			switch s.Type {
			case html.ElementNode:
				if skip == nil || !skip(s) {
					level = append(level, s)
				}
			case html.TextNode:
				if strings.TrimSpace(s.Data) != "" {
					level = append(level, s)
				}
			}
		}
		levels = append(levels, level)
	}

	var out []*html.Node
	for i := len(levels) - 1; i >= 0; i-- {
		level := levels[i]
		for j := len(level) - 1; j >= 0; j-- {
			out = append(out, level[j])
		}
	}
	return out
}

// imagesIn returns the image sources under nodes, in document order.
// Lazy-loaded images keep their reference in data-src.
func imagesIn(nodes ...*html.Node) []string {
	var refs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			if src := attr(n, "src"); src != "" {
				refs = append(refs, src)
			} else if src := attr(n, "data-src"); src != "" {
				refs = append(refs, src)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		if n != nil {
			walk(n)
		}
	}
	return refs
}

// regionImages collects images from the context, stem and choices.
func regionImages(r *Regions) []string {
	nodes := make([]*html.Node, 0, len(r.Context)+1+len(r.Choices))
	nodes = append(nodes, r.Context...)
	nodes = append(nodes, r.Stem)
	for _, c := range r.Choices {
		nodes = append(nodes, c.Root)
	}
	return imagesIn(nodes...)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// nodeText returns the concatenated text under n.
func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
	}
	return sb.String()
}

// cleanLabel strips decoration such as "A." or "(A)" from a label.
func cleanLabel(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), ".():"))
}

// matches reports whether n matches the selector.
func matches(doc *goquery.Document, n *html.Node, selector string) bool {
	return doc.FindNodes(n).Is(selector)
}

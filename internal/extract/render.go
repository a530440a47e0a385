package extract

import (
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/Dogebooch/DougHub-sub001/internal/textnorm"
)

// renderOuter renders n including its own tag.
func renderOuter(n *html.Node) string {
	var sb strings.Builder
	if err := html.Render(&sb, clone(n, nil)); err != nil {
		return ""
	}
	return textnorm.CollapseWhitespace(sb.String())
}

// renderInner renders the children of n, leaving out the nodes in omit.
// The document tree is never modified.
func renderInner(n *html.Node, omit map[*html.Node]bool) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if omit[c] {
			continue
		}
		if err := html.Render(&sb, clone(c, omit)); err != nil {
			return ""
		}
	}
	return textnorm.CollapseWhitespace(sb.String())
}

// clone deep-copies n, detached from its parent and siblings, dropping the
// descendants in omit.
func clone(n *html.Node, omit map[*html.Node]bool) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      slices.Clone(n.Attr),
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if omit[ch] {
			continue
		}
		c.AppendChild(clone(ch, omit))
	}
	return c
}

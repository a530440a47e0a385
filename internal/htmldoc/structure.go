package htmldoc

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// voidElements never have content or an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// optionalEnd lists elements whose end tag HTML allows to be omitted.
var optionalEnd = map[string]bool{
	"html": true, "head": true, "body": true, "p": true, "li": true,
	"dt": true, "dd": true, "option": true, "optgroup": true, "tr": true,
	"td": true, "th": true, "thead": true, "tbody": true, "tfoot": true,
	"colgroup": true, "caption": true, "rt": true, "rp": true,
}

// mayBeEmpty lists elements that are routinely empty in captured pages:
// document scaffolding, script hosts, table cells, embeds and icon glyphs.
var mayBeEmpty = map[string]bool{
	"html": true, "head": true, "body": true, "script": true, "style": true,
	"td": true, "th": true, "textarea": true, "iframe": true, "canvas": true,
	"video": true, "audio": true, "object": true, "svg": true,
	"template": true, "i": true, "a": true,
}

// structuralWarnings replays the token stream against a stack of open
// elements and reports tags the tree builder will have to repair.
func structuralWarnings(s string) []string {
	var (
		warnings []string
		stack    []string
	)

	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			for i := len(stack) - 1; i >= 0; i-- {
				if !optionalEnd[stack[i]] {
					warnings = append(warnings, fmt.Sprintf("unclosed <%s> at end of input", stack[i]))
				}
			}
			return warnings

		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if !voidElements[tag] {
				stack = append(stack, tag)
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			idx := lastIndex(stack, tag)
			if idx < 0 {
				warnings = append(warnings, fmt.Sprintf("stray </%s>", tag))
				continue
			}
			for _, open := range stack[idx+1:] {
				if !optionalEnd[open] {
					warnings = append(warnings, fmt.Sprintf("unclosed <%s> before </%s>", open, tag))
				}
			}
			stack = stack[:idx]
		}
	}
}

// emptyElementWarnings reports non-void elements without content.
func emptyElementWarnings(root *html.Node) []string {
	var warnings []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && !voidElements[n.Data] && !mayBeEmpty[n.Data] && isBlank(n) {
			warnings = append(warnings, fmt.Sprintf("empty <%s> element", n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return warnings
}

// isBlank reports whether n has no element children and no visible text.
func isBlank(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			return false
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return false
			}
		}
	}
	return true
}

func lastIndex(stack []string, tag string) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == tag {
			return i
		}
	}
	return -1
}

// CheckBalance reports unclosed and stray tags in an HTML fragment.
// End tags that HTML allows to be omitted are not reported.
func CheckBalance(fragment string) []string {
	return structuralWarnings(fragment)
}

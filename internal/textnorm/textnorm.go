// Package textnorm reduces HTML fragments to comparable plain text.
//
// Golden-set comparison and leakage detection both compare extracted
// fragments as text, so they share this one routine: markup is stripped
// (with tag boundaries becoming spaces), entities are decoded, the result is
// NFKC-normalized, whitespace runs are collapsed and the ends trimmed.
// Fold additionally applies Unicode case folding.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Text returns the visible text of an HTML fragment with whitespace collapsed.
// Script and style contents are not visible text and are dropped.
func Text(fragment string) string {
	if fragment == "" {
		return ""
	}

	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a read error; either way the text so far is all there is.
			return CollapseWhitespace(norm.NFKC.String(sb.String()))
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			if isHidden(string(name)) {
				skip++
			}
			if !inline[string(name)] {
				sb.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if isHidden(string(name)) && skip > 0 {
				skip--
			}
			if !inline[string(name)] {
				sb.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			sb.WriteByte(' ')
		}
	}
}

// Fold returns Text with Unicode case folding applied.
func Fold(fragment string) string {
	return cases.Fold().String(Text(fragment))
}

// Equal reports whether two fragments are equal under case-, whitespace-
// and markup-insensitive comparison.
func Equal(a, b string) bool {
	return Fold(a) == Fold(b)
}

// Tokens splits the folded text of a fragment into word tokens.
// Any rune that is not a letter or digit separates tokens.
func Tokens(fragment string) []string {
	return strings.FieldsFunc(Fold(fragment), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// CollapseWhitespace replaces every run of Unicode whitespace with a single
// space and trims both ends.
func CollapseWhitespace(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		space = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// inline lists phrasing elements whose boundaries do not separate words.
var inline = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true, "cite": true,
	"code": true, "data": true, "dfn": true, "em": true, "font": true, "i": true,
	"kbd": true, "mark": true, "q": true, "s": true, "samp": true, "small": true,
	"span": true, "strong": true, "sub": true, "sup": true, "time": true,
	"u": true, "var": true,
}

func isHidden(tag string) bool {
	return tag == "script" || tag == "style" || tag == "template"
}

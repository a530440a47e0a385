package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/Dogebooch/DougHub-sub001/internal/htmldoc"
	"github.com/Dogebooch/DougHub-sub001/internal/model"
)

// ErrSanitizedAway is returned when sanitizing removes all visible content.
var ErrSanitizedAway = errors.New("sanitizer removed all content")

// Renderer is the rendering collaborator: it returns a display-safe version
// of an HTML fragment or an error when it cannot.
type Renderer interface {
	RenderSafe(fragment string) (string, error)
}

// PolicyRenderer sanitizes fragments with a bluemonday policy.
type PolicyRenderer struct {
	policy *bluemonday.Policy
}

// NewPolicyRenderer returns a renderer using the user-generated-content
// policy, which keeps formatting, tables and images and drops scripts,
// event handlers and unsafe URLs.
func NewPolicyRenderer() *PolicyRenderer {
	return &PolicyRenderer{policy: bluemonday.UGCPolicy()}
}

// RenderSafe implements Renderer.
func (r *PolicyRenderer) RenderSafe(fragment string) (string, error) {
	out := r.policy.Sanitize(fragment)
	if !IsBlank(fragment) && IsBlank(out) {
		return out, ErrSanitizedAway
	}
	return out, nil
}

// unsafeElements can execute code or embed foreign documents.
var unsafeElements = map[string]bool{
	"script": true, "iframe": true, "object": true, "embed": true,
	"frame": true, "frameset": true, "applet": true, "base": true,
}

// urlAttributes carry URLs that a browser may navigate to or load.
var urlAttributes = map[string]bool{
	"href": true, "src": true, "action": true, "formaction": true,
	"xlink:href": true, "data": true, "poster": true,
}

// RenderCheck scans a record's HTML fragments for content that is unsafe
// to render and for broken fragment boundaries.
type RenderCheck struct {
	renderer Renderer
}

// NewRenderCheck creates a check that also passes every fragment through
// renderer. A nil renderer skips that step.
func NewRenderCheck(renderer Renderer) *RenderCheck {
	return &RenderCheck{renderer: renderer}
}

// Check returns one diagnostic per violation.
func (c *RenderCheck) Check(rec model.QuestionRecord) []string {
	type fragment struct{ name, html string }
	fragments := []fragment{
		{"context_html", rec.ContextHTML},
		{"stem_html", rec.StemHTML},
	}
	for i, ch := range rec.AnswerChoices {
		fragments = append(fragments, fragment{fmt.Sprintf("answer_choices[%d].text", i), ch.Text})
	}

	var diagnostics []string
	for _, f := range fragments {
		if f.html == "" {
			continue
		}
		for _, v := range UnsafeContent(f.html) {
			diagnostics = append(diagnostics, f.name+": "+v)
		}
		for _, w := range htmldoc.CheckBalance(f.html) {
			diagnostics = append(diagnostics, f.name+": broken fragment boundary: "+w)
		}
		if c.renderer != nil {
			if _, err := c.renderer.RenderSafe(f.html); err != nil {
				diagnostics = append(diagnostics, fmt.Sprintf("%s: render_safe failed: %v", f.name, err))
			}
		}
	}
	return diagnostics
}

// UnsafeContent lists script-bearing content in fragment: executable
// elements, inline event handlers and javascript: URLs.
func UnsafeContent(fragment string) []string {
	var found []string
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return found
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		tok := z.Token()
		if unsafeElements[tok.Data] {
			found = append(found, fmt.Sprintf("contains <%s> element", tok.Data))
		}
		for _, a := range tok.Attr {
			key := strings.ToLower(a.Key)
			switch {
			case strings.HasPrefix(key, "on"):
				found = append(found, fmt.Sprintf("event handler %s on <%s>", key, tok.Data))
			case urlAttributes[key] && isScriptURL(a.Val):
				found = append(found, fmt.Sprintf("javascript: URL in %s on <%s>", key, tok.Data))
			}
		}
	}
}

// isScriptURL reports whether a URL uses the javascript or vbscript scheme.
// Browsers ignore embedded whitespace and control characters in the scheme.
func isScriptURL(v string) bool {
	var sb strings.Builder
	for _, r := range v {
		if r > ' ' {
			sb.WriteRune(r)
		}
	}
	s := strings.ToLower(sb.String())
	return strings.HasPrefix(s, "javascript:") || strings.HasPrefix(s, "vbscript:")
}

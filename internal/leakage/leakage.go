// Package leakage detects answer-revealing text inside a question's context
// or stem.
//
// All text is compared after the shared textnorm normalization, as token
// sequences. A choice leaks when a long enough run of its tokens appears
// contiguously in the context or stem. Choices with too few distinguishing
// tokens are exempt, since short answers such as "Observation" or "Aspirin"
// routinely occur in vignettes.
package leakage

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/Dogebooch/DougHub-sub001/internal/extract"
	"github.com/Dogebooch/DougHub-sub001/internal/model"
	"github.com/Dogebooch/DougHub-sub001/internal/textnorm"
)

// Defaults for Detector options.
const (
	DefaultMinChoiceTokens   = 3
	DefaultMinSharedRun      = 4
	DefaultMinSentenceTokens = 6
)

// DefaultFeedbackPhrases are phrases that only appear in answer feedback.
// A phrase ending in a colon is a header: it matches only at the start of a
// block or sentence and only when the colon follows it.
var DefaultFeedbackPhrases = []string{
	"correct answer",
	"the answer is",
	"explanation:",
	"rationale",
	"educational objective",
	"key point",
}

// Region names reported in findings.
const (
	RegionContext = "context"
	RegionStem    = "stem"
)

// Finding sources.
const (
	SourceChoice      = "answer_choice"
	SourceExplanation = "explanation"
	SourceFeedback    = "feedback_phrase"
	SourceEnumeration = "option_enumeration"
)

// stopwords are ignored at the ends of a shared run and when counting a
// choice's distinguishing tokens.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "in": true, "is": true,
	"it": true, "of": true, "on": true, "or": true, "than": true, "that": true,
	"the": true, "this": true, "to": true, "was": true, "with": true,
}

// enumerationPattern matches option markers such as "A.", "(B)" or "C)".
var enumerationPattern = regexp.MustCompile(`(?:^|[\s:;,])\(?([A-H])[.)]\s`)

// Finding is one piece of leaked answer information.
type Finding struct {
	// Label is the offending choice's label, empty for non-choice sources.
	Label string `json:"label,omitempty"`

	// Span is the matched normalized text.
	Span string `json:"span"`

	// Region is where the span was found: context or stem.
	Region string `json:"region"`

	// Source is what leaked.
	Source string `json:"source"`
}

// String returns the finding as a report diagnostic.
func (f Finding) String() string {
	switch f.Source {
	case SourceChoice:
		return fmt.Sprintf("leakage: choice %s text %q appears in %s", f.Label, f.Span, f.Region)
	case SourceExplanation:
		return fmt.Sprintf("leakage: explanation sentence %q appears in %s", f.Span, f.Region)
	case SourceFeedback:
		return fmt.Sprintf("leakage: feedback phrase %q appears in %s", f.Span, f.Region)
	case SourceEnumeration:
		return fmt.Sprintf("leakage: answer options %q enumerated in %s", f.Span, f.Region)
	default:
		return fmt.Sprintf("leakage: %q appears in %s", f.Span, f.Region)
	}
}

// Detector checks records for leakage. It holds no per-record state and is
// safe for concurrent use.
type Detector struct {
	minChoiceTokens   int
	minSharedRun      int
	minSentenceTokens int
	feedbackPhrases   []feedbackPhrase
}

type feedbackPhrase struct {
	tokens []string
	header *regexp.Regexp
}

// match reports whether the phrase occurs in a region. blocks are the
// region's top-level HTML blocks and tokens its token sequence.
func (p feedbackPhrase) match(blocks, tokens []string) bool {
	if p.header == nil {
		return indexRun(tokens, p.tokens) >= 0
	}
	for _, b := range blocks {
		if p.header.MatchString(textnorm.Fold(b)) {
			return true
		}
	}
	return false
}

// Option configures a Detector.
type Option func(*Detector)

// WithMinChoiceTokens sets how many distinguishing tokens a choice needs
// before it is checked.
func WithMinChoiceTokens(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.minChoiceTokens = n
		}
	}
}

// WithMinSharedRun sets the shared run length that counts as a leak for
// choices longer than it.
func WithMinSharedRun(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.minSharedRun = n
		}
	}
}

// WithMinSentenceTokens sets how long an explanation sentence must be to be
// checked.
func WithMinSentenceTokens(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.minSentenceTokens = n
		}
	}
}

// WithFeedbackPhrases replaces the feedback phrase list.
func WithFeedbackPhrases(phrases ...string) Option {
	return func(d *Detector) {
		d.feedbackPhrases = tokenizePhrases(phrases)
	}
}

// NewDetector creates a detector with the given options.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		minChoiceTokens:   DefaultMinChoiceTokens,
		minSharedRun:      DefaultMinSharedRun,
		minSentenceTokens: DefaultMinSentenceTokens,
		feedbackPhrases:   tokenizePhrases(DefaultFeedbackPhrases),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func tokenizePhrases(phrases []string) []feedbackPhrase {
	out := make([]feedbackPhrase, 0, len(phrases))
	for _, p := range phrases {
		toks := textnorm.Tokens(p)
		if len(toks) == 0 {
			continue
		}
		fp := feedbackPhrase{tokens: toks}
		if strings.HasSuffix(strings.TrimSpace(p), ":") {
			quoted := make([]string, len(toks))
			for i, t := range toks {
				quoted[i] = regexp.QuoteMeta(t)
			}
			fp.header = regexp.MustCompile(`(?:^|[.!?]\s+)` + strings.Join(quoted, `\W+`) + `\s*:`)
		}
		out = append(out, fp)
	}
	return out
}

// Detect returns every leakage finding for rec, context before stem.
func (d *Detector) Detect(rec model.QuestionRecord) []Finding {
	regions := []struct {
		name   string
		blocks []string
		tokens []string
	}{
		{RegionContext, strings.Split(rec.ContextHTML, "\n"), textnorm.Tokens(rec.ContextHTML)},
		{RegionStem, []string{rec.StemHTML}, textnorm.Tokens(rec.StemHTML)},
	}

	sentences := d.explanationSentences(rec.Metadata[extract.MetaExplanationHTML])

	var findings []Finding
	for _, region := range regions {
		if len(region.tokens) == 0 {
			continue
		}
		for _, c := range rec.AnswerChoices {
			if f, ok := d.choiceLeak(c, region.name, region.tokens); ok {
				findings = append(findings, f)
			}
		}
		for _, s := range sentences {
			if indexRun(region.tokens, s) >= 0 {
				findings = append(findings, Finding{
					Span: strings.Join(s, " "), Region: region.name, Source: SourceExplanation,
				})
			}
		}
		for _, p := range d.feedbackPhrases {
			if p.match(region.blocks, region.tokens) {
				findings = append(findings, Finding{
					Span: strings.Join(p.tokens, " "), Region: region.name, Source: SourceFeedback,
				})
			}
		}
	}

	if span, ok := enumeratedOptions(textnorm.Text(rec.StemHTML)); ok {
		findings = append(findings, Finding{Span: span, Region: RegionStem, Source: SourceEnumeration})
	}
	return findings
}

func (d *Detector) choiceLeak(c model.AnswerChoice, region string, regionTokens []string) (Finding, bool) {
	choice := textnorm.Tokens(c.Text)
	distinguishing := 0
	for _, t := range choice {
		if !stopwords[t] {
			distinguishing++
		}
	}
	if distinguishing < d.minChoiceTokens {
		return Finding{}, false
	}

	run := trimStopwords(longestCommonRun(choice, regionTokens))
	if len(run) < min(len(choice), d.minSharedRun) {
		return Finding{}, false
	}
	return Finding{
		Label:  c.Label,
		Span:   strings.Join(run, " "),
		Region: region,
		Source: SourceChoice,
	}, true
}

// explanationSentences splits the explanation into token sequences of
// sentences long enough to be checked.
func (d *Detector) explanationSentences(explanationHTML string) [][]string {
	if explanationHTML == "" {
		return nil
	}
	var out [][]string
	for _, s := range splitSentences(textnorm.Text(explanationHTML)) {
		if toks := textnorm.Tokens(s); len(toks) >= d.minSentenceTokens {
			out = append(out, toks)
		}
	}
	return out
}

// splitSentences splits text after '.', '!' or '?' followed by a space.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 == len(text) || text[i+1] == ' ' {
				out = append(out, text[start:i+1])
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// enumeratedOptions finds at least two consecutive option markers (A then
// B, and so on) in stem text.
func enumeratedOptions(stem string) (string, bool) {
	matches := enumerationPattern.FindAllStringSubmatchIndex(stem, -1)
	for i := 1; i < len(matches); i++ {
		prev := stem[matches[i-1][2]]
		cur := stem[matches[i][2]]
		if cur == prev+1 {
			start := matches[i-1][2]
			if start > 0 && stem[start-1] == '(' {
				start--
			}
			end := min(matches[i][1]+24, len(stem))
			return strings.TrimSpace(stem[start:end]), true
		}
	}
	return "", false
}

// longestCommonRun returns the longest contiguous token sequence shared by
// a and b, preferring the earliest in a.
func longestCommonRun(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	bestLen, bestEnd := 0, 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > bestLen {
					bestLen, bestEnd = cur[j], i
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return a[bestEnd-bestLen : bestEnd]
}

func trimStopwords(run []string) []string {
	for len(run) > 0 && stopwords[run[0]] {
		run = run[1:]
	}
	for len(run) > 0 && stopwords[run[len(run)-1]] {
		run = run[:len(run)-1]
	}
	return run
}

// indexRun returns the index of the first occurrence of needle in haystack,
// or -1.
func indexRun(haystack, needle []string) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if slices.Equal(haystack[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

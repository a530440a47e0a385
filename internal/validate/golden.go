package validate

import (
	"fmt"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/Dogebooch/DougHub-sub001/internal/fixture"
	"github.com/Dogebooch/DougHub-sub001/internal/golden"
	"github.com/Dogebooch/DougHub-sub001/internal/model"
	"github.com/Dogebooch/DougHub-sub001/internal/textnorm"
)

// DefaultSimilarityThreshold requires exact normalized-text equality.
const DefaultSimilarityThreshold = 1.0

// FieldComparison is the verdict for one compared fragment.
type FieldComparison struct {
	Field      string
	Match      bool
	Similarity float64
	Diff       string
}

// Comparison is the result of comparing a record with its golden entry.
type Comparison struct {
	Fields []FieldComparison

	// Stale is true when the entry was captured from other bytes than the
	// fixture, so its expectations no longer apply.
	Stale bool

	Diagnostics []string
}

// Matched reports whether every field matched and the entry is current.
func (c Comparison) Matched() bool {
	if c.Stale {
		return false
	}
	for _, f := range c.Fields {
		if !f.Match {
			return false
		}
	}
	return true
}

// GoldenComparator compares extracted fragments with golden expectations
// under case-, whitespace- and markup-insensitive normalization.
type GoldenComparator struct {
	threshold float64
	hasher    fixture.Hasher
}

// NewGoldenComparator creates a comparator. A threshold below 1 accepts
// near matches whose Levenshtein similarity reaches it; values outside
// (0, 1] mean exact equality.
func NewGoldenComparator(threshold float64, hasher fixture.Hasher) *GoldenComparator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	return &GoldenComparator{threshold: threshold, hasher: hasher}
}

// Threshold returns the similarity a near match must reach.
func (g *GoldenComparator) Threshold() float64 {
	return g.threshold
}

// Compare checks rec against entry. digest is the fixture digest, used to
// detect entries captured from different bytes.
func (g *GoldenComparator) Compare(entry golden.Entry, rec model.QuestionRecord, digest string) Comparison {
	var c Comparison

	if entry.IsStale(g.hasher, digest) {
		c.Stale = true
		c.Diagnostics = append(c.Diagnostics,
			fmt.Sprintf("golden entry %s was captured from different bytes than the fixture; expectations are stale", entry.Name))
	}

	for _, f := range []struct{ name, expected, actual string }{
		{"context_html", entry.ExpectedContextHTML, rec.ContextHTML},
		{"stem_html", entry.ExpectedStemHTML, rec.StemHTML},
	} {
		fc := g.compareField(f.name, f.expected, f.actual)
		c.Fields = append(c.Fields, fc)
		switch {
		case !fc.Match:
			c.Diagnostics = append(c.Diagnostics,
				fmt.Sprintf("%s differs from golden (similarity %.3f)", fc.Field, fc.Similarity))
			if fc.Diff != "" {
				c.Diagnostics = append(c.Diagnostics, fc.Diff)
			}
		case fc.Similarity < 1:
			c.Diagnostics = append(c.Diagnostics,
				fmt.Sprintf("%s is a near match (similarity %.3f)", fc.Field, fc.Similarity))
		}
	}
	return c
}

func (g *GoldenComparator) compareField(name, expected, actual string) FieldComparison {
	e := textnorm.Fold(expected)
	a := textnorm.Fold(actual)
	if e == a {
		return FieldComparison{Field: name, Match: true, Similarity: 1}
	}

	sim := levenshtein.Similarity(e, a, nil)
	fc := FieldComparison{Field: name, Similarity: sim}
	if g.threshold < 1 && sim >= g.threshold {
		fc.Match = true
		return fc
	}
	fc.Diff = wordDiff(name, e, a)
	return fc
}

// wordDiff renders a unified diff with one word per line.
func wordDiff(name, expected, actual string) string {
	diff := difflib.UnifiedDiff{
		A:        wordLines(expected),
		B:        wordLines(actual),
		FromFile: "expected " + name,
		ToFile:   "actual " + name,
		Context:  2,
	}
	s, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return strings.TrimRight(s, "\n")
}

func wordLines(s string) []string {
	words := strings.Fields(s)
	lines := make([]string, len(words))
	for i, w := range words {
		lines[i] = w + "\n"
	}
	return lines
}

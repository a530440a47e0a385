package model

import (
	"fmt"
	"maps"
	"slices"
)

// AnswerChoice is one answer option in document order.
//
// IsCorrect and PeerPercentage are nil unless the source page marks them,
// for example in a post-answer feedback view.
type AnswerChoice struct {
	// Label is the displayed label ("A", "B", ...) or a positional one
	// assigned when the platform shows none.
	Label string `json:"label" validate:"required"`

	// Text is the choice's inner HTML with whitespace collapsed.
	Text string `json:"text" validate:"nonblank"`

	// IsCorrect is set only in feedback state.
	IsCorrect *bool `json:"is_correct,omitempty"`

	// PeerPercentage is the share of peers who picked this choice.
	PeerPercentage *float64 `json:"peer_percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// QuestionRecord is the structured output of extracting one fixture.
// It is produced once and treated as a value afterwards; validators
// receive copies and must not mutate shared slices or maps.
type QuestionRecord struct {
	// ID is derived from the fixture identity and content digest, so the same
	// fixture always maps to the same record.
	ID string `json:"id"`

	// ContextHTML is the clinical vignette preceding the stem.
	ContextHTML string `json:"context_html"`

	// StemHTML is the question being asked.
	StemHTML string `json:"stem_html" validate:"nonblank"`

	// AnswerChoices are ordered as they appear in the document, not by label.
	AnswerChoices []AnswerChoice `json:"answer_choices" validate:"min=1,unique=Label,dive"`

	// ImageRefs holds unique image references in first-seen order.
	ImageRefs []string `json:"image_refs"`

	// Metadata carries auxiliary fields such as platform and provenance.
	Metadata map[string]string `json:"metadata"`
}

// Bool returns a pointer to b, for optional fields.
func Bool(b bool) *bool {
	return &b
}

// Float64 returns a pointer to f, for optional fields.
func Float64(f float64) *float64 {
	return &f
}

// Clone returns a deep copy of the record.
func (q QuestionRecord) Clone() QuestionRecord {
	out := q
	if q.AnswerChoices != nil {
		out.AnswerChoices = make([]AnswerChoice, len(q.AnswerChoices))
		for i, c := range q.AnswerChoices {
			if c.IsCorrect != nil {
				c.IsCorrect = Bool(*c.IsCorrect)
			}
			if c.PeerPercentage != nil {
				c.PeerPercentage = Float64(*c.PeerPercentage)
			}
			out.AnswerChoices[i] = c
		}
	}
	out.ImageRefs = slices.Clone(q.ImageRefs)
	out.Metadata = maps.Clone(q.Metadata)
	return out
}

// Labels returns the choice labels in document order.
func (q QuestionRecord) Labels() []string {
	labels := make([]string, len(q.AnswerChoices))
	for i, c := range q.AnswerChoices {
		labels[i] = c.Label
	}
	return labels
}

// CorrectChoice returns the choice marked correct, if any.
func (q QuestionRecord) CorrectChoice() (AnswerChoice, bool) {
	for _, c := range q.AnswerChoices {
		if c.IsCorrect != nil && *c.IsCorrect {
			return c, true
		}
	}
	return AnswerChoice{}, false
}

// Equal reports whether two records hold the same content.
// A nil slice or map equals an empty one.
func (q QuestionRecord) Equal(other QuestionRecord) bool {
	return len(q.Diff(other)) == 0
}

// Diff lists the fields that differ between q and other.
func (q QuestionRecord) Diff(other QuestionRecord) []string {
	var diffs []string
	if q.ID != other.ID {
		diffs = append(diffs, fmt.Sprintf("id: %q != %q", q.ID, other.ID))
	}
	if q.ContextHTML != other.ContextHTML {
		diffs = append(diffs, "context_html differs")
	}
	if q.StemHTML != other.StemHTML {
		diffs = append(diffs, "stem_html differs")
	}
	if len(q.AnswerChoices) != len(other.AnswerChoices) {
		diffs = append(diffs, fmt.Sprintf("answer_choices: %d != %d", len(q.AnswerChoices), len(other.AnswerChoices)))
	} else {
		for i := range q.AnswerChoices {
			if !q.AnswerChoices[i].equal(other.AnswerChoices[i]) {
				diffs = append(diffs, fmt.Sprintf("answer_choices[%d] differs", i))
			}
		}
	}
	if !slices.Equal(q.ImageRefs, other.ImageRefs) {
		diffs = append(diffs, "image_refs differ")
	}
	if !maps.Equal(q.Metadata, other.Metadata) {
		diffs = append(diffs, "metadata differs")
	}
	return diffs
}

func (c AnswerChoice) equal(other AnswerChoice) bool {
	return c.Label == other.Label &&
		c.Text == other.Text &&
		equalPtr(c.IsCorrect, other.IsCorrect) &&
		equalPtr(c.PeerPercentage, other.PeerPercentage)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

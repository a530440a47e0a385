package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/Dogebooch/DougHub-sub001/internal/fixture"
	"github.com/Dogebooch/DougHub-sub001/internal/golden"
	"github.com/Dogebooch/DougHub-sub001/internal/model"
)

func validRecord() model.QuestionRecord {
	return model.QuestionRecord{
		ID:          "r1",
		ContextHTML: "<p>A 34-year-old woman has diarrhea.</p>",
		StemHTML:    "<p>Which of the following is the most appropriate treatment?</p>",
		AnswerChoices: []model.AnswerChoice{
			{Label: "A", Text: "Azithromycin"},
			{Label: "B", Text: "Loperamide", PeerPercentage: model.Float64(58)},
		},
		ImageRefs: []string{},
		Metadata:  map[string]string{},
	}
}

func containsAll(t *testing.T, diagnostics []string, parts ...string) {
	t.Helper()
	joined := strings.Join(diagnostics, "\n")
	for _, p := range parts {
		if !strings.Contains(joined, p) {
			t.Errorf("expected diagnostics to mention %q, got %v", p, diagnostics)
		}
	}
}

func TestSchemaValidator(t *testing.T) {
	t.Parallel()

	v := NewSchemaValidator()

	tests := []struct {
		name   string
		mutate func(*model.QuestionRecord)
		want   []string
	}{
		{"valid", func(*model.QuestionRecord) {}, nil},
		{"blank stem", func(r *model.QuestionRecord) { r.StemHTML = "<p> </p>" }, []string{"stem_html must not be blank"}},
		{"no choices", func(r *model.QuestionRecord) { r.AnswerChoices = nil }, []string{"answer_choices must have at least 1"}},
		{"duplicate labels", func(r *model.QuestionRecord) { r.AnswerChoices[1].Label = "A" }, []string{"must have unique label values"}},
		{"missing label", func(r *model.QuestionRecord) { r.AnswerChoices[0].Label = "" }, []string{"answer_choices[0].label is required"}},
		{"blank choice text", func(r *model.QuestionRecord) { r.AnswerChoices[1].Text = "<span></span>" }, []string{"answer_choices[1].text must not be blank"}},
		{"image choice", func(r *model.QuestionRecord) { r.AnswerChoices[1].Text = `<img src="x.png">` }, nil},
		{"peer out of range", func(r *model.QuestionRecord) { r.AnswerChoices[1].PeerPercentage = model.Float64(140) }, []string{"peer_percentage must be at most 100"}},
		{"not a question", func(r *model.QuestionRecord) { r.StemHTML = "<p>The patient was discharged.</p>" }, []string{"does not read as a question"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := validRecord()
			tt.mutate(&rec)
			got := v.Validate(rec)
			if tt.want == nil {
				if len(got) != 0 {
					t.Errorf("expected no diagnostics, got %v", got)
				}
				return
			}
			containsAll(t, got, tt.want...)
		})
	}
}

func TestLooksLikeQuestion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		stem string
		want bool
	}{
		{"<p>What is the next best step?</p>", true},
		{"<p>Select the most likely diagnosis.</p>", true},
		{"<p>Of the options below, which of the following applies.</p>", true},
		{"<p>Blood pressure is normal.</p>", false},
	}
	for _, tt := range tests {
		if got := LooksLikeQuestion(tt.stem); got != tt.want {
			t.Errorf("LooksLikeQuestion(%q): expected %v, got %v", tt.stem, tt.want, got)
		}
	}
}

func TestGoldenComparator(t *testing.T) {
	t.Parallel()

	h := fixture.Hasher{}
	raw := "<html>fixture</html>"
	digest := h.Digest([]byte(raw))
	entry := golden.Entry{
		Name:                "e.json",
		RawHTML:             raw,
		ExpectedContextHTML: "<p>A 34-year-old woman   has diarrhea.</p>",
		ExpectedStemHTML:    "<P>which of the following is the most appropriate TREATMENT?</P>",
	}

	t.Run("normalized equality", func(t *testing.T) {
		t.Parallel()
		c := NewGoldenComparator(0, h).Compare(entry, validRecord(), digest)
		if !c.Matched() {
			t.Errorf("expected match, got %v", c.Diagnostics)
		}
		if len(c.Diagnostics) != 0 {
			t.Errorf("expected zero diagnostics, got %v", c.Diagnostics)
		}
	})

	t.Run("mismatch carries diff", func(t *testing.T) {
		t.Parallel()
		rec := validRecord()
		rec.StemHTML = "<p>Which of the following is the most likely diagnosis?</p>"
		c := NewGoldenComparator(1, h).Compare(entry, rec, digest)
		if c.Matched() {
			t.Fatal("expected mismatch")
		}
		containsAll(t, c.Diagnostics, "stem_html differs", "--- expected stem_html", "+++ actual stem_html", "-appropriate", "+likely")
	})

	t.Run("near match under threshold", func(t *testing.T) {
		t.Parallel()
		rec := validRecord()
		rec.StemHTML = "<p>Which of the following is the most appropriate treatment</p>"
		c := NewGoldenComparator(0.9, h).Compare(entry, rec, digest)
		if !c.Matched() {
			t.Errorf("expected near match, got %v", c.Diagnostics)
		}
		containsAll(t, c.Diagnostics, "near match")
	})

	t.Run("stale entry", func(t *testing.T) {
		t.Parallel()
		c := NewGoldenComparator(1, h).Compare(entry, validRecord(), h.Digest([]byte("other")))
		if c.Matched() || !c.Stale {
			t.Error("expected stale mismatch")
		}
		containsAll(t, c.Diagnostics, "stale")
	})
}

type failingRenderer struct{}

func (failingRenderer) RenderSafe(string) (string, error) {
	return "", errors.New("boom")
}

func TestRenderCheck(t *testing.T) {
	t.Parallel()

	check := NewRenderCheck(NewPolicyRenderer())

	tests := []struct {
		name   string
		mutate func(*model.QuestionRecord)
		want   []string
	}{
		{"clean", func(*model.QuestionRecord) {}, nil},
		{"script", func(r *model.QuestionRecord) { r.ContextHTML += "<script>alert(1)</script>" }, []string{"context_html: contains <script> element"}},
		{"event handler", func(r *model.QuestionRecord) { r.StemHTML = `<p onclick="x()">What?</p>` }, []string{"event handler onclick on <p>"}},
		{"javascript url", func(r *model.QuestionRecord) { r.AnswerChoices[0].Text = `<a href=" JaVa script:alert(1)">x</a>` }, []string{"answer_choices[0].text: javascript: URL in href"}},
		{"broken boundary", func(r *model.QuestionRecord) { r.StemHTML = "<p>What <b>now?</p>" }, []string{"broken fragment boundary"}},
		{"sanitized away", func(r *model.QuestionRecord) { r.AnswerChoices[1].Text = "<iframe>only</iframe>" }, []string{"contains <iframe> element", "render_safe failed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := validRecord()
			tt.mutate(&rec)
			got := check.Check(rec)
			if tt.want == nil {
				if len(got) != 0 {
					t.Errorf("expected no diagnostics, got %v", got)
				}
				return
			}
			containsAll(t, got, tt.want...)
		})
	}

	t.Run("renderer error is a diagnostic", func(t *testing.T) {
		t.Parallel()
		got := NewRenderCheck(failingRenderer{}).Check(validRecord())
		containsAll(t, got, "render_safe failed: boom")
	})
}

func TestPolicyRenderer(t *testing.T) {
	t.Parallel()

	out, err := NewPolicyRenderer().RenderSafe(`<p onclick="x()">Hi <img src="a.png" alt="A"></p>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "onclick") || !strings.Contains(out, "<img") {
		t.Errorf("unexpected sanitized output: %s", out)
	}
}

package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func sampleRecord() QuestionRecord {
	return QuestionRecord{
		ID:          "id-1",
		ContextHTML: "<p>A 34-year-old woman.</p>",
		StemHTML:    "<p>Which of the following is the most appropriate treatment?</p>",
		AnswerChoices: []AnswerChoice{
			{Label: "A", Text: "Azithromycin", IsCorrect: Bool(false), PeerPercentage: Float64(14)},
			{Label: "B", Text: "Loperamide", IsCorrect: Bool(true), PeerPercentage: Float64(58)},
		},
		ImageRefs: []string{"a.png"},
		Metadata:  map[string]string{"platform": "mksap"},
	}
}

func TestQuestionRecord_Clone(t *testing.T) {
	t.Parallel()

	orig := sampleRecord()
	clone := orig.Clone()
	if !orig.Equal(clone) {
		t.Fatalf("expected clone to equal original, diff: %v", orig.Diff(clone))
	}

	*clone.AnswerChoices[0].IsCorrect = true
	clone.ImageRefs[0] = "b.png"
	clone.Metadata["platform"] = "acep"

	if *orig.AnswerChoices[0].IsCorrect {
		t.Error("clone shares IsCorrect pointer")
	}
	if orig.ImageRefs[0] != "a.png" {
		t.Error("clone shares image refs")
	}
	if orig.Metadata["platform"] != "mksap" {
		t.Error("clone shares metadata")
	}
}

func TestQuestionRecord_Diff(t *testing.T) {
	t.Parallel()

	t.Run("nil equals empty", func(t *testing.T) {
		t.Parallel()
		a := QuestionRecord{StemHTML: "x"}
		b := QuestionRecord{StemHTML: "x", ImageRefs: []string{}, Metadata: map[string]string{}}
		if !a.Equal(b) {
			t.Errorf("expected equal, diff: %v", a.Diff(b))
		}
	})

	t.Run("optional fields compared by value", func(t *testing.T) {
		t.Parallel()
		a := sampleRecord()
		b := sampleRecord()
		b.AnswerChoices[1].PeerPercentage = nil
		diff := a.Diff(b)
		if len(diff) != 1 || !strings.Contains(diff[0], "answer_choices[1]") {
			t.Errorf("unexpected diff: %v", diff)
		}
	})
}

func TestQuestionRecord_CorrectChoice(t *testing.T) {
	t.Parallel()

	c, ok := sampleRecord().CorrectChoice()
	if !ok || c.Label != "B" {
		t.Errorf("expected choice B, got %+v (%v)", c, ok)
	}
	if _, ok := (QuestionRecord{}).CorrectChoice(); ok {
		t.Error("expected no correct choice")
	}
}

func TestValidationReport_JSON(t *testing.T) {
	t.Parallel()

	report := ValidationReport{
		StageFixture: Pass(),
		StageInput:   Fail(KindMalformedInput, "input is empty"),
		StageSchema:  Skipped(),
	}
	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	want := `{"A":{"status":"pass","diagnostics":[]},"B":{"status":"fail","kind":"malformed_input","diagnostics":["input is empty"]},"C":{"status":"skipped","diagnostics":[]}}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}

	if report.Status() != StatusFail {
		t.Errorf("expected fail, got %s", report.Status())
	}
	if id, ok := report.FatalStage(); !ok || id != StageInput {
		t.Errorf("expected fatal stage B, got %q", id)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	results := []*FixtureResult{
		{FixtureID: "a", Outcome: OutcomeOK, Report: ValidationReport{StageFixture: Pass(), StageSchema: Warn(KindSchemaIncomplete)}},
		{FixtureID: "b", Outcome: OutcomeExpectedFailure, Report: ValidationReport{StageInput: Fail(KindMalformedInput)}},
		{FixtureID: "c", Outcome: OutcomeUnexpectedFailure, Report: ValidationReport{StageFixture: Fail(KindFixtureDrift)}},
		nil,
	}

	s := Summarize(results)
	if s.Total != 3 || s.OK != 1 || s.ExpectedFailures != 1 || s.UnexpectedFailures != 1 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.Warnings != 1 {
		t.Errorf("expected 1 warning, got %d", s.Warnings)
	}
	if s.StageCounts[StageFixture][StatusPass] != 1 || s.StageCounts[StageFixture][StatusFail] != 1 {
		t.Errorf("unexpected stage A counts: %v", s.StageCounts[StageFixture])
	}
	if s.Passed() {
		t.Error("expected summary to fail")
	}
	if got := FailedFixtures(results); len(got) != 1 || got[0] != "c" {
		t.Errorf("expected [c], got %v", got)
	}
}

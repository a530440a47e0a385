package model

import (
	"slices"
	"time"
)

// StageID identifies one checkpoint of the validation pipeline.
type StageID string

// Stages run in this fixed order.
const (
	StageFixture     StageID = "A"
	StageInput       StageID = "B"
	StageSchema      StageID = "C"
	StageContent     StageID = "D"
	StagePersistence StageID = "E"
	StageRender      StageID = "F"
)

// StageOrder lists every stage in execution order.
var StageOrder = []StageID{
	StageFixture, StageInput, StageSchema, StageContent, StagePersistence, StageRender,
}

// Title returns a short human-readable stage name.
func (s StageID) Title() string {
	switch s {
	case StageFixture:
		return "Fixture immutability"
	case StageInput:
		return "Input contract"
	case StageSchema:
		return "Schema"
	case StageContent:
		return "Content/golden-set"
	case StagePersistence:
		return "Persistence round trip"
	case StageRender:
		return "Rendering safety"
	default:
		return "Unknown stage"
	}
}

// Status is the verdict of one stage.
//
// A fail status is always fatal for the fixture. Stages whose failures are
// not fatal report StatusWarning instead.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusWarning Status = "warning"
	StatusSkipped Status = "skipped"
)

// severity orders statuses for aggregation.
func (s Status) severity() int {
	switch s {
	case StatusFail:
		return 3
	case StatusWarning:
		return 2
	case StatusPass:
		return 1
	default:
		return 0
	}
}

// Kind classifies why a stage did not pass.
type Kind string

const (
	KindMalformedInput     Kind = "malformed_input"
	KindFixtureDrift       Kind = "fixture_drift"
	KindSchemaIncomplete   Kind = "schema_incomplete"
	KindRegionNotFound     Kind = "region_not_found"
	KindContentMismatch    Kind = "content_mismatch"
	KindLeakageFound       Kind = "leakage_found"
	KindPersistenceFailure Kind = "persistence_failure"
	KindRenderingUnsafe    Kind = "rendering_unsafe"
	KindInternal           Kind = "internal"
)

// StageResult is the outcome of one stage. Diagnostics are ordered and are
// never dropped, even for passing stages.
type StageResult struct {
	Status      Status   `json:"status"`
	Kind        Kind     `json:"kind,omitempty"`
	Diagnostics []string `json:"diagnostics"`
}

// Pass returns a passing result.
func Pass(diagnostics ...string) StageResult {
	return StageResult{Status: StatusPass, Diagnostics: nonNil(diagnostics)}
}

// Fail returns a fatal result.
func Fail(kind Kind, diagnostics ...string) StageResult {
	return StageResult{Status: StatusFail, Kind: kind, Diagnostics: nonNil(diagnostics)}
}

// Warn returns a non-fatal result.
func Warn(kind Kind, diagnostics ...string) StageResult {
	return StageResult{Status: StatusWarning, Kind: kind, Diagnostics: nonNil(diagnostics)}
}

// Skipped returns the result recorded for stages after a fatal one.
func Skipped() StageResult {
	return StageResult{Status: StatusSkipped, Diagnostics: []string{}}
}

// IsFatal reports whether the result stops the remaining stages.
func (r StageResult) IsFatal() bool {
	return r.Status == StatusFail
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ValidationReport maps each stage to its result. It serializes as
// {"A": {"status": ..., "diagnostics": [...]}, ...}.
type ValidationReport map[StageID]StageResult

// Status returns the most severe status in the report.
func (r ValidationReport) Status() Status {
	worst := StatusSkipped
	for _, res := range r {
		if res.Status.severity() > worst.severity() {
			worst = res.Status
		}
	}
	return worst
}

// FatalStage returns the stage that short-circuited the run, if any.
func (r ValidationReport) FatalStage() (StageID, bool) {
	for _, id := range StageOrder {
		if res, ok := r[id]; ok && res.IsFatal() {
			return id, true
		}
	}
	return "", false
}

// Outcome is the per-fixture verdict of a whole pipeline run.
type Outcome string

const (
	// OutcomeOK means no stage was fatal. Warnings may still be present.
	OutcomeOK Outcome = "ok"

	// OutcomeExpectedFailure means a fixture tagged as malformed failed its
	// input contract, which is the graceful result it exists to exercise.
	OutcomeExpectedFailure Outcome = "expected_failure"

	// OutcomeUnexpectedFailure means some stage was fatal for a fixture that
	// was supposed to pass it.
	OutcomeUnexpectedFailure Outcome = "unexpected_failure"
)

// FixtureResult is everything the pipeline produced for one fixture.
type FixtureResult struct {
	FixtureID   string           `json:"fixture"`
	Platform    string           `json:"platform"`
	Origin      string           `json:"origin,omitempty"`
	Digest      string           `json:"digest"`
	Outcome     Outcome          `json:"outcome"`
	Report      ValidationReport `json:"report"`
	Record      *QuestionRecord  `json:"record,omitempty"`
	ValidatedAt time.Time        `json:"validated_at"`
}

// Summary aggregates a batch of fixture results.
type Summary struct {
	Total              int                        `json:"total"`
	OK                 int                        `json:"ok"`
	ExpectedFailures   int                        `json:"expected_failures"`
	UnexpectedFailures int                        `json:"unexpected_failures"`
	Warnings           int                        `json:"warnings"`
	StageCounts        map[StageID]map[Status]int `json:"stage_counts"`
}

// Summarize counts outcomes and per-stage statuses. Nil results are ignored.
func Summarize(results []*FixtureResult) Summary {
	s := Summary{StageCounts: make(map[StageID]map[Status]int, len(StageOrder))}
	for _, id := range StageOrder {
		s.StageCounts[id] = make(map[Status]int)
	}

	for _, r := range results {
		if r == nil {
			continue
		}
		s.Total++
		switch r.Outcome {
		case OutcomeOK:
			s.OK++
		case OutcomeExpectedFailure:
			s.ExpectedFailures++
		case OutcomeUnexpectedFailure:
			s.UnexpectedFailures++
		}
		if r.Report.Status() == StatusWarning {
			s.Warnings++
		}
		for id, res := range r.Report {
			if counts, ok := s.StageCounts[id]; ok {
				counts[res.Status]++
			}
		}
	}
	return s
}

// Passed reports whether no fixture failed unexpectedly.
func (s Summary) Passed() bool {
	return s.UnexpectedFailures == 0
}

// FailedFixtures returns the ids of results with an unexpected failure,
// sorted.
func FailedFixtures(results []*FixtureResult) []string {
	var ids []string
	for _, r := range results {
		if r != nil && r.Outcome == OutcomeUnexpectedFailure {
			ids = append(ids, r.FixtureID)
		}
	}
	slices.Sort(ids)
	return ids
}

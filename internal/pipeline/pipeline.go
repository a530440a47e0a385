package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/Dogebooch/DougHub-sub001/internal/extract"
	"github.com/Dogebooch/DougHub-sub001/internal/fixture"
	"github.com/Dogebooch/DougHub-sub001/internal/htmldoc"
	"github.com/Dogebooch/DougHub-sub001/internal/model"
)

// Stage defines the interface that all validation stages must implement.
// Stages run in sequence over one fixture, each seeing the state the
// previous stages left in the Run.
type Stage interface {
	// ID returns the stage identifier (A through F).
	ID() model.StageID

	// Name returns the stage's name for logging purposes.
	Name() string

	// Run executes the stage. Problems are reported in the returned result;
	// a stage never returns an error.
	Run(ctx context.Context, run *Run) model.StageResult
}

// Run is the state of one fixture moving through the stages. It is owned
// by a single Execute call and never shared.
type Run struct {
	// Fixture is the input.
	Fixture fixture.RawFixture

	// Digest is the content digest computed when the run started.
	Digest string

	// Document is set by the input stage.
	Document *htmldoc.Document

	// Record is set by the schema stage, possibly partial.
	Record *model.QuestionRecord

	// Report accumulates stage results.
	Report model.ValidationReport
}

// Pipeline orchestrates the execution of the validation stages.
type Pipeline struct {
	// stages contains the ordered list of stages to execute.
	stages []Stage

	// hasher computes the run digest.
	hasher fixture.Hasher

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// now returns the validation timestamp.
	now func() time.Time
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithStages sets the initial stages.
func WithStages(stages ...Stage) Option {
	return func(p *Pipeline) {
		p.stages = append(p.stages, stages...)
	}
}

// WithHasher sets the hasher used for the run digest.
func WithHasher(h fixture.Hasher) Option {
	return func(p *Pipeline) {
		p.hasher = h
	}
}

// WithClock sets the function that timestamps results.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		stages: make([]Stage, 0, len(model.StageOrder)),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStage appends a stage to the pipeline.
// Stages are executed in the order they are added.
func (p *Pipeline) AddStage(stage Stage) {
	p.stages = append(p.stages, stage)
}

// AddStages appends multiple stages to the pipeline.
func (p *Pipeline) AddStages(stages ...Stage) {
	p.stages = append(p.stages, stages...)
}

// Execute runs every stage over f and always returns a result.
//
// A fatal stage result marks every later stage skipped. Warnings never stop
// the run. A panic inside a stage is recovered into a fatal internal result
// for that stage. Once started, a run is not cancelled; ctx is only passed
// on to the stages.
func (p *Pipeline) Execute(ctx context.Context, f fixture.RawFixture) *model.FixtureResult {
	run := &Run{
		Fixture: f,
		Digest:  p.hasher.Digest(f.Raw()),
		Report:  make(model.ValidationReport, len(p.stages)),
	}

	fatal := false
	for _, stage := range p.stages {
		if fatal {
			run.Report[stage.ID()] = model.Skipped()
			continue
		}

		p.logger.Debug("executing stage",
			"stage", stage.Name(),
			"fixture", f.ID,
		)

		res := p.runStage(ctx, stage, run)
		run.Report[stage.ID()] = res

		switch res.Status {
		case model.StatusFail:
			fatal = true
			p.logger.Warn("stage failed",
				"stage", stage.Name(),
				"fixture", f.ID,
				"kind", res.Kind,
				"diagnostics", len(res.Diagnostics),
				"diagnostic", firstDiagnostic(res),
			)
		case model.StatusWarning:
			p.logger.Info("stage warning",
				"stage", stage.Name(),
				"fixture", f.ID,
				"kind", res.Kind,
				"diagnostics", len(res.Diagnostics),
				"diagnostic", firstDiagnostic(res),
			)
		default:
			p.logger.Debug("stage completed",
				"stage", stage.Name(),
				"fixture", f.ID,
				"status", res.Status,
			)
		}
	}

	result := &model.FixtureResult{
		FixtureID:   f.ID,
		Platform:    f.Platform.String(),
		Origin:      f.Origin,
		Digest:      run.Digest,
		Outcome:     outcome(f, run.Report),
		Report:      run.Report,
		ValidatedAt: p.now().UTC(),
	}
	if run.Record != nil {
		rec := run.Record.Clone()
		result.Record = &rec
		if detected := rec.Metadata[extract.MetaPlatform]; detected != "" {
			result.Platform = detected
		}
	}
	return result
}

func firstDiagnostic(res model.StageResult) string {
	if len(res.Diagnostics) == 0 {
		return ""
	}
	return res.Diagnostics[0]
}

// runStage executes one stage, converting a panic into a fatal result.
func (p *Pipeline) runStage(ctx context.Context, stage Stage, run *Run) (res model.StageResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("stage panicked",
				"stage", stage.Name(),
				"fixture", run.Fixture.ID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			res = model.Fail(model.KindInternal, fmt.Sprintf("%s: internal error: %v", stage.Name(), r))
		}
	}()
	return stage.Run(ctx, run)
}

// outcome classifies a finished report. A fixture tagged as malformed that
// fails its input contract has the failure it exists to exercise.
func outcome(f fixture.RawFixture, report model.ValidationReport) model.Outcome {
	stage, fatal := report.FatalStage()
	switch {
	case !fatal:
		return model.OutcomeOK
	case f.ExpectMalformed && stage == model.StageInput:
		return model.OutcomeExpectedFailure
	default:
		return model.OutcomeUnexpectedFailure
	}
}

// StageCount returns the number of stages in the pipeline.
func (p *Pipeline) StageCount() int {
	return len(p.stages)
}

// StageNames returns the names of all stages in execution order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, stage := range p.stages {
		names[i] = stage.Name()
	}
	return names
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dogebooch/DougHub-sub001/internal/database"
	"github.com/Dogebooch/DougHub-sub001/internal/extract"
	"github.com/Dogebooch/DougHub-sub001/internal/fixture"
	"github.com/Dogebooch/DougHub-sub001/internal/golden"
	"github.com/Dogebooch/DougHub-sub001/internal/htmldoc"
	"github.com/Dogebooch/DougHub-sub001/internal/leakage"
	"github.com/Dogebooch/DougHub-sub001/internal/model"
	"github.com/Dogebooch/DougHub-sub001/internal/validate"
)

// DefaultPersistenceTimeout bounds the store/retrieve round trip.
const DefaultPersistenceTimeout = 5 * time.Second

// FixtureStage verifies the fixture content against its recorded digest.
type FixtureStage struct {
	hasher fixture.Hasher
}

// NewFixtureStage creates the fixture integrity stage.
func NewFixtureStage(h fixture.Hasher) *FixtureStage {
	return &FixtureStage{hasher: h}
}

// ID returns the stage identifier.
func (s *FixtureStage) ID() model.StageID { return model.StageFixture }

// Name returns the stage name.
func (s *FixtureStage) Name() string { return "fixture_integrity" }

// Run executes the stage.
func (s *FixtureStage) Run(_ context.Context, run *Run) model.StageResult {
	err := s.hasher.Verify(run.Fixture)
	switch {
	case err == nil:
		return model.Pass()
	case errors.Is(err, fixture.ErrNoRecordedDigest):
		return model.Warn(model.KindFixtureDrift,
			fmt.Sprintf("no recorded digest; computed %s %s", s.hasher.Algorithm(), run.Digest))
	default:
		return model.Fail(model.KindFixtureDrift, err.Error(),
			"golden expectations derived from this fixture are stale")
	}
}

// InputStage parses the fixture into a normalized document.
type InputStage struct{}

// NewInputStage creates the input contract stage.
func NewInputStage() *InputStage {
	return &InputStage{}
}

// ID returns the stage identifier.
func (s *InputStage) ID() model.StageID { return model.StageInput }

// Name returns the stage name.
func (s *InputStage) Name() string { return "input_contract" }

// Run executes the stage. Repaired markup is a warning; input that is not
// text, is empty or has no visible content is fatal.
func (s *InputStage) Run(_ context.Context, run *Run) model.StageResult {
	doc, err := htmldoc.Normalize(run.Fixture.Raw())
	if err != nil {
		return model.Fail(model.KindMalformedInput, err.Error())
	}
	if doc.IsEmpty() {
		return model.Fail(model.KindMalformedInput,
			fmt.Sprintf("%v: document has no visible content", htmldoc.ErrMalformedInput))
	}
	run.Document = doc

	if n := doc.ParseWarnings(); n > 0 {
		diagnostics := append([]string{fmt.Sprintf("%d parse warnings", n)}, doc.Warnings()...)
		return model.Warn(model.KindMalformedInput, diagnostics...)
	}
	return model.Pass()
}

// SchemaStage extracts the record and checks its structural contract.
type SchemaStage struct {
	engine    *extract.Engine
	validator *validate.SchemaValidator
}

// NewSchemaStage creates the schema stage.
func NewSchemaStage(engine *extract.Engine, validator *validate.SchemaValidator) *SchemaStage {
	return &SchemaStage{engine: engine, validator: validator}
}

// ID returns the stage identifier.
func (s *SchemaStage) ID() model.StageID { return model.StageSchema }

// Name returns the stage name.
func (s *SchemaStage) Name() string { return "schema" }

// Run executes the stage. A missing region or an incomplete record is a
// warning; the partial record is kept for the later stages.
func (s *SchemaStage) Run(_ context.Context, run *Run) model.StageResult {
	if run.Document == nil {
		return model.Fail(model.KindInternal, "no normalized document")
	}

	rec, err := s.engine.Extract(run.Document, run.Fixture, run.Digest)
	if err != nil && !extract.IsRegionNotFound(err) {
		return model.Fail(model.KindInternal, err.Error())
	}
	run.Record = &rec

	diagnostics := s.validator.Validate(rec)
	if err != nil {
		return model.Warn(model.KindRegionNotFound, append([]string{err.Error()}, diagnostics...)...)
	}
	if len(diagnostics) > 0 {
		return model.Warn(model.KindSchemaIncomplete, diagnostics...)
	}
	return model.Pass()
}

// ContentStage compares the record with its golden entry and checks it for
// answer leakage.
type ContentStage struct {
	golden     *golden.Store
	comparator *validate.GoldenComparator
	detector   *leakage.Detector
	platforms  map[fixture.Platform]*leakage.Detector
}

// ContentStageOption configures a ContentStage.
type ContentStageOption func(*ContentStage)

// WithPlatformDetector uses d for records extracted from platform p.
func WithPlatformDetector(p fixture.Platform, d *leakage.Detector) ContentStageOption {
	return func(s *ContentStage) {
		if d != nil {
			s.platforms[p] = d
		}
	}
}

// NewContentStage creates the content stage. A nil store disables golden
// comparison.
func NewContentStage(store *golden.Store, comparator *validate.GoldenComparator, detector *leakage.Detector, opts ...ContentStageOption) *ContentStage {
	s := &ContentStage{
		golden:     store,
		comparator: comparator,
		detector:   detector,
		platforms:  make(map[fixture.Platform]*leakage.Detector),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the stage identifier.
func (s *ContentStage) ID() model.StageID { return model.StageContent }

// Name returns the stage name.
func (s *ContentStage) Name() string { return "content" }

// Run executes the stage. Leakage outranks a golden mismatch when choosing
// the result kind; diagnostics from both are kept.
func (s *ContentStage) Run(_ context.Context, run *Run) model.StageResult {
	if run.Record == nil {
		return model.Fail(model.KindInternal, "no extracted record")
	}
	rec := *run.Record

	var (
		diagnostics []string
		kind        model.Kind
	)

	if s.golden != nil {
		entry, err := s.golden.Lookup(run.Fixture)
		switch {
		case err != nil:
			kind = model.KindContentMismatch
			diagnostics = append(diagnostics, fmt.Sprintf("golden lookup failed: %v", err))
		case entry != nil:
			c := s.comparator.Compare(*entry, rec, run.Digest)
			if !c.Matched() {
				kind = model.KindContentMismatch
			}
			diagnostics = append(diagnostics, c.Diagnostics...)
		}
	}

	if findings := s.detectorFor(rec).Detect(rec); len(findings) > 0 {
		kind = model.KindLeakageFound
		for _, f := range findings {
			diagnostics = append(diagnostics, f.String())
		}
	}

	if kind != "" {
		return model.Warn(kind, diagnostics...)
	}
	return model.Pass(diagnostics...)
}

func (s *ContentStage) detectorFor(rec model.QuestionRecord) *leakage.Detector {
	if d, ok := s.platforms[fixture.Platform(rec.Metadata[extract.MetaPlatform])]; ok {
		return d
	}
	return s.detector
}

// PersistenceStage round-trips the record through the persistence adapter.
type PersistenceStage struct {
	adapter database.Adapter
	timeout time.Duration
}

// NewPersistenceStage creates the persistence stage. A nil adapter skips
// the stage.
func NewPersistenceStage(adapter database.Adapter, timeout time.Duration) *PersistenceStage {
	if timeout <= 0 {
		timeout = DefaultPersistenceTimeout
	}
	return &PersistenceStage{adapter: adapter, timeout: timeout}
}

// ID returns the stage identifier.
func (s *PersistenceStage) ID() model.StageID { return model.StagePersistence }

// Name returns the stage name.
func (s *PersistenceStage) Name() string { return "persistence" }

type roundTrip struct {
	rec model.QuestionRecord
	err error
}

// Run executes the stage. The adapter call runs in its own goroutine so an
// adapter that ignores its context still cannot block past the timeout.
func (s *PersistenceStage) Run(ctx context.Context, run *Run) model.StageResult {
	if s.adapter == nil {
		return model.StageResult{
			Status:      model.StatusSkipped,
			Diagnostics: []string{"no persistence adapter configured"},
		}
	}
	if run.Record == nil {
		return model.Fail(model.KindInternal, "no extracted record")
	}
	rec := run.Record.Clone()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan roundTrip, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- roundTrip{err: fmt.Errorf("adapter panicked: %v", r)}
			}
		}()
		id, err := s.adapter.Store(ctx, rec)
		if err != nil {
			done <- roundTrip{err: fmt.Errorf("store: %w", err)}
			return
		}
		got, err := s.adapter.Retrieve(ctx, id)
		if err != nil {
			done <- roundTrip{err: fmt.Errorf("retrieve %s: %w", id, err)}
			return
		}
		done <- roundTrip{rec: got}
	}()

	select {
	case <-ctx.Done():
		return model.Fail(model.KindPersistenceFailure,
			fmt.Sprintf("persistence round trip did not finish within %s: %v", s.timeout, ctx.Err()))
	case rt := <-done:
		if rt.err != nil {
			return model.Fail(model.KindPersistenceFailure, rt.err.Error())
		}
		if diff := rec.Diff(rt.rec); len(diff) > 0 {
			return model.Fail(model.KindPersistenceFailure,
				append([]string{"retrieved record differs from stored record"}, diff...)...)
		}
		return model.Pass()
	}
}

// RenderStage checks that the record's fragments are safe to render.
type RenderStage struct {
	check *validate.RenderCheck
}

// NewRenderStage creates the rendering safety stage.
func NewRenderStage(check *validate.RenderCheck) *RenderStage {
	return &RenderStage{check: check}
}

// ID returns the stage identifier.
func (s *RenderStage) ID() model.StageID { return model.StageRender }

// Name returns the stage name.
func (s *RenderStage) Name() string { return "render_safety" }

// Run executes the stage.
func (s *RenderStage) Run(_ context.Context, run *Run) model.StageResult {
	if run.Record == nil {
		return model.Fail(model.KindInternal, "no extracted record")
	}
	if diagnostics := s.check.Check(*run.Record); len(diagnostics) > 0 {
		return model.Warn(model.KindRenderingUnsafe, diagnostics...)
	}
	return model.Pass()
}

// Dependencies are the collaborators of the validation pipeline. Nil fields
// get defaults, except Golden and Adapter, whose stages are then reduced.
type Dependencies struct {
	Hasher     fixture.Hasher
	Engine     *extract.Engine
	Schema     *validate.SchemaValidator
	Golden     *golden.Store
	Comparator *validate.GoldenComparator
	Leakage    *leakage.Detector

	// PlatformLeakage overrides Leakage per platform.
	PlatformLeakage map[fixture.Platform]*leakage.Detector

	Adapter            database.Adapter
	PersistenceTimeout time.Duration
	Renderer           validate.Renderer
	Logger             *slog.Logger
}

// NewValidationPipeline creates a pipeline with stages A through F.
func NewValidationPipeline(deps Dependencies, opts ...Option) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Engine == nil {
		deps.Engine = extract.NewEngine(extract.WithLogger(logger))
	}
	if deps.Schema == nil {
		deps.Schema = validate.NewSchemaValidator()
	}
	if deps.Comparator == nil {
		deps.Comparator = validate.NewGoldenComparator(validate.DefaultSimilarityThreshold, deps.Hasher)
	}
	if deps.Leakage == nil {
		deps.Leakage = leakage.NewDetector()
	}
	if deps.Renderer == nil {
		deps.Renderer = validate.NewPolicyRenderer()
	}

	contentOpts := make([]ContentStageOption, 0, len(deps.PlatformLeakage))
	for p, d := range deps.PlatformLeakage {
		contentOpts = append(contentOpts, WithPlatformDetector(p, d))
	}

	p := New(append([]Option{WithLogger(logger), WithHasher(deps.Hasher)}, opts...)...)
	p.AddStages(
		NewFixtureStage(deps.Hasher),
		NewInputStage(),
		NewSchemaStage(deps.Engine, deps.Schema),
		NewContentStage(deps.Golden, deps.Comparator, deps.Leakage, contentOpts...),
		NewPersistenceStage(deps.Adapter, deps.PersistenceTimeout),
		NewRenderStage(validate.NewRenderCheck(deps.Renderer)),
	)
	return p
}

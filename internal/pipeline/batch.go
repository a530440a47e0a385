package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dogebooch/DougHub-sub001/internal/fixture"
	"github.com/Dogebooch/DougHub-sub001/internal/model"
)

// DefaultConcurrency is the number of fixtures validated at once.
const DefaultConcurrency = 4

// BatchProcessor validates many fixtures concurrently.
// Each fixture gets a fresh pipeline from the factory and its own document
// and record; the only shared collaborators are the golden store and the
// persistence adapter, both safe for concurrent use.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each fixture.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent runs.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch validates fixtures concurrently and returns their results in
// input order.
//
// Cancelling ctx stops scheduling further fixtures; runs that have started
// finish under a context without cancellation. Fixtures that were never
// started have a nil result, and the returned error is the context's.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, fixtures []fixture.RawFixture) ([]*model.FixtureResult, error) {
	results := make([]*model.FixtureResult, len(fixtures))
	err := bp.process(ctx, fixtures, func(r *model.FixtureResult, i int) {
		// Each run writes only its own index.
		results[i] = r
	})
	return results, err
}

// ProcessBatchWithCallback validates fixtures and calls callback for each
// completed run with the fixture's index in the input slice. The callback
// is called from the goroutine that ran the fixture, so it must be safe for
// concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	fixtures []fixture.RawFixture,
	callback func(result *model.FixtureResult, index int),
) error {
	return bp.process(ctx, fixtures, callback)
}

func (bp *BatchProcessor) process(ctx context.Context, fixtures []fixture.RawFixture, callback func(*model.FixtureResult, int)) error {
	bp.logger.Info("starting batch validation",
		"total_fixtures", len(fixtures),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, f := range fixtures {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			bp.logger.Debug("validating fixture",
				"fixture", f.ID,
				"index", i+1,
				"total", len(fixtures),
			)

			p := bp.pipelineFactory()
			result := p.Execute(context.WithoutCancel(gctx), f)
			callback(result, i)

			bp.logger.Debug("fixture validated",
				"fixture", f.ID,
				"outcome", result.Outcome,
			)
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	bp.logger.Info("batch validation complete",
		"total_fixtures", len(fixtures),
		"elapsed", time.Since(startTime),
	)

	return err
}

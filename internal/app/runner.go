// Package app wires the record source, the pipeline and the progress
// aggregator into a single run and always finishes it with a report.
package app

import (
	"context"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pstitle/internal/config"
	"pstitle/internal/models"
	"pstitle/internal/pipeline"
	"pstitle/internal/progress"
	"pstitle/internal/report"
	"pstitle/internal/source"
	"pstitle/internal/storage"
)

// Deps are the collaborators a Runner drives. Stages, Sink and Out are
// required.
type Deps struct {
	Stages      pipeline.Stages
	Sink        storage.Sink
	Credentials models.Credentials
	// Interrupt delivers the one-shot interrupt. Nil means the run cannot be
	// interrupted.
	Interrupt <-chan struct{}
	Tracker   progress.Tracker
	// Out receives the final report.
	Out     io.Writer
	Palette report.Palette
	Logger  *zap.Logger
}

// Result describes a finished run.
type Result struct {
	RunID       string
	Offset      int
	Report      report.Report
	Interrupted bool
	Stats       pipeline.Stats
}

// Runner executes one run.
type Runner struct {
	cfg  *config.Config
	deps Deps
}

// NewRunner returns a Runner for cfg.
func NewRunner(cfg *config.Config, deps Deps) *Runner {
	if deps.Tracker == nil {
		deps.Tracker = progress.NopTracker{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, deps: deps}
}

// Run processes the configured records and writes the report to Out.
//
// Once the aggregator exists the report is written on every path, including
// interruption and pipeline faults; it then holds whatever was aggregated.
// Errors before that point return without a report.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	logger := r.deps.Logger.With(zap.String("run_id", res.RunID))
	started := time.Now()

	records := source.Records(r.cfg.Count)
	resumer, err := r.resumer()
	if err != nil {
		return res, err
	}
	offset, err := source.ResumeOffset(ctx, r.cfg.Skip, r.cfg.Count, resumer)
	if err != nil {
		return res, errors.Wrap(err, "resolve resume offset")
	}
	res.Offset = offset
	pending := records[offset:]
	logger.Info("starting run",
		zap.Int("count", r.cfg.Count),
		zap.Int("offset", offset),
		zap.Int("pending", len(pending)),
	)

	// The executor syncs after every emit, so one slot is enough.
	events := make(chan models.Outcome, 1)
	agg := progress.NewAggregator(offset, events, r.deps.Interrupt,
		progress.WithTracker(r.deps.Tracker),
		progress.WithLogger(logger),
	)

	runErr := r.execute(ctx, agg, pending, events, logger, &res)

	agg.Finish()
	res.Report = agg.Report()
	res.Interrupted = agg.Interrupted()

	if err := report.NewRenderer(r.deps.Palette).Write(r.deps.Out, res.Report); err != nil {
		runErr = errors.CombineErrors(runErr, err)
	}

	logger.Info("run finished",
		zap.Bool("interrupted", res.Interrupted),
		zap.Int("processed", res.Report.Processed()),
		zap.Int64("persisted", res.Stats.Persisted),
		zap.Int64("persist_failures", res.Stats.PersistFailures),
		zap.Duration("elapsed", time.Since(started)),
	)
	return res, runErr
}

func (r *Runner) execute(ctx context.Context, agg *progress.Aggregator, pending []models.Record, events chan models.Outcome, logger *zap.Logger, res *Result) error {
	if err := agg.Start(r.cfg.Count); err != nil {
		return errors.Wrap(err, "start progress tracking")
	}

	exec := pipeline.NewExecutor(r.deps.Stages, r.deps.Credentials, r.deps.Sink,
		pipeline.WithPersistConcurrency(r.cfg.PersistConcurrency),
		pipeline.WithShutdownTimeout(r.cfg.ShutdownTimeout),
		pipeline.WithLogger(logger),
	)
	stats, err := exec.Run(ctx, pending, events, func(ctx context.Context) (bool, error) {
		if err := agg.Sync(ctx); err != nil {
			return false, err
		}
		return agg.Interrupted(), nil
	})
	res.Stats = stats
	close(events)
	if err != nil {
		return errors.Wrap(err, "run pipeline")
	}
	return nil
}

// resumer returns the sink as a Resumer when the run resumes from what the
// sink already holds.
func (r *Runner) resumer() (storage.Resumer, error) {
	if !r.cfg.ResumeFromOutput {
		return nil, nil
	}
	resumer, ok := r.deps.Sink.(storage.Resumer)
	if !ok {
		return nil, errors.WithHint(
			errors.Newf("sink %T cannot tell which records it holds", r.deps.Sink),
			"disable resume_from_output or use the file, s3 or postgres sink",
		)
	}
	return resumer, nil
}

package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pstitle/internal/models"
	"pstitle/internal/storage"
)

const (
	// DefaultPersistConcurrency bounds the number of in-flight persists.
	DefaultPersistConcurrency = 10
	// DefaultShutdownTimeout bounds the wait for in-flight persists after an
	// interrupt or a fault.
	DefaultShutdownTimeout = 5 * time.Second
)

// ErrEventUndeliverable is returned when a progress event cannot be handed to
// the aggregator.
var ErrEventUndeliverable = errors.New("progress event could not be delivered")

// SyncFunc is called after each emitted progress event. It lets the consumer
// process the event and reports whether the run has been interrupted.
type SyncFunc func(ctx context.Context) (interrupted bool, err error)

// Stats summarizes what the Executor did during a run.
type Stats struct {
	// Started is the number of records whose ordered segment began.
	Started int
	// Emitted is the number of progress events delivered.
	Emitted int
	// Persisted is the number of records written by the sink.
	Persisted int64
	// PersistFailures is the number of sink writes that failed.
	PersistFailures int64
	// Abandoned is the number of persists still running when the shutdown
	// timeout expired.
	Abandoned int64
	// Interrupted reports whether the run stopped because of an interrupt.
	Interrupted bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithPersistConcurrency sets how many persists may run at once.
func WithPersistConcurrency(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.persistLimit = n
		}
	}
}

// WithShutdownTimeout sets how long in-flight persists may take to finish
// once the run stops early.
func WithShutdownTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.shutdownTimeout = d
		}
	}
}

// WithLogger sets the executor logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// Executor runs records through the stage sequence.
type Executor struct {
	steps           []step
	sink            storage.Sink
	persistLimit    int
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// NewExecutor builds an Executor running s for every record, authenticating
// with creds and persisting through sink.
func NewExecutor(s Stages, creds models.Credentials, sink storage.Sink, opts ...Option) *Executor {
	e := &Executor{
		steps:           orderedSteps(s, creds),
		sink:            sink,
		persistLimit:    DefaultPersistConcurrency,
		shutdownTimeout: DefaultShutdownTimeout,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run processes records in order, emitting one outcome per record on emit.
// The first record in the slice is treated as the first record of the run.
//
// When sync is non-nil it is called on this goroutine after each emit, so
// emit must have room for the event; a full channel is reported as
// ErrEventUndeliverable instead of blocking forever. When sync is nil, emit
// is consumed elsewhere and sends block until delivered or ctx is done.
//
// Run does not close emit. It returns after all persists it started have
// finished, or after the shutdown timeout when the run stopped early.
func (e *Executor) Run(ctx context.Context, records []models.Record, emit chan<- models.Outcome, sync SyncFunc) (Stats, error) {
	var stats Stats
	var persisted, failed atomic.Int64

	persistCtx, cancelPersist := context.WithCancel(ctx)
	defer cancelPersist()

	var g errgroup.Group
	g.SetLimit(e.persistLimit)
	var inFlight atomic.Int64

	var runErr error
	for i, rec := range records {
		it := &item{record: rec, first: i == 0}
		stats.Started++
		start := time.Now()

		if err := e.runSteps(ctx, it); err != nil {
			runErr = err
			break
		}
		if err := e.emit(ctx, emit, it.outcome, sync == nil); err != nil {
			runErr = errors.Wrapf(err, "emit progress for %s", rec)
			break
		}
		stats.Emitted++
		e.logger.Debug("record processed",
			zap.Int("index", rec.Index),
			zap.String("outcome", it.outcome.Kind()),
			zap.Duration("duration", time.Since(start)),
		)

		populated := it.populated
		inFlight.Add(1)
		g.Go(func() error {
			defer inFlight.Add(-1)
			if err := e.sink.Persist(persistCtx, populated); err != nil {
				failed.Add(1)
				e.logger.Warn("persist failed",
					zap.Int("index", populated.Record.Index),
					zap.Error(err),
				)
				return nil
			}
			persisted.Add(1)
			return nil
		})

		if sync == nil {
			continue
		}
		interrupted, err := sync(ctx)
		if err != nil {
			runErr = errors.Wrapf(err, "sync progress after %s", rec)
			break
		}
		if interrupted {
			stats.Interrupted = true
			e.logger.Info("interrupted, no further records will be started",
				zap.Int("last_index", rec.Index),
				zap.Int64("persists_in_flight", inFlight.Load()),
			)
			break
		}
	}

	stats.Abandoned = e.waitPersists(&g, &inFlight, cancelPersist, stats.Interrupted || runErr != nil)
	stats.Persisted = persisted.Load()
	stats.PersistFailures = failed.Load()
	return stats, runErr
}

func (e *Executor) runSteps(ctx context.Context, it *item) error {
	for _, s := range e.steps {
		if err := s.run(ctx, it); err != nil {
			return errors.Wrapf(err, "%s %s", s.name, it.record)
		}
	}
	return nil
}

func (e *Executor) emit(ctx context.Context, emit chan<- models.Outcome, o models.Outcome, block bool) error {
	if block {
		select {
		case emit <- o:
			return nil
		case <-ctx.Done():
			return errors.Mark(errors.Wrap(ctx.Err(), "wait for consumer"), ErrEventUndeliverable)
		}
	}
	select {
	case emit <- o:
		return nil
	default:
		return errors.Wrapf(ErrEventUndeliverable, "queue full at %d events", len(emit))
	}
}

// waitPersists waits for started persists. When bounded, it cancels them
// after the shutdown timeout and gives up waiting after a second timeout. It
// returns the number of persists still running when it gave up.
func (e *Executor) waitPersists(g *errgroup.Group, inFlight *atomic.Int64, cancel context.CancelFunc, bounded bool) int64 {
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	if !bounded {
		<-done
		return 0
	}

	timer := time.NewTimer(e.shutdownTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return 0
	case <-timer.C:
	}

	e.logger.Warn("persists still running after shutdown timeout, canceling",
		zap.Duration("timeout", e.shutdownTimeout),
		zap.Int64("in_flight", inFlight.Load()),
	)
	cancel()
	timer.Reset(e.shutdownTimeout)
	select {
	case <-done:
		return 0
	case <-timer.C:
		n := inFlight.Load()
		e.logger.Error("abandoning persists that ignored cancellation", zap.Int64("in_flight", n))
		return n
	}
}

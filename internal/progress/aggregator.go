package progress

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"pstitle/internal/models"
	"pstitle/internal/report"
)

// ErrProgressClosed is returned by Sync when the producer closed the progress
// channel and no further events will arrive.
var ErrProgressClosed = errors.New("progress stream closed")

// Aggregator consumes progress events and the interrupt signal and keeps the
// run Report up to date.
type Aggregator struct {
	progress  <-chan models.Outcome
	interrupt <-chan struct{}
	tracker   Tracker
	logger    *zap.Logger

	report      *report.Report
	interrupted bool
	finished    bool
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTracker sets the visual progress tracker. The default shows nothing.
func WithTracker(t Tracker) Option {
	return func(a *Aggregator) {
		if t != nil {
			a.tracker = t
		}
	}
}

// WithLogger sets the logger used for interrupt and drain diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAggregator returns an Aggregator reading outcomes from progress and the
// one-shot signal from interrupt. A nil interrupt channel never fires. The
// report starts with skipped records already counted.
func NewAggregator(skipped int, progress <-chan models.Outcome, interrupt <-chan struct{}, opts ...Option) *Aggregator {
	a := &Aggregator{
		progress:  progress,
		interrupt: interrupt,
		tracker:   NopTracker{},
		logger:    zap.NewNop(),
		report:    report.New(skipped),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start shows the tracker for total records, positioned after the skipped
// ones.
func (a *Aggregator) Start(total int) error {
	return a.tracker.Start(total, a.report.Skipped)
}

// Interrupted reports whether the interrupt has been observed. Once true it
// stays true.
func (a *Aggregator) Interrupted() bool {
	return a.interrupted
}

// Report returns a copy of the current tally.
func (a *Aggregator) Report() report.Report {
	return a.report.Clone()
}

// Finish finalizes the tracker. It is safe to call more than once.
func (a *Aggregator) Finish() {
	if a.finished {
		return
	}
	a.finished = true
	a.tracker.Finish()
}

// Sync blocks until one event is available and applies it. After a progress
// event it also picks up an interrupt that is already pending, so callers can
// decide on Interrupted before starting more work.
//
// Sync returns ErrProgressClosed once the producer has closed the progress
// channel, and the context error if ctx is done first. After the interrupt
// has been handled Sync only drains what is queued and returns immediately.
func (a *Aggregator) Sync(ctx context.Context) error {
	if a.interrupted {
		a.drain()
		return nil
	}

	ev, err := a.next(ctx)
	if err != nil {
		return err
	}
	a.handle(ev)

	if !a.interrupted && a.pollInterrupt() {
		a.handle(Interrupt{})
	}
	return nil
}

// Run consumes events until the producer closes the progress channel or the
// interrupt has been handled, whichever happens first.
func (a *Aggregator) Run(ctx context.Context) error {
	for !a.interrupted {
		if err := a.Sync(ctx); err != nil {
			if errors.Is(err, ErrProgressClosed) {
				return nil
			}
			return err
		}
	}
	return nil
}

// next waits for whichever source is ready first.
func (a *Aggregator) next(ctx context.Context) (Event, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "wait for progress")
		case o, ok := <-a.progress:
			if !ok {
				return nil, ErrProgressClosed
			}
			return Progress{Outcome: o}, nil
		case _, ok := <-a.interrupt:
			if !ok {
				// The signal source went away without firing.
				a.interrupt = nil
				continue
			}
			return Interrupt{}, nil
		}
	}
}

// pollInterrupt reports whether an interrupt is pending without blocking.
func (a *Aggregator) pollInterrupt() bool {
	select {
	case _, ok := <-a.interrupt:
		if !ok {
			a.interrupt = nil
			return false
		}
		return true
	default:
		return false
	}
}

func (a *Aggregator) handle(ev Event) {
	switch e := ev.(type) {
	case Progress:
		a.apply(e.Outcome)
		if !a.finished {
			a.tracker.Advance()
		}
	case Interrupt:
		a.interrupted = true
		a.interrupt = nil
		a.logger.Info("interrupt received",
			zap.Int("processed", a.report.Processed()),
			zap.Int("queued", len(a.progress)),
		)
		a.Finish()
		a.drain()
	default:
		panic(errors.AssertionFailedf("unknown progress event %T", ev))
	}
}

// drain applies the progress events queued at the time of the call. It reads
// at most the number of events buffered when it starts and never blocks.
func (a *Aggregator) drain() {
	for n := len(a.progress); n > 0; n-- {
		select {
		case o, ok := <-a.progress:
			if !ok {
				return
			}
			a.apply(o)
			a.logger.Debug("drained queued progress event", zap.String("outcome", o.Kind()))
		default:
			return
		}
	}
}

func (a *Aggregator) apply(o models.Outcome) {
	switch v := o.(type) {
	case models.Success:
		a.report.Succeeded++
	case models.PartialSuccess:
		a.report.MissingInfo++
	case models.Error:
		a.report.Failed = append(a.report.Failed, report.Failure{Record: v.Record, Message: v.Message})
	default:
		panic(errors.AssertionFailedf("unknown outcome %T", o))
	}
}

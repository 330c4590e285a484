package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pstitle/internal/models"
	"pstitle/internal/report"
	"pstitle/internal/stages"
)

// recordingTracker counts tracker calls and can raise an interrupt after a
// given number of advances.
type recordingTracker struct {
	started   bool
	total     int
	position  int
	finished  int
	interrupt chan<- struct{}
	fireAfter int
}

func (r *recordingTracker) Start(total, position int) error {
	r.started = true
	r.total = total
	r.position = position
	return nil
}

func (r *recordingTracker) Advance() {
	r.position++
	if r.interrupt != nil && r.position == r.fireAfter {
		r.interrupt <- struct{}{}
	}
}

func (r *recordingTracker) Finish() { r.finished++ }

func outcomes(from, to int) []models.Outcome {
	out := make([]models.Outcome, 0, to-from)
	for n := from; n < to; n++ {
		out = append(out, stages.Classify(models.Record{Index: n}))
	}
	return out
}

func queue(os []models.Outcome, closeAfter bool) chan models.Outcome {
	ch := make(chan models.Outcome, len(os))
	for _, o := range os {
		ch <- o
	}
	if closeAfter {
		close(ch)
	}
	return ch
}

func TestAggregator_RunAppliesInOrder(t *testing.T) {
	progress := queue(outcomes(0, 10), true)
	tracker := &recordingTracker{}
	a := NewAggregator(0, progress, nil, WithTracker(tracker))
	require.NoError(t, a.Start(10))

	require.NoError(t, a.Run(context.Background()))

	got := a.Report()
	assert.Equal(t, 6, got.Succeeded)
	assert.Equal(t, 3, got.MissingInfo)
	require.Len(t, got.Failed, 1)
	assert.Equal(t, report.Failure{Record: models.Record{Index: 0}, Message: stages.ErrNotFoundMessage}, got.Failed[0])
	assert.Equal(t, 10, tracker.position)
	assert.False(t, a.Interrupted())
}

func TestAggregator_ErrorsKeepArrivalOrder(t *testing.T) {
	progress := queue(outcomes(0, 100), true)
	a := NewAggregator(0, progress, nil)

	require.NoError(t, a.Run(context.Background()))

	got := a.Report()
	require.Len(t, got.Failed, 4)
	for i, want := range []int{0, 33, 66, 99} {
		assert.Equal(t, want, got.Failed[i].Record.Index)
	}
	assert.Equal(t, 100, got.Processed())
}

func TestAggregator_StartsAtSkipped(t *testing.T) {
	tracker := &recordingTracker{}
	a := NewAggregator(5, queue(nil, true), nil, WithTracker(tracker))
	require.NoError(t, a.Start(5))

	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, report.Report{Skipped: 5}, a.Report())
	assert.Equal(t, 5, tracker.total)
	assert.Equal(t, 5, tracker.position)
}

func TestAggregator_SyncReturnsClosed(t *testing.T) {
	a := NewAggregator(0, queue(nil, true), nil)
	assert.ErrorIs(t, a.Sync(context.Background()), ErrProgressClosed)
}

func TestAggregator_InterruptRaisedDuringEvent(t *testing.T) {
	// Lockstep: one event is queued per Sync, like the executor does.
	progress := make(chan models.Outcome, 20)
	interrupt := make(chan struct{}, 2)
	tracker := &recordingTracker{interrupt: interrupt, fireAfter: 4}
	a := NewAggregator(0, progress, interrupt, WithTracker(tracker))
	require.NoError(t, a.Start(20))

	ctx := context.Background()
	for _, o := range outcomes(0, 20) {
		progress <- o
		require.NoError(t, a.Sync(ctx))
		if a.Interrupted() {
			break
		}
	}

	require.True(t, a.Interrupted())
	got := a.Report()
	assert.Equal(t, 2, got.Succeeded)
	assert.Equal(t, 1, got.MissingInfo)
	require.Len(t, got.Failed, 1)
	assert.Equal(t, 0, got.Failed[0].Record.Index)
	assert.Equal(t, 1, tracker.finished)
	assert.Equal(t, 4, tracker.position)
}

func TestAggregator_InterruptDrainsQueuedEvents(t *testing.T) {
	progress := queue(outcomes(1, 4), false)
	interrupt := make(chan struct{}, 2)
	interrupt <- struct{}{}
	tracker := &recordingTracker{}
	a := NewAggregator(0, progress, interrupt, WithTracker(tracker))

	// Run until the interrupt is handled; whichever source select picks
	// first, the three queued events end up in the report.
	require.NoError(t, a.Run(context.Background()))

	assert.True(t, a.Interrupted())
	got := a.Report()
	assert.Equal(t, 3, got.Processed())
	assert.Equal(t, 1, tracker.finished)
	assert.LessOrEqual(t, tracker.position, 3)
}

func TestAggregator_DrainDoesNotAdvanceTracker(t *testing.T) {
	progress := make(chan models.Outcome, 4)
	interrupt := make(chan struct{}, 2)
	tracker := &recordingTracker{}
	a := NewAggregator(0, progress, interrupt, WithTracker(tracker))

	interrupt <- struct{}{}
	require.NoError(t, a.Sync(context.Background()))
	require.True(t, a.Interrupted())

	for _, o := range outcomes(1, 3) {
		progress <- o
	}
	require.NoError(t, a.Sync(context.Background()))

	got := a.Report()
	assert.Equal(t, 2, got.Processed())
	assert.Equal(t, 0, tracker.position)
	assert.Equal(t, 1, tracker.finished)
}

func TestAggregator_SecondInterruptIgnored(t *testing.T) {
	progress := make(chan models.Outcome, 1)
	interrupt := make(chan struct{}, 2)
	interrupt <- struct{}{}
	interrupt <- struct{}{}
	tracker := &recordingTracker{}
	a := NewAggregator(0, progress, interrupt, WithTracker(tracker))

	require.NoError(t, a.Sync(context.Background()))
	require.NoError(t, a.Sync(context.Background()))

	assert.True(t, a.Interrupted())
	assert.Equal(t, 1, tracker.finished)
}

func TestAggregator_ClosedInterruptIsNotAnInterrupt(t *testing.T) {
	progress := queue(outcomes(1, 3), true)
	interrupt := make(chan struct{})
	close(interrupt)
	a := NewAggregator(0, progress, interrupt)

	require.NoError(t, a.Run(context.Background()))

	assert.False(t, a.Interrupted())
	got := a.Report()
	assert.Equal(t, 2, got.Processed())
}

func TestAggregator_ContextCanceled(t *testing.T) {
	a := NewAggregator(0, make(chan models.Outcome), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := a.Sync(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAggregator_ConcurrentProducer(t *testing.T) {
	progress := make(chan models.Outcome)
	a := NewAggregator(0, progress, make(chan struct{}, 2))

	go func() {
		defer close(progress)
		for _, o := range outcomes(0, 50) {
			progress <- o
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Run(ctx))

	got := a.Report()
	assert.Equal(t, 50, got.Processed())
	require.Len(t, got.Failed, 2)
	assert.Equal(t, 33, got.Failed[1].Record.Index)
}

func TestAggregator_FinishIdempotent(t *testing.T) {
	tracker := &recordingTracker{}
	a := NewAggregator(0, nil, nil, WithTracker(tracker))
	a.Finish()
	a.Finish()
	assert.Equal(t, 1, tracker.finished)
}

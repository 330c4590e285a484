package progress

import (
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
)

// BarTracker renders a pterm progress bar.
type BarTracker struct {
	writer io.Writer
	title  string

	mu       sync.Mutex
	bar      *pterm.ProgressbarPrinter
	finished bool
}

// NewBarTracker returns a tracker drawing to w, usually stderr.
func NewBarTracker(w io.Writer, title string) *BarTracker {
	return &BarTracker{writer: w, title: title}
}

// Start implements Tracker.
func (t *BarTracker) Start(total, position int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	bar, err := pterm.DefaultProgressbar.
		WithTotal(total).
		WithCurrent(position).
		WithTitle(t.title).
		WithWriter(t.writer).
		WithShowElapsedTime(true).
		WithShowCount(true).
		WithRemoveWhenDone(false).
		Start()
	if err != nil {
		return errors.Wrap(err, "start progress bar")
	}
	t.bar = bar
	return nil
}

// Advance implements Tracker.
func (t *BarTracker) Advance() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bar == nil || t.finished {
		return
	}
	t.bar.Increment()
}

// Finish implements Tracker.
func (t *BarTracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bar == nil || t.finished {
		return
	}
	t.finished = true
	_, _ = t.bar.Stop()
}

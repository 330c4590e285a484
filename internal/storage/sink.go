// Package storage persists populated records. Every backend implements Sink;
// backends that can tell which records they already hold also implement
// Resumer, which lets a run resume after the records written previously.
package storage

import (
	"context"
	"time"

	"pstitle/internal/models"
)

// Sink writes populated records. Persist may be called from several
// goroutines at once and must keep each record's write atomic.
type Sink interface {
	Persist(ctx context.Context, rec models.PopulatedRecord) error
	Close() error
}

// Resumer is implemented by sinks that know which records they hold.
//
// FirstMissing returns the smallest record index not stored yet. Persists run
// concurrently and may fail, so the stored indices can have gaps; a run that
// resumes at FirstMissing never leaves a hole behind it.
type Resumer interface {
	FirstMissing(ctx context.Context) (int, error)
}

// firstMissing returns the smallest non-negative index absent from stored.
func firstMissing(stored map[int]struct{}) int {
	n := 0
	for {
		if _, ok := stored[n]; !ok {
			return n
		}
		n++
	}
}

// DelaySink simulates writing a record by waiting for a fixed delay.
type DelaySink struct {
	Delay time.Duration
}

// Persist implements Sink.
func (s DelaySink) Persist(ctx context.Context, _ models.PopulatedRecord) error {
	if s.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Close implements Sink.
func (DelaySink) Close() error { return nil }

package stages

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"pstitle/internal/models"
)

// ErrNotFoundMessage is the reason attached to records whose information
// could not be retrieved.
const ErrNotFoundMessage = "Could not find record information online."

// Delays configures the simulated latency of each stage.
type Delays struct {
	RateLimit time.Duration
	Auth      time.Duration
	Retrieve  time.Duration
}

// Classify returns the retrieval outcome for a record. Every 33rd record
// (including the first) cannot be found, every other 3rd record is missing
// information, and the rest succeed.
func Classify(r models.Record) models.Outcome {
	switch n := r.Index; {
	case n%33 == 0:
		return models.Error{Record: r, Message: ErrNotFoundMessage}
	case n%3 == 0:
		return models.PartialSuccess{}
	default:
		return models.Success{}
	}
}

// RateLimiter throttles record processing to one record per interval.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter allowing one record per interval. The
// initial token is spent immediately so the first record waits as well.
// A zero interval disables limiting.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	if interval <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	l := rate.NewLimiter(rate.Every(interval), 1)
	l.Allow()
	return &RateLimiter{limiter: l}
}

// Wait blocks until the next record may start or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Simulated implements the remote stages with fixed delays.
type Simulated struct {
	delays  Delays
	limiter *RateLimiter
}

// NewSimulated returns simulated stages using the given delays.
func NewSimulated(delays Delays) *Simulated {
	return &Simulated{
		delays:  delays,
		limiter: NewRateLimiter(delays.RateLimit),
	}
}

// RateLimit waits for the rate limiter.
func (s *Simulated) RateLimit(ctx context.Context) error {
	return s.limiter.Wait(ctx)
}

// Authenticate logs in to the lookup server. Only the first record processed
// in a run pays the authentication delay; later records reuse the session.
func (s *Simulated) Authenticate(ctx context.Context, first bool, _ models.Credentials) error {
	if !first {
		return nil
	}
	return sleep(ctx, s.delays.Auth)
}

// Fetch retrieves the record information and classifies the result.
func (s *Simulated) Fetch(ctx context.Context, r models.Record) (models.Outcome, error) {
	if err := sleep(ctx, s.delays.Retrieve); err != nil {
		return nil, err
	}
	return Classify(r), nil
}

// Augment attaches the retrieved outcome to the record.
func Augment(r models.Record, o models.Outcome) models.PopulatedRecord {
	return models.PopulatedRecord{Record: r, Outcome: o}
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

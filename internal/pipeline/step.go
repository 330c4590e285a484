package pipeline

import (
	"context"

	"pstitle/internal/models"
	"pstitle/internal/stages"
)

// Stages are the remote operations of the ordered segment.
type Stages interface {
	RateLimit(ctx context.Context) error
	Authenticate(ctx context.Context, first bool, creds models.Credentials) error
	Fetch(ctx context.Context, rec models.Record) (models.Outcome, error)
}

// item accumulates the results of the ordered steps for one record.
type item struct {
	record    models.Record
	first     bool
	outcome   models.Outcome
	populated models.PopulatedRecord
}

// step is one operation of the ordered segment. Steps mutate the item in
// place so later steps see earlier results.
type step struct {
	name string
	run  func(ctx context.Context, it *item) error
}

// orderedSteps returns the ordered segment for the given stages.
func orderedSteps(s Stages, creds models.Credentials) []step {
	return []step{
		{name: "rate limit", run: func(ctx context.Context, _ *item) error {
			return s.RateLimit(ctx)
		}},
		{name: "authenticate", run: func(ctx context.Context, it *item) error {
			return s.Authenticate(ctx, it.first, creds)
		}},
		{name: "fetch", run: func(ctx context.Context, it *item) error {
			o, err := s.Fetch(ctx, it.record)
			if err != nil {
				return err
			}
			it.outcome = o
			return nil
		}},
		{name: "augment", run: func(_ context.Context, it *item) error {
			it.populated = stages.Augment(it.record, it.outcome)
			return nil
		}},
	}
}

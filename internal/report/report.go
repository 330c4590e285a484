// Package report holds the run summary and renders it for the terminal.
package report

import "pstitle/internal/models"

// Failure is one record that could not be processed, with the reason.
type Failure struct {
	Record  models.Record
	Message string
}

// Report tallies the outcomes of a run.
//
// A Report is mutated by exactly one owner, the progress aggregator, and is
// read-only once handed to the renderer.
type Report struct {
	// Skipped is the number of records already in the output before the run.
	Skipped int
	// Succeeded is the number of records processed successfully.
	Succeeded int
	// MissingInfo is the number of records processed with some information
	// missing.
	MissingInfo int
	// Failed lists records that failed to process, in arrival order.
	Failed []Failure
}

// New returns an empty report with the pre-existing record count set.
func New(skipped int) *Report {
	return &Report{Skipped: skipped}
}

// Processed is the number of outcomes recorded in this run.
func (r *Report) Processed() int {
	return r.Succeeded + r.MissingInfo + len(r.Failed)
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r *Report) Clone() Report {
	out := *r
	if r.Failed != nil {
		out.Failed = make([]Failure, len(r.Failed))
		copy(out.Failed, r.Failed)
	}
	return out
}

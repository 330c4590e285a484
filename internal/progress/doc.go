// Package progress merges per-record progress events with a one-shot
// interrupt signal into a single ordered consumption point.
//
// The Aggregator waits on both sources with one select (no forwarding
// goroutine). Progress events are applied to the run Report in the order the
// executor emitted them. When the interrupt is observed the Aggregator marks
// itself interrupted, finalizes the progress tracker and drains the events
// that were already queued, so nothing emitted before the interrupt is lost.
// The Report and the interrupted flag are owned by the Aggregator and must
// only be touched from the goroutine that calls Sync or Run.
package progress

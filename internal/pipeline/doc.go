// Package pipeline drives records through the per-record stage sequence.
//
// For each record the Executor runs rate limit, authenticate, fetch and
// augment as one ordered segment, strictly in record order, then emits the
// record's outcome as a progress event. Persisting the populated record is
// order independent and runs concurrently on a bounded worker group while the
// next record's ordered segment proceeds. After every emitted event the
// Executor asks its caller whether the run was interrupted and stops
// initiating records once it was.
//
// Fetch outcomes are data, not faults: an Error outcome is emitted like any
// other. Only infrastructure failures (a canceled context, an event that
// cannot be delivered) end the run with an error. Persist failures are
// logged and counted.
package pipeline

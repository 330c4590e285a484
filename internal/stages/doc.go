// Package stages holds the per-record operations the pipeline executor runs:
// rate limiting, authentication, information retrieval and record
// augmentation.
//
// The network calls are simulated. Each stage waits for its configured delay
// and the retrieval outcome is a deterministic function of the record index
// (see Classify), so runs are reproducible. Every wait observes the context
// it is given.
package stages

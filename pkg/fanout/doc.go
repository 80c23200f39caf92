// Package fanout implements the fan-out query coordinator: one logical
// query dispatched as N concurrent shard-scoped sub-queries under a single
// batch deadline, with complete per-shard accounting.
//
// The coordinator guarantees exactly one SubQueryOutcome per dispatched
// shard regardless of failures or deadline expiry, classifies the batch as
// full success, partial success or total failure, and reports aggregate
// latency as the slowest shard's elapsed time. Shard failures are captured
// as data, never surfaced as errors.
package fanout

// Package download provides the batch orchestration engine: it splits the
// manifest across a fixed pool of workers, runs every item through the
// acquisition state machine and aggregates progress from all workers.
//
// # Supervisor
//
// The Supervisor coordinates one run:
//
//  1. Flatten collections into work items, keeping manifest order
//  2. Create output directories and clear the scratch directory
//  3. Partition the items into one contiguous shard per worker
//  4. Start the Aggregator and one worker per shard
//  5. Wait for every shard, then write playlists (optional)
//
// # Basic Usage
//
//	deps := download.NewDeps(settings, func(e download.ProgressEvent) {
//	    fmt.Println(e.Message)
//	})
//	sup := download.NewSupervisor(settings, deps)
//	snapshot, err := sup.Run(ctx, collections)
//
// # Per-item state machine
//
// Each item ends as exactly one Outcome: Skipped when a complete artifact is
// already present, Succeeded once the output is committed, or Failed with a
// reason. Failures are written next to the would-be output as an ".error"
// marker and never stop the rest of the shard.
//
// # Retry Logic
//
// Rate-limited stream requests are retried with linearly growing waits,
// bounded by RetryPolicy.MaxAttempts.
//
// # Progress Tracking
//
// The Aggregator owns all counters in a single goroutine. Workers only send
// it messages; it reports through the OnProgress callback:
//
//	type ProgressEvent struct {
//	    Message  string
//	    Level    ProgressLevel
//	    Worker   int
//	    Counters Counters
//	}
package download

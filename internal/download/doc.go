// Package download provides the download orchestration logic for fetching an
// album listing and all of its items.
//
// # Manager
//
// The Manager coordinates the entire download process:
//
//  1. Fetch and parse the listing page (through the cache)
//  2. Create the album directory
//  3. Process items concurrently with a bounded worker pool
//  4. Generate a playlist (optional)
//
// Each item runs through the Pipeline: metadata fetch, parse, media fetch
// with resume, optional conversion and, for MP3 output, ID3 tagging.
//
// # Basic Usage
//
//	manager, err := download.NewManager(opts, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	job, err := manager.Resolve(ctx, "https://www.ximalaya.com/album/123")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result := manager.Run(ctx, job, 10)
//	if !result.OK() {
//	    fmt.Println("some items failed, run again to resume")
//	}
//
// # Failure Isolation
//
// An item that fails is recorded in the RunResult with its error and the run
// carries on. Nothing is retried within a run; running again skips finished
// files and resumes partial ones.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent,
// and GetProgress exposes file and byte counters for progress bars.
package download

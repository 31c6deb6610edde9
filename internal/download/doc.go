// Package download fetches the direct links of completed tasks to local
// disk.
//
// # Fetcher
//
// The Fetcher takes a completed task and streams each of its direct links
// into a destination directory:
//
//	fetcher := download.NewFetcher(client, download.Options{Dir: "/tmp/out"}, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//	err := fetcher.FetchTask(ctx, task)
//
// # Concurrency
//
// Files download in parallel up to Options.MaxConcurrent. Each file is
// retried with an exponentially growing cooldown; a file that exhausts its
// retries is reported and skipped so one bad link does not sink the batch.
//
// # Progress Tracking
//
// Progress is reported via a callback that receives ProgressEvent values
// with a message and a severity level, plus byte/file counters exposed by
// Progress().
package download

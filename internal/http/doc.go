// Package http provides the HTTP client and the resumable media fetcher.
//
// The Client in this package handles:
//   - A static User-Agent header on every request
//   - Status checking for whole-body reads
//   - Timeout handling
//
// # Basic Usage
//
//	client := http.NewClient(http.DefaultUserAgent, 60*time.Second)
//	body, err := client.Open(ctx, "https://www.ximalaya.com/tracks/42.json")
//
// # Resumable Downloads
//
// ResumableFetcher streams a media file into <path>.temp and renames it to
// <path> when complete. An interrupted download is continued on the next call
// with a Range request:
//
//	fetcher := http.NewResumableFetcher(client, func(path string, start, written, total int64) {
//	    fmt.Printf("%s: %d/%d\n", path, written, total)
//	})
//	status, err := fetcher.Fetch(ctx, mediaURL, "/music/Album/Song.m4a")
//
// # Progress Tracking
//
// The ProgressWriter type can be used to wrap any io.Writer for progress tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   file,
//	    Total:    contentLength,
//	    OnUpdate: func(written, total int64) { /* update UI */ },
//	}
package http

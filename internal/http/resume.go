package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	ioutils "github.com/handiism/album-dl/internal/io"
	"github.com/handiism/album-dl/internal/model"
)

// FetchStatus describes what ResumableFetcher.Fetch did.
type FetchStatus int

const (
	// StatusSkipped means the destination already existed; no request was sent.
	StatusSkipped FetchStatus = iota

	// StatusDownloaded means the file was transferred from the first byte.
	StatusDownloaded

	// StatusResumed means a partial temp file was continued with a range request.
	StatusResumed
)

func (s FetchStatus) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusDownloaded:
		return "downloaded"
	case StatusResumed:
		return "resumed"
	}
	return "unknown"
}

// ProgressFunc receives the position within the artifact being written to
// path. start is the offset the fetch resumed from, so written-start is what
// this fetch transferred.
type ProgressFunc func(path string, start, written, total int64)

// ResumableFetcher downloads one remote file into one local path, continuing a
// previous partial download when one is present.
//
// The bytes of an unfinished download live in <path>.temp. A later Fetch of the
// same path sends a range request starting at the temp file's size and appends
// to it. The temp file is renamed to path only once the whole body is written,
// so an existing path is always a complete file.
//
// Example:
//
//	f := NewResumableFetcher(client, nil)
//	status, err := f.Fetch(ctx, mediaURL, "/music/Album/Song.m4a")
type ResumableFetcher struct {
	client     *Client
	onProgress ProgressFunc

	// locks serializes in-process fetches of the same destination.
	locks sync.Map // path -> *sync.Mutex
}

// NewResumableFetcher creates a fetcher. onProgress may be nil.
func NewResumableFetcher(client *Client, onProgress ProgressFunc) *ResumableFetcher {
	return &ResumableFetcher{client: client, onProgress: onProgress}
}

// Fetch retrieves url into dest.
//
// If dest already exists and is non-empty Fetch returns StatusSkipped without
// any network call. Failures are returned as *model.TransferError; bytes
// already written stay in the temp file as the resume checkpoint.
func (f *ResumableFetcher) Fetch(ctx context.Context, url, dest string) (FetchStatus, error) {
	mu, _ := f.locks.LoadOrStore(dest, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()

	if ioutils.IsComplete(dest) {
		return StatusSkipped, nil
	}

	status, err := f.fetch(ctx, url, dest)
	if err != nil {
		return status, &model.TransferError{URL: url, Path: dest, Err: err}
	}
	return status, nil
}

func (f *ResumableFetcher) fetch(ctx context.Context, url, dest string) (FetchStatus, error) {
	tempPath := dest + ioutils.TempSuffix

	var offset int64
	if info, err := os.Stat(tempPath); err == nil {
		offset = info.Size()
	}

	header := http.Header{}
	if offset > 0 {
		header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := f.client.Do(ctx, http.MethodGet, url, header)
	if err != nil {
		return StatusDownloaded, err
	}
	defer resp.Body.Close()

	status := StatusDownloaded
	flags := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	total := resp.ContentLength

	switch {
	case resp.StatusCode == http.StatusPartialContent && offset > 0:
		start, _, ok := parseContentRange(resp.Header.Get("Content-Range"))
		if !ok || start != offset {
			return StatusResumed, fmt.Errorf("server resumed at %q, want offset %d", resp.Header.Get("Content-Range"), offset)
		}
		status = StatusResumed
		if total >= 0 {
			total += offset
		}

	case resp.StatusCode == http.StatusOK:
		// Full body: either no partial file or the server ignored the range.
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		offset = 0

	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable && offset > 0:
		return StatusResumed, f.settleUnsatisfiable(resp, tempPath, dest, offset)

	default:
		return status, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	file, err := os.OpenFile(tempPath, flags, 0644)
	if err != nil {
		return status, err
	}

	pw := &ProgressWriter{Writer: file, Total: total, Written: offset}
	if f.onProgress != nil {
		start := offset
		pw.OnUpdate = func(written, total int64) { f.onProgress(dest, start, written, total) }
	}

	n, err := io.Copy(pw, resp.Body)
	if err == nil && resp.ContentLength >= 0 && n != resp.ContentLength {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		// Keep what was written; it is the next run's starting point.
		file.Close()
		return status, err
	}

	if err := ioutils.Publish(file, dest); err != nil {
		return status, err
	}
	return status, nil
}

// settleUnsatisfiable handles a 416 reply to a range request. When the server
// reports a length equal to the temp file size, the temp file already holds the
// whole artifact and is published; otherwise it cannot be trusted and is removed.
func (f *ResumableFetcher) settleUnsatisfiable(resp *http.Response, tempPath, dest string, offset int64) error {
	_, size, ok := parseContentRange(resp.Header.Get("Content-Range"))
	if ok && size == offset {
		file, err := os.OpenFile(tempPath, os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		return ioutils.Publish(file, dest)
	}

	if err := os.Remove(tempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return fmt.Errorf("range not satisfiable at offset %d, partial file discarded", offset)
}

// parseContentRange parses "bytes start-end/size" and "bytes */size".
// start is -1 for the unsatisfied form, size is -1 when reported as "*".
func parseContentRange(v string) (start, size int64, ok bool) {
	v, found := strings.CutPrefix(strings.TrimSpace(v), "bytes ")
	if !found {
		return 0, 0, false
	}
	rng, sz, found := strings.Cut(v, "/")
	if !found {
		return 0, 0, false
	}

	size = -1
	if sz != "*" {
		n, err := strconv.ParseInt(sz, 10, 64)
		if err != nil {
			return 0, 0, false
		}
		size = n
	}

	if rng == "*" {
		return -1, size, true
	}
	first, _, found := strings.Cut(rng, "-")
	if !found {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return start, size, true
}

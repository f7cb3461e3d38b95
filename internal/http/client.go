package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultUserAgent is the identity header sent when none is configured.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_0) AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/77.0.3865.120 Safari/537.36"

// Client wraps HTTP operations with a fixed identity.
//
// Client provides:
//   - A static User-Agent header on every request
//   - Response-header timeout handling (bodies may stream for longer)
//   - Status checking for whole-body reads
//
// Example usage:
//
//	client := NewClient(DefaultUserAgent, 60*time.Second)
//
//	body, err := client.Open(ctx, "https://www.ximalaya.com/tracks/42.json")
//	if err != nil {
//	    return err
//	}
//	defer body.Close()
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a new HTTP client.
//
// The timeout bounds connection setup and the wait for response headers; it
// does not cap how long a media body may take to stream.
func NewClient(userAgent string, timeout time.Duration) *Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	transport.TLSHandshakeTimeout = timeout

	return &Client{
		httpClient: &http.Client{Transport: transport},
		userAgent:  userAgent,
	}
}

// Do sends a request with the configured User-Agent and any extra headers.
//
// The caller owns the response body. Non-2xx statuses are not treated as errors.
func (c *Client) Do(ctx context.Context, method, url string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("User-Agent", c.userAgent)

	return c.httpClient.Do(req)
}

// Open performs a GET request and returns the response body.
//
// Returns an error if the request fails or the status is not 2xx; the body is
// closed in that case.
func (c *Client) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := c.Do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	return resp.Body, nil
}

// StatusError is returned for unexpected HTTP response statuses.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Status)
}

// ProgressWriter wraps a writer to track download progress.
//
// Written may start at a non-zero value when appending to a partial file, so
// OnUpdate always sees the position within the whole artifact.
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes, -1 if unknown.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

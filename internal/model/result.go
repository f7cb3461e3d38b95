package model

import "sync"

// ItemResult is the outcome of processing one item.
//
// A nil Err means the item was downloaded (and converted if required).
type ItemResult struct {
	Ref ItemReference

	// Item is the parsed metadata, nil if the pipeline failed before parsing.
	Item *Item

	// Path is the final output path, empty if unknown.
	Path string

	// Skipped is set when the output already existed and no transfer happened.
	Skipped bool

	Err error
}

// Failed reports whether the item failed.
func (r ItemResult) Failed() bool {
	return r.Err != nil
}

// Failure is a recorded item failure.
type Failure struct {
	Ref ItemReference
	Err error
}

// RunResult aggregates the outcome of a run. Record is safe for concurrent use.
type RunResult struct {
	// ID correlates log lines of one run.
	ID string

	Total    int
	Failed   int
	Failures []Failure

	// Succeeded holds the results of items that completed, in completion order.
	Succeeded []ItemResult

	mu sync.Mutex
}

// NewRunResult creates an empty RunResult for total items.
func NewRunResult(id string, total int) *RunResult {
	return &RunResult{ID: id, Total: total}
}

// Record adds one item result.
func (r *RunResult) Record(res ItemResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.Failed() {
		r.Failed++
		r.Failures = append(r.Failures, Failure{Ref: res.Ref, Err: res.Err})
		return
	}
	r.Succeeded = append(r.Succeeded, res)
}

// OK reports whether no item failed.
func (r *RunResult) OK() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Failed == 0
}

// Package preload runs the background worker that renders the most recently
// requested frame.
//
// The worker holds a single pending key. Each Request overwrites it, so older
// requests are dropped rather than queued. While a frame is being evaluated
// the pipeline checks between stages whether its key is still the pending
// one and gives up when it is not. A finished frame enters the cache only if
// its key is still wanted at that moment.
//
// Requests for frames that are already cached complete immediately on the
// caller's goroutine and never reach the worker.
package preload

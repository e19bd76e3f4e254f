// Package pipeline turns a frame key into display pixels.
//
// Evaluation runs four stages in order:
//
//	decode -> resize -> color -> warp
//
// Each stage result is kept in a small stage cache keyed by the prefix of the
// frame key that determines it, so changing only the warp quad re-runs only
// the warp stage, and changing the LUT re-runs color and warp. The stage
// cache is scoped to one source frame and is dropped when an evaluation for a
// different source or index starts.
//
// Between stages the pipeline asks the caller whether the key is still
// current. When it is not, evaluation stops with ErrCanceled.
//
// A Pipeline is owned by one goroutine and is not safe for concurrent use.
package pipeline

package preload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"frame-viewer/internal/cache"
	"frame-viewer/internal/frame"
	"frame-viewer/internal/logging"
	"frame-viewer/internal/memory"
	"frame-viewer/internal/metrics"
	"frame-viewer/internal/pipeline"
)

// State is the worker's evaluation state.
type State int

const (
	// Idle means nothing is being evaluated.
	Idle State = iota
	// Evaluating means a frame is in the pipeline.
	Evaluating
	// Canceled means the last evaluation was abandoned for a newer request.
	Canceled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Evaluating:
		return "evaluating"
	case Canceled:
		return "canceled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Evaluator renders a frame key, consulting current between stages.
// *pipeline.Pipeline implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, key frame.Key, current func(frame.Key) bool) (*frame.RGB8, error)
}

// Config holds worker settings.
type Config struct {
	// Budget is the frame cache byte budget enforced before every evaluation.
	Budget int64
	// IdleWait, when positive, wakes an idle worker periodically to enforce
	// the budget again.
	IdleWait time.Duration
}

// Worker evaluates the latest requested frame on its own goroutine.
type Worker struct {
	cache    *cache.FrameCache
	eval     Evaluator
	budget   atomic.Int64
	idleWait time.Duration

	mu        sync.Mutex
	wanted    frame.Key
	hasWanted bool
	state     State
	active    frame.Key

	wake chan struct{}

	listenersMu sync.Mutex
	ready       map[uint64]func(frame.Key)
	failed      map[uint64]func(frame.Key, error)
	nextID      uint64

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped worker.
func New(c *cache.FrameCache, eval Evaluator, cfg Config) *Worker {
	w := &Worker{
		cache:    c,
		eval:     eval,
		idleWait: cfg.IdleWait,
		wake:     make(chan struct{}, 1),
		ready:    make(map[uint64]func(frame.Key)),
		failed:   make(map[uint64]func(frame.Key, error)),
	}
	w.budget.Store(cfg.Budget)
	return w
}

// Start launches the worker loop. It stops when ctx is done or Stop is
// called.
func (w *Worker) Start(ctx context.Context) {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	if w.done != nil {
		return
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.run(ctx, w.done)
	logging.Debug("Preload worker started (budget %s)", memory.FormatBytes(w.budget.Load()))
}

// Stop ends the loop and waits for an in-flight evaluation to return.
func (w *Worker) Stop() {
	w.runMu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	logging.Debug("Preload worker stopped")
}

// Request makes key the wanted frame. Cached keys are reported ready at once;
// invalid keys are ignored.
func (w *Worker) Request(key frame.Key) {
	if !key.Valid() {
		metrics.WorkerRequestsTotal.WithLabelValues("ignored").Inc()
		logging.Debug("Ignoring request for invalid key")
		return
	}

	if w.cache.Contains(key) {
		w.mu.Lock()
		w.hasWanted = false
		w.mu.Unlock()

		metrics.WorkerRequestsTotal.WithLabelValues("cached").Inc()
		w.emitReady(key)
		return
	}

	w.mu.Lock()
	if w.hasWanted && w.wanted != key {
		metrics.WorkerRequestsTotal.WithLabelValues("superseded").Inc()
	}
	w.wanted, w.hasWanted = key, true
	w.mu.Unlock()

	metrics.WorkerRequestsTotal.WithLabelValues("queued").Inc()
	w.signal()
}

// Wanted returns the pending key, if any.
func (w *Worker) Wanted() (frame.Key, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.wanted, w.hasWanted
}

// State returns the current state and the key it applies to.
func (w *Worker) State() (State, frame.Key) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state, w.active
}

// SetBudget changes the cache budget and wakes the loop to enforce it.
func (w *Worker) SetBudget(bytes int64) {
	w.budget.Store(bytes)
	logging.Debug("Frame cache budget set to %s", memory.FormatBytes(bytes))
	w.signal()
}

// Budget returns the cache budget in bytes.
func (w *Worker) Budget() int64 {
	return w.budget.Load()
}

// OnReady registers fn to be called with each key that became available.
func (w *Worker) OnReady(fn func(frame.Key)) (cancel func()) {
	w.listenersMu.Lock()
	id := w.nextID
	w.nextID++
	w.ready[id] = fn
	w.listenersMu.Unlock()

	return func() {
		w.listenersMu.Lock()
		delete(w.ready, id)
		w.listenersMu.Unlock()
	}
}

// OnFailed registers fn to be called when a key could not be rendered.
func (w *Worker) OnFailed(fn func(frame.Key, error)) (cancel func()) {
	w.listenersMu.Lock()
	id := w.nextID
	w.nextID++
	w.failed[id] = fn
	w.listenersMu.Unlock()

	return func() {
		w.listenersMu.Lock()
		delete(w.failed, id)
		w.listenersMu.Unlock()
	}
}

func (w *Worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		w.cache.EvictUntilUnderBudget(w.budget.Load())

		key, ok := w.next()
		if !ok {
			var idle <-chan time.Time
			if w.idleWait > 0 {
				idle = time.After(w.idleWait)
			}
			select {
			case <-ctx.Done():
				return
			case <-w.wake:
			case <-idle:
			}
			continue
		}

		if ctx.Err() != nil {
			return
		}
		w.evaluate(ctx, key)
	}
}

// next claims the pending key for evaluation.
func (w *Worker) next() (frame.Key, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.hasWanted {
		return frame.Key{}, false
	}
	w.state, w.active = Evaluating, w.wanted
	return w.wanted, true
}

// current reports whether key is still the pending key.
func (w *Worker) current(key frame.Key) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hasWanted && w.wanted == key
}

// claim clears the pending key if it is still key.
func (w *Worker) claim(key frame.Key) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hasWanted && w.wanted == key {
		w.hasWanted = false
		return true
	}
	return false
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *Worker) evaluate(ctx context.Context, key frame.Key) {
	metrics.WorkerBusy.Set(1)
	defer metrics.WorkerBusy.Set(0)

	start := time.Now()
	img, err := w.safeEvaluate(ctx, key)

	switch {
	case errors.Is(err, pipeline.ErrCanceled):
		w.setState(Canceled)
		metrics.WorkerEvaluationsTotal.WithLabelValues("canceled").Inc()
		logging.Debug("Canceled %s: %v", key, err)
		return

	case err != nil:
		w.claim(key)
		w.setState(Idle)
		metrics.WorkerEvaluationsTotal.WithLabelValues("failed").Inc()
		logging.Warn("Failed to render %s: %v", key, err)
		w.emitFailed(key, err)
		return
	}

	if !w.cache.PutIf(key, img, func() bool { return w.claim(key) }) {
		w.setState(Canceled)
		metrics.WorkerEvaluationsTotal.WithLabelValues("canceled").Inc()
		logging.Debug("Discarded %s: superseded before commit", key)
		return
	}

	w.setState(Idle)
	elapsed := time.Since(start)
	metrics.WorkerEvaluationsTotal.WithLabelValues("ready").Inc()
	metrics.WorkerEvaluationDuration.Observe(elapsed.Seconds())
	logging.Debug("Rendered %s in %v", key, elapsed)
	w.emitReady(key)
}

func (w *Worker) safeEvaluate(ctx context.Context, key frame.Key) (img *frame.RGB8, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Panic while rendering %s: %v", key, r)
			img, err = nil, fmt.Errorf("panic rendering %s: %v", key, r)
		}
	}()
	return w.eval.Evaluate(ctx, key, w.current)
}

func (w *Worker) emitReady(key frame.Key) {
	w.listenersMu.Lock()
	fns := make([]func(frame.Key), 0, len(w.ready))
	for _, fn := range w.ready {
		fns = append(fns, fn)
	}
	w.listenersMu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}

func (w *Worker) emitFailed(key frame.Key, err error) {
	w.listenersMu.Lock()
	fns := make([]func(frame.Key, error), 0, len(w.failed))
	for _, fn := range w.failed {
		fns = append(fns, fn)
	}
	w.listenersMu.Unlock()

	for _, fn := range fns {
		fn(key, err)
	}
}

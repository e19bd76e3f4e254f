package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"frame-viewer/internal/logging"
	"frame-viewer/internal/metrics"
)

// DefaultFPS is used when no positive frame rate is configured.
const DefaultFPS = 24.0

// Direction is the playback direction.
type Direction int

const (
	Paused Direction = iota
	Forward
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Paused:
		return "paused"
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// Config holds the initial clock settings. In and Out default to First and
// Last when both are zero.
type Config struct {
	FPS   float64
	First int
	Last  int
	In    int
	Out   int
	// Available reports whether a frame is ready to be shown.
	Available func(index int) bool
	// Advance is called with the new frame index after every step and seek.
	Advance func(index int)
}

// Clock steps through frames.
type Clock struct {
	mu        sync.Mutex
	fps       float64
	first     int
	last      int
	in        int
	out       int
	frame     int
	direction Direction
	stalled   bool

	available func(int) bool
	advance   func(int)

	reset chan struct{}
}

// NewClock creates a paused clock positioned on the first frame of the range.
func NewClock(cfg Config) *Clock {
	c := &Clock{
		fps:       cfg.FPS,
		first:     cfg.First,
		last:      cfg.Last,
		in:        cfg.In,
		out:       cfg.Out,
		available: cfg.Available,
		advance:   cfg.Advance,
		reset:     make(chan struct{}, 1),
	}
	if c.fps <= 0 {
		c.fps = DefaultFPS
	}
	if c.last < c.first {
		c.last = c.first
	}
	if c.in == 0 && c.out == 0 {
		c.in, c.out = c.first, c.last
	}
	c.frame, _ = c.rangeLocked()
	return c
}

// rangeLocked returns the effective [lo, hi] playback range.
func (c *Clock) rangeLocked() (int, int) {
	lo, hi := max(c.in, c.first), min(c.out, c.last)
	if hi < lo {
		return c.first, c.last
	}
	return lo, hi
}

// Tick advances one frame in the current direction. It returns the new frame
// and whether the clock moved.
func (c *Clock) Tick() (int, bool) {
	c.mu.Lock()
	if c.direction == Paused {
		f := c.frame
		c.mu.Unlock()
		return f, false
	}

	if c.available != nil && !c.available(c.frame) {
		if !c.stalled {
			logging.Debug("Playback stalled on frame %d", c.frame)
		}
		c.stalled = true
		f := c.frame
		c.mu.Unlock()
		metrics.PlaybackTicksTotal.WithLabelValues("stalled").Inc()
		return f, false
	}
	c.stalled = false

	lo, hi := c.rangeLocked()
	next := c.frame
	if c.direction == Forward {
		next++
		if next > hi || next < lo {
			next = lo
		}
	} else {
		next--
		if next < lo || next > hi {
			next = hi
		}
	}
	c.frame = next
	advance := c.advance
	c.mu.Unlock()

	metrics.PlaybackTicksTotal.WithLabelValues("advanced").Inc()
	metrics.PlaybackFrame.Set(float64(next))
	if advance != nil {
		advance(next)
	}
	return next, true
}

// FrameReady tells a stalled clock that index has been rendered. The clock
// resumes on its next tick if index is the frame it waits for.
func (c *Clock) FrameReady(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stalled && index == c.frame {
		c.stalled = false
		logging.Debug("Playback resumed at frame %d", index)
	}
}

// Run ticks at the configured rate until ctx is done.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.reset:
			ticker.Reset(c.interval())
		case <-ticker.C:
			c.Tick()
		}
	}
}

func (c *Clock) interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(float64(time.Second) / c.fps)
}

// SetFPS changes the tick rate. Values <= 0 select DefaultFPS.
func (c *Clock) SetFPS(fps float64) {
	if fps <= 0 {
		fps = DefaultFPS
	}
	c.mu.Lock()
	c.fps = fps
	c.mu.Unlock()

	select {
	case c.reset <- struct{}{}:
	default:
	}
}

// FPS returns the tick rate.
func (c *Clock) FPS() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// Play starts playback in dir. Paused stops it.
func (c *Clock) Play(dir Direction) {
	c.mu.Lock()
	c.direction = dir
	if dir == Paused {
		c.stalled = false
	}
	c.mu.Unlock()
	logging.Debug("Playback %s", dir)
}

// Pause stops playback.
func (c *Clock) Pause() {
	c.Play(Paused)
}

// Seek moves to index, clamped to the frame bounds, and reports it through
// Advance.
func (c *Clock) Seek(index int) int {
	c.mu.Lock()
	index = max(c.first, min(index, c.last))
	c.frame = index
	c.stalled = false
	advance := c.advance
	c.mu.Unlock()

	metrics.PlaybackFrame.Set(float64(index))
	if advance != nil {
		advance(index)
	}
	return index
}

// SetRange sets the in and out points. The frame moves into the range if it
// lies outside.
func (c *Clock) SetRange(in, out int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if out < in {
		in, out = out, in
	}
	c.in, c.out = in, out
	lo, hi := c.rangeLocked()
	if c.frame < lo || c.frame > hi {
		c.frame = lo
	}
}

// SetBounds sets the source frame bounds and resets the range to cover them.
func (c *Clock) SetBounds(first, last int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if last < first {
		last = first
	}
	c.first, c.last = first, last
	c.in, c.out = first, last
	c.frame = first
	c.stalled = false
}

// Range returns the effective playback range.
func (c *Clock) Range() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rangeLocked()
}

// Frame returns the current frame index.
func (c *Clock) Frame() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// Direction returns the playback direction.
func (c *Clock) Direction() Direction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.direction
}

// Stalled reports whether the clock waits for the current frame.
func (c *Clock) Stalled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stalled
}

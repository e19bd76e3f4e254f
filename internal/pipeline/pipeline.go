package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"frame-viewer/internal/frame"
	"frame-viewer/internal/logging"
	"frame-viewer/internal/lut"
	"frame-viewer/internal/media"
	"frame-viewer/internal/metrics"
)

// ErrCanceled is returned when the key being evaluated stopped being current.
var ErrCanceled = errors.New("evaluation canceled")

// Sources provides the decoder for a source path.
type Sources interface {
	Decoder(path string) (media.Decoder, error)
}

// LUTs provides parsed color tables by path.
type LUTs interface {
	Table(path string) (*lut.Table, error)
}

// Stage identifies a pipeline stage.
type Stage int

const (
	StageDecode Stage = iota
	StageResize
	StageColor
	StageWarp
	numStages
)

func (s Stage) String() string {
	switch s {
	case StageDecode:
		return "decode"
	case StageResize:
		return "resize"
	case StageColor:
		return "color"
	case StageWarp:
		return "warp"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// StageStats reports stage cache activity since the last reset.
type StageStats struct {
	Source  string
	Index   int
	Entries int
	Hits    int
	Misses  int
}

type stageSlot struct {
	key frame.Key
	buf *frame.Buffer
}

// stageCache holds at most one buffer per stage, all for the same source
// frame. gen changes on every reset so a store computed before the reset is
// dropped.
type stageCache struct {
	mu     sync.Mutex
	gen    uint64
	source string
	index  int
	scoped bool
	slots  [numStages]*stageSlot
	hits   int
	misses int
}

func (c *stageCache) scope(key frame.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scoped && c.source == key.Source && c.index == key.Index {
		return
	}
	c.resetLocked()
	c.source, c.index, c.scoped = key.Source, key.Index, true
}

func (c *stageCache) resetLocked() {
	c.gen++
	c.source, c.index, c.scoped = "", 0, false
	c.slots = [numStages]*stageSlot{}
	c.hits, c.misses = 0, 0
}

func (c *stageCache) lookup(s Stage, key frame.Key) (*frame.Buffer, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slot := c.slots[s]; slot != nil && slot.key == key {
		c.hits++
		return slot.buf, c.gen, true
	}
	c.misses++
	return nil, c.gen, false
}

func (c *stageCache) store(s Stage, key frame.Key, buf *frame.Buffer, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.gen {
		c.slots[s] = &stageSlot{key: key, buf: buf}
	}
}

// Pipeline evaluates frame keys.
type Pipeline struct {
	sources Sources
	luts    LUTs
	stages  stageCache
}

// New creates a pipeline reading frames from sources and color tables from
// luts. luts may be nil when no key carries a LUT.
func New(sources Sources, luts LUTs) *Pipeline {
	return &Pipeline{sources: sources, luts: luts}
}

// Evaluate renders key. current is consulted after every stage; once it
// reports false, or ctx is done, Evaluate returns ErrCanceled. A nil current
// treats the key as current throughout.
func (p *Pipeline) Evaluate(ctx context.Context, key frame.Key, current func(frame.Key) bool) (*frame.RGB8, error) {
	if !key.Valid() {
		return nil, fmt.Errorf("invalid frame key %q", key.String())
	}
	if current == nil {
		current = func(frame.Key) bool { return true }
	}
	checkpoint := func(after Stage) error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w after %s: %w", ErrCanceled, after, err)
		}
		if !current(key) {
			logging.Debug("Evaluation of %s superseded after %s", key, after)
			return fmt.Errorf("%w after %s", ErrCanceled, after)
		}
		return nil
	}

	p.stages.scope(key)

	buf, err := p.stage(StageDecode, key.DecodeKey(), func() (*frame.Buffer, error) {
		return p.decode(key)
	})
	if err != nil {
		return nil, err
	}
	if err := checkpoint(StageDecode); err != nil {
		return nil, err
	}

	in := buf
	buf, err = p.stage(StageResize, key.ResizeKey(), func() (*frame.Buffer, error) {
		return Resize(in, key.Tier.Factor()), nil
	})
	if err != nil {
		return nil, err
	}
	if err := checkpoint(StageResize); err != nil {
		return nil, err
	}

	in = buf
	buf, err = p.stage(StageColor, key.ColorKey(), func() (*frame.Buffer, error) {
		return p.color(key, in)
	})
	if err != nil {
		return nil, err
	}
	if err := checkpoint(StageColor); err != nil {
		return nil, err
	}

	in = buf
	buf, err = p.stage(StageWarp, key, func() (*frame.Buffer, error) {
		if !key.HasWarp {
			return in, nil
		}
		return WarpPerspective(in, key.Warp)
	})
	if err != nil {
		return nil, err
	}
	if err := checkpoint(StageWarp); err != nil {
		return nil, err
	}

	return buf.RGB8(), nil
}

// stage returns the cached result for (s, key) or computes and stores it.
func (p *Pipeline) stage(s Stage, key frame.Key, compute func() (*frame.Buffer, error)) (*frame.Buffer, error) {
	buf, gen, ok := p.stages.lookup(s, key)
	if ok {
		metrics.PipelineStageCache.WithLabelValues(s.String(), "hit").Inc()
		return buf, nil
	}
	metrics.PipelineStageCache.WithLabelValues(s.String(), "miss").Inc()

	start := time.Now()
	buf, err := compute()
	if err != nil {
		return nil, err
	}
	metrics.PipelineStageDuration.WithLabelValues(s.String()).Observe(time.Since(start).Seconds())

	p.stages.store(s, key, buf, gen)
	return buf, nil
}

func (p *Pipeline) decode(key frame.Key) (*frame.Buffer, error) {
	dec, err := p.sources.Decoder(key.Source)
	if err != nil {
		return nil, &media.DecodeError{Source: key.Source, Index: key.Index, Err: err}
	}

	index := dec.Metadata().Clamp(key.Index)
	if index != key.Index {
		logging.Debug("Frame %d of %s clamped to %d", key.Index, key.Source, index)
	}

	img, err := dec.Read(index)
	if err != nil {
		var de *media.DecodeError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, &media.DecodeError{Source: key.Source, Index: index, Err: err}
	}
	return frame.FromImage(img), nil
}

func (p *Pipeline) color(key frame.Key, buf *frame.Buffer) (*frame.Buffer, error) {
	if key.LUT == "" {
		return buf, nil
	}
	if p.luts == nil {
		return nil, fmt.Errorf("no LUT registry for %s", key.LUT)
	}
	t, err := p.luts.Table(key.LUT)
	if err != nil {
		return nil, fmt.Errorf("load LUT for %s: %w", key, err)
	}
	return t.Apply(buf), nil
}

// ResetStages drops every cached stage result. Call it when the inputs
// behind a key change without the key changing, like a reloaded LUT file.
func (p *Pipeline) ResetStages() {
	p.stages.mu.Lock()
	defer p.stages.mu.Unlock()
	p.stages.resetLocked()
}

// StageStats returns stage cache counters for the current source frame.
func (p *Pipeline) StageStats() StageStats {
	c := &p.stages
	c.mu.Lock()
	defer c.mu.Unlock()
	st := StageStats{Source: c.source, Index: c.index, Hits: c.hits, Misses: c.misses}
	for _, slot := range c.slots {
		if slot != nil {
			st.Entries++
		}
	}
	return st
}

package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"frame-viewer/internal/cache"
	"frame-viewer/internal/frame"
	"frame-viewer/internal/logging"
	"frame-viewer/internal/lut"
	"frame-viewer/internal/media"
	"frame-viewer/internal/media/container"
	"frame-viewer/internal/memory"
	"frame-viewer/internal/metrics"
	"frame-viewer/internal/pipeline"
	"frame-viewer/internal/playback"
	"frame-viewer/internal/preload"
)

// ErrNoSource is returned by operations that need an opened source.
var ErrNoSource = errors.New("no source opened")

// Options configures a Session. Zero values select defaults.
type Options struct {
	Budget    int64
	LUTBudget int64
	Tier      frame.Tier
	// FPS overrides the source frame rate when positive.
	FPS float64
	// IdleWait is how often an idle worker re-checks the budget.
	IdleWait time.Duration
	Openers  media.Openers
}

// DefaultOpeners opens image sequences and container video.
func DefaultOpeners() media.Openers {
	o := media.DefaultOpeners()
	o[media.KindVideo] = container.Open
	return o
}

// Stats is a snapshot of the session state.
type Stats struct {
	Source      string
	UsedBytes   int64
	Budget      int64
	Entries     int
	Wanted      frame.Key
	HasWanted   bool
	WorkerState preload.State
	Active      frame.Key
	Frame       int
	Direction   playback.Direction
	Stalled     bool
	Stages      pipeline.StageStats
}

// Session is the process-wide frame engine.
type Session struct {
	openers  media.Openers
	decoders *media.Registry
	luts     *lut.Registry
	pipe     *pipeline.Pipeline
	cache    *cache.FrameCache
	worker   *preload.Worker
	clock    *playback.Clock

	mu         sync.RWMutex
	source     string
	meta       media.Metadata
	tier       frame.Tier
	lutPath    string
	lutEnabled bool
	warp       frame.Quad
	hasWarp    bool
	fps        float64

	stopReady func()
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New builds a session. Call Start before requesting frames.
func New(opts Options) (*Session, error) {
	if opts.Budget <= 0 {
		opts.Budget = memory.DefaultCacheBudget
	}
	if opts.LUTBudget <= 0 {
		opts.LUTBudget = memory.DefaultLUTBudget
	}
	if opts.Openers == nil {
		opts.Openers = DefaultOpeners()
	}

	luts, err := lut.NewRegistry(opts.LUTBudget)
	if err != nil {
		return nil, err
	}

	s := &Session{
		openers:  opts.Openers,
		decoders: media.NewRegistry(opts.Openers),
		luts:     luts,
		cache:    cache.New(),
		fps:      opts.FPS,
		tier:     opts.Tier,
	}
	s.pipe = pipeline.New(&activeSource{reg: s.decoders}, luts)
	s.worker = preload.New(s.cache, s.pipe, preload.Config{Budget: opts.Budget, IdleWait: opts.IdleWait})
	s.clock = playback.NewClock(playback.Config{
		FPS:       opts.FPS,
		Available: func(i int) bool { return s.cache.Contains(s.Key(i)) },
		Advance:   func(i int) { s.worker.Request(s.Key(i)) },
	})
	s.stopReady = s.worker.OnReady(func(k frame.Key) {
		if k == s.Key(k.Index) {
			s.clock.FrameReady(k.Index)
		}
	})

	metrics.FrameCacheBudgetBytes.Set(float64(opts.Budget))
	return s, nil
}

// Start runs the worker and the playback clock until ctx is done or Close is
// called.
func (s *Session) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.worker.Start(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clock.Run(ctx)
	}()
}

// Close stops the worker and the clock and releases decoders and LUTs.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		s.worker.Stop()
		s.stopReady()

		err = s.decoders.Close()
		s.luts.Close()
		logging.Debug("Session closed")
	})
	return err
}

// Open makes path the current source. The cache is cleared, playback bounds
// follow the source and its first frame is requested.
func (s *Session) Open(path string) (media.Metadata, error) {
	meta, err := s.openers.Probe(path)
	if err != nil {
		return media.Metadata{}, fmt.Errorf("open %s: %w", path, err)
	}

	s.mu.Lock()
	s.source, s.meta = path, meta
	fps := s.fps
	s.mu.Unlock()
	if fps <= 0 {
		fps = meta.FPS
	}

	s.clock.Pause()
	s.clock.SetBounds(meta.FirstFrame, meta.LastFrame)
	s.clock.SetFPS(fps)
	s.cache.Clear()
	s.pipe.ResetStages()

	logging.Info("Opened %s: frames %d-%d, %dx%d, %.3f fps",
		path, meta.FirstFrame, meta.LastFrame, meta.Width, meta.Height, s.clock.FPS())
	s.clock.Seek(meta.FirstFrame)
	return meta, nil
}

// Metadata returns the metadata of the current source.
func (s *Session) Metadata() (media.Metadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta, s.source != ""
}

// Key returns the frame key for index under the current settings. Without
// a source it returns the invalid key.
func (s *Session) Key(index int) frame.Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.source == "" {
		return frame.Key{}
	}
	k := frame.Key{Source: s.source, Index: index, Tier: s.tier}
	if s.lutEnabled {
		k.LUT = s.lutPath
	}
	if s.hasWarp {
		k = k.WithWarp(s.warp)
	}
	return k
}

// Current returns the key of the frame under the playhead and its image if
// it has been rendered.
func (s *Session) Current() (frame.Key, *frame.RGB8, bool) {
	k := s.Key(s.clock.Frame())
	if !k.Valid() {
		return k, nil, false
	}
	img, ok := s.cache.Get(k)
	return k, img, ok
}

// Seek moves the playhead and requests the frame.
func (s *Session) Seek(index int) int {
	return s.clock.Seek(index)
}

// Play starts playback in dir.
func (s *Session) Play(dir playback.Direction) {
	s.clock.Play(dir)
	s.refresh()
}

// Pause stops playback.
func (s *Session) Pause() {
	s.clock.Pause()
}

// refresh re-requests the frame under the playhead after a setting changed.
func (s *Session) refresh() {
	s.worker.Request(s.Key(s.clock.Frame()))
}

// SetBudget changes the frame cache budget.
func (s *Session) SetBudget(bytes int64) {
	s.worker.SetBudget(bytes)
	metrics.FrameCacheBudgetBytes.Set(float64(bytes))
}

// SetTier changes the resolution tier.
func (s *Session) SetTier(t frame.Tier) {
	s.mu.Lock()
	s.tier = t
	s.mu.Unlock()
	s.refresh()
}

// SetFPS overrides the playback rate. fps <= 0 reverts to the source rate.
func (s *Session) SetFPS(fps float64) {
	s.mu.Lock()
	s.fps = fps
	if fps <= 0 {
		fps = s.meta.FPS
	}
	s.mu.Unlock()
	s.clock.SetFPS(fps)
}

// LoadLUT parses path and enables it. Loading the current path again
// rereads the file. Parse errors are returned and leave the current LUT
// untouched.
func (s *Session) LoadLUT(path string) error {
	s.mu.RLock()
	reload := path == s.lutPath
	s.mu.RUnlock()

	s.luts.Forget(path)
	if _, err := s.luts.Use(path); err != nil {
		return err
	}
	if reload {
		// Keys are unchanged, so rendered frames and stage results would
		// otherwise be served from the old table.
		s.pipe.ResetStages()
		s.cache.Clear()
		logging.Info("Reloaded LUT %s, frame cache cleared", path)
	}
	s.mu.Lock()
	s.lutPath, s.lutEnabled = path, true
	s.mu.Unlock()
	s.refresh()
	return nil
}

// SetLUTEnabled toggles the loaded LUT.
func (s *Session) SetLUTEnabled(enabled bool) {
	s.mu.Lock()
	s.lutEnabled = enabled && s.lutPath != ""
	s.mu.Unlock()
	s.refresh()
}

// SetWarp applies a perspective warp to every frame. Quads with NaN or
// infinite corners are rejected and leave the current warp in place.
func (s *Session) SetWarp(q frame.Quad) error {
	if !q.Finite() {
		return fmt.Errorf("set warp %v: %w", q, frame.ErrNonFiniteQuad)
	}
	s.mu.Lock()
	s.warp, s.hasWarp = q, true
	s.mu.Unlock()
	s.refresh()
	return nil
}

// ClearWarp removes the perspective warp.
func (s *Session) ClearWarp() {
	s.mu.Lock()
	s.warp, s.hasWarp = frame.Quad{}, false
	s.mu.Unlock()
	s.refresh()
}

// SetRange sets the playback in and out points.
func (s *Session) SetRange(in, out int) {
	s.clock.SetRange(in, out)
}

func (s *Session) Cache() *cache.FrameCache { return s.cache }

func (s *Session) Worker() *preload.Worker { return s.worker }

func (s *Session) Clock() *playback.Clock { return s.clock }

// Stats returns a snapshot of the session.
func (s *Session) Stats() Stats {
	s.mu.RLock()
	source := s.source
	s.mu.RUnlock()

	wanted, hasWanted := s.worker.Wanted()
	state, active := s.worker.State()
	return Stats{
		Source:      source,
		UsedBytes:   s.cache.UsedBytes(),
		Budget:      s.worker.Budget(),
		Entries:     s.cache.Len(),
		Wanted:      wanted,
		HasWanted:   hasWanted,
		WorkerState: state,
		Active:      active,
		Frame:       s.clock.Frame(),
		Direction:   s.clock.Direction(),
		Stalled:     s.clock.Stalled(),
		Stages:      s.pipe.StageStats(),
	}
}

// GetStats implements metrics.StatsProvider.
func (s *Session) GetStats() metrics.Stats {
	st := s.Stats()
	return metrics.Stats{
		CacheBytes:   st.UsedBytes,
		CacheBudget:  st.Budget,
		CacheEntries: st.Entries,
		Frame:        st.Frame,
		WorkerBusy:   st.WorkerState == preload.Evaluating,
	}
}

package cli

import (
	"context"
	"fmt"

	"frame-viewer/internal/filesystem"
	"frame-viewer/internal/frame"
	"frame-viewer/internal/logging"
	"frame-viewer/internal/media"
	"frame-viewer/internal/metrics"
	"frame-viewer/internal/startup"
	"frame-viewer/internal/viewer"
)

// initRuntime wires process-wide instrumentation and the optional libvips
// fallback. The returned func releases what it set up.
func initRuntime(cfg *startup.Config) func() {
	metrics.InitializeMetrics()
	metrics.AppInfo.WithLabelValues(startup.Version, startup.Commit, startup.GoVersion).Set(1)
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	if !cfg.VipsEnabled {
		return func() {}
	}
	if err := media.InitVips(); err != nil {
		logging.Warn("libvips unavailable, still images use the Go decoders only: %v", err)
		return func() {}
	}
	return media.ShutdownVips
}

// openSession builds a started session for path with cfg applied.
func openSession(ctx context.Context, cfg *startup.Config, path string) (*viewer.Session, media.Metadata, error) {
	s, err := viewer.New(viewer.Options{
		Budget:    cfg.CacheBudget,
		LUTBudget: cfg.LUTCacheBudget,
		Tier:      cfg.Tier,
		FPS:       cfg.FPS,
	})
	if err != nil {
		return nil, media.Metadata{}, err
	}
	s.Start(ctx)

	meta, err := s.Open(path)
	if err != nil {
		s.Close()
		return nil, media.Metadata{}, err
	}

	if cfg.LUTPath != "" {
		if err := s.LoadLUT(cfg.LUTPath); err != nil {
			s.Close()
			return nil, media.Metadata{}, err
		}
		s.SetLUTEnabled(cfg.LUTEnabled)
	}
	if cfg.HasRange() {
		in, out := rangeOrBounds(cfg, meta)
		s.SetRange(in, out)
		s.Seek(in)
	}
	return s, meta, nil
}

// rangeOrBounds fills an unset in or out point from the source bounds.
func rangeOrBounds(cfg *startup.Config, meta media.Metadata) (int, int) {
	in, out := cfg.InPoint, cfg.OutPoint
	if in == 0 {
		in = meta.FirstFrame
	}
	if out == 0 {
		out = meta.LastFrame
	}
	return meta.Clamp(in), meta.Clamp(out)
}

func parseCorners(s string) (frame.Quad, bool, error) {
	if s == "" {
		return frame.Quad{}, false, nil
	}
	q, err := frame.ParseQuad(s)
	if err != nil {
		return frame.Quad{}, false, fmt.Errorf("invalid --corners: %w", err)
	}
	return q, true, nil
}

package main

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"frame-viewer/internal/media"
	"frame-viewer/internal/metrics"
	"frame-viewer/internal/viewer"
)

type grayDecoder struct{ meta media.Metadata }

func (d *grayDecoder) Metadata() media.Metadata { return d.meta }

func (d *grayDecoder) Read(int) (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, d.meta.Width, d.meta.Height)), nil
}

func (d *grayDecoder) Close() error { return nil }

// The session is the collector's stats provider in serve and play.
var _ metrics.StatsProvider = (*viewer.Session)(nil)

func TestSessionStatsReachCollector(t *testing.T) {
	meta := media.Metadata{FirstFrame: 7, LastFrame: 9, FPS: 24, Width: 4, Height: 4}
	s, err := viewer.New(viewer.Options{
		Budget: 4096,
		Openers: media.Openers{media.KindImage: func(string) (media.Decoder, error) {
			return &grayDecoder{meta: meta}, nil
		}},
	})
	if err != nil {
		t.Fatalf("viewer.New() error = %v", err)
	}
	s.Start(context.Background())
	defer s.Close()

	if _, err := s.Open("plate.0007.png"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for s.Cache().Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first frame never cached")
		}
		time.Sleep(time.Millisecond)
	}

	c := metrics.NewCollector(s, time.Hour)
	c.Start()
	defer c.Stop()

	for time.Now().Before(deadline) && testutil.ToFloat64(metrics.FrameCacheEntries) != 1 {
		time.Sleep(time.Millisecond)
	}
	if got := testutil.ToFloat64(metrics.FrameCacheEntries); got != 1 {
		t.Errorf("cache entries gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.FrameCacheBytes); got != 48 {
		t.Errorf("cache bytes gauge = %v, want 48", got)
	}
	if got := testutil.ToFloat64(metrics.FrameCacheBudgetBytes); got != 4096 {
		t.Errorf("budget gauge = %v, want 4096", got)
	}
	if got := testutil.ToFloat64(metrics.PlaybackFrame); got != 7 {
		t.Errorf("frame gauge = %v, want 7", got)
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"frame-viewer/internal/media"
	"frame-viewer/internal/startup"
	"frame-viewer/internal/streaming"
	"frame-viewer/internal/viewer"
)

type solidDecoder struct {
	meta media.Metadata
}

func (d *solidDecoder) Metadata() media.Metadata { return d.meta }

func (d *solidDecoder) Read(index int) (image.Image, error) {
	img := image.NewNRGBA(image.Rect(0, 0, d.meta.Width, d.meta.Height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(index)
		img.Pix[i+3] = 0xff
	}
	return img, nil
}

func (d *solidDecoder) Close() error { return nil }

var testMeta = media.Metadata{FirstFrame: 1, LastFrame: 10, FPS: 24, Width: 4, Height: 2}

func newTestRouter(t *testing.T, open bool) (*viewer.Session, http.Handler) {
	t.Helper()
	opener := func(string) (media.Decoder, error) { return &solidDecoder{meta: testMeta}, nil }
	s, err := viewer.New(viewer.Options{
		Budget:  1 << 20,
		Openers: media.Openers{media.KindImage: opener},
	})
	if err != nil {
		t.Fatalf("viewer.New() error = %v", err)
	}
	s.Start(context.Background())
	t.Cleanup(func() { s.Close() })

	if open {
		if _, err := s.Open("plate.0001.png"); err != nil {
			t.Fatalf("Open() error = %v", err)
		}
	}
	return s, NewRouter(New(s))
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, http.NoBody))
	return w
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		open       bool
		wantCode   int
		wantStatus string
	}{
		{"no source", false, http.StatusServiceUnavailable, statusStarting},
		{"source opened", true, http.StatusOK, statusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, r := newTestRouter(t, tt.open)
			w := serve(r, http.MethodGet, "/healthz")

			if w.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, w.Code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != tt.wantStatus || resp.Ready != tt.open {
				t.Errorf("got status=%q ready=%v", resp.Status, resp.Ready)
			}
			if resp.Version != startup.Version {
				t.Errorf("Version = %q, want %q", resp.Version, startup.Version)
			}
		})
	}
}

func TestLivenessCheckHead(t *testing.T) {
	_, r := newTestRouter(t, false)

	if w := serve(r, http.MethodGet, "/livez"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "alive") {
		t.Errorf("GET /livez = %d %q", w.Code, w.Body.String())
	}
	if w := serve(r, http.MethodHead, "/livez"); w.Code != http.StatusOK || w.Body.Len() != 0 {
		t.Errorf("HEAD /livez = %d with %d body bytes", w.Code, w.Body.Len())
	}
}

func TestGetVersion(t *testing.T) {
	_, r := newTestRouter(t, false)
	w := serve(r, http.MethodGet, "/version")

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %q", ct)
	}
	var info startup.BuildInfo
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if info != startup.GetBuildInfo() {
		t.Errorf("GetVersion() = %+v, want %+v", info, startup.GetBuildInfo())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, r := newTestRouter(t, false)
	w := serve(r, http.MethodGet, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "frame_viewer_cache_bytes") {
		t.Error("metrics output missing frame_viewer_cache_bytes")
	}
}

func waitCached(t *testing.T, s *viewer.Session, index int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !s.Cache().Contains(s.Key(index)) {
		if time.Now().After(deadline) {
			t.Fatalf("frame %d never cached", index)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestGetFrame(t *testing.T) {
	s, r := newTestRouter(t, true)
	waitCached(t, s, 1)

	w := serve(r, http.MethodGet, "/api/frame?index=1")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	img, err := png.Decode(w.Body)
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 2 {
		t.Errorf("frame bounds = %v, want 4x2", b)
	}
	if r, _, _, _ := img.At(0, 0).RGBA(); r>>8 != 1 {
		t.Errorf("red channel = %d, want 1", r>>8)
	}
}

func TestGetFrameRequestsUncached(t *testing.T) {
	s, r := newTestRouter(t, true)

	w := serve(r, http.MethodGet, "/api/frame?index=7")
	if w.Code != http.StatusAccepted && w.Code != http.StatusOK {
		t.Fatalf("Expected status 202, got %d", w.Code)
	}
	waitCached(t, s, 7)
}

func TestGetFrameErrors(t *testing.T) {
	tests := []struct {
		name     string
		open     bool
		target   string
		wantCode int
	}{
		{"no source", false, "/api/frame?index=1", http.StatusConflict},
		{"not a number", true, "/api/frame?index=abc", http.StatusBadRequest},
		{"before first", true, "/api/frame?index=0", http.StatusBadRequest},
		{"after last", true, "/api/frame?index=11", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, r := newTestRouter(t, tt.open)
			if w := serve(r, http.MethodGet, tt.target); w.Code != tt.wantCode {
				t.Errorf("%s = %d, want %d", tt.target, w.Code, tt.wantCode)
			}
		})
	}
}

func TestSeekAndState(t *testing.T) {
	_, r := newTestRouter(t, true)

	w := serve(r, http.MethodPost, "/api/seek?index=5")
	if w.Code != http.StatusOK {
		t.Fatalf("seek status = %d: %s", w.Code, w.Body.String())
	}
	var st StateResponse
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if st.Frame != 5 || st.FirstFrame != 1 || st.LastFrame != 10 {
		t.Errorf("state = %+v", st)
	}
	if st.Source != "plate.0001.png" {
		t.Errorf("Source = %q", st.Source)
	}

	if w := serve(r, http.MethodGet, "/api/seek?index=5"); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/seek = %d, want 405", w.Code)
	}
}

func TestPlay(t *testing.T) {
	_, r := newTestRouter(t, true)

	tests := []struct {
		direction string
		wantCode  int
		want      string
	}{
		{"reverse", http.StatusOK, "reverse"},
		{"pause", http.StatusOK, "paused"},
		{"sideways", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.direction, func(t *testing.T) {
			w := serve(r, http.MethodPost, "/api/play?direction="+tt.direction)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.want == "" {
				return
			}
			var st StateResponse
			if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if st.Direction != tt.want {
				t.Errorf("Direction = %q, want %q", st.Direction, tt.want)
			}
		})
	}
}

func TestGetCache(t *testing.T) {
	s, r := newTestRouter(t, true)
	waitCached(t, s, 1)

	w := serve(r, http.MethodGet, "/api/cache")
	var resp CacheResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.BudgetBytes != 1<<20 || resp.Budget != "1.0 MiB" {
		t.Errorf("budget = %d (%s)", resp.BudgetBytes, resp.Budget)
	}
	if len(resp.Entries) == 0 || resp.UsedBytes < 24 {
		t.Fatalf("cache = %+v, want frame 1 present", resp)
	}
	if resp.Entries[0].Index != 1 || resp.Entries[0].Bytes != 24 {
		t.Errorf("first entry = %+v", resp.Entries[0])
	}
}

func TestStreamFrames(t *testing.T) {
	s, r := newTestRouter(t, true)
	waitCached(t, s, 1)

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/stream")
	if err != nil {
		t.Fatalf("GET /api/stream error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Fatalf("Content-Type = %q", ct)
	}
	part, err := multipart.NewReader(resp.Body, streaming.Boundary).NextPart()
	if err != nil {
		t.Fatalf("NextPart() error = %v", err)
	}
	img, err := jpeg.Decode(part)
	if err != nil {
		t.Fatalf("jpeg.Decode() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 2 {
		t.Errorf("frame bounds = %v, want 4x2", b)
	}
}

func TestStreamFramesNoSource(t *testing.T) {
	_, r := newTestRouter(t, false)
	if w := serve(r, http.MethodGet, "/api/stream"); w.Code != http.StatusConflict {
		t.Errorf("GET /api/stream = %d, want 409", w.Code)
	}
}

func TestStateReportsStageCache(t *testing.T) {
	_, r := newTestRouter(t, true)

	deadline := time.Now().Add(2 * time.Second)
	for {
		var st StateResponse
		if err := json.NewDecoder(serve(r, http.MethodGet, "/api/state").Body).Decode(&st); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		// decode, resize, color and warp each hold the first frame.
		if st.Stages.Entries == 4 {
			if st.Stages.Index != 1 || st.Stages.Misses != 4 {
				t.Errorf("stages = %+v, want frame 1 with 4 misses", st.Stages)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("stage cache never filled: %+v", st.Stages)
		}
		time.Sleep(time.Millisecond)
	}
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	"frame-viewer/internal/frame"
	"frame-viewer/internal/logging"
	"frame-viewer/internal/streaming"
)

// StreamFrames pushes the frame under the playhead as a live JPEG stream.
// A new part is sent whenever the displayed frame changes, and the last one
// is repeated every KeepAlive.
func (h *Handlers) StreamFrames(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session.Metadata(); !ok {
		writeJSONError(w, "no source opened", http.StatusConflict)
		return
	}

	cfg := streaming.DefaultConfig()
	fw := streaming.NewFrameWriter(r.Context(), w, cfg)
	defer fw.Close()

	changed := make(chan struct{}, 1)
	stop := h.session.Worker().OnReady(func(frame.Key) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer stop()

	keepAlive := time.NewTicker(cfg.KeepAlive)
	defer keepAlive.Stop()

	var last frame.Key
	send := func(force bool) error {
		key, img, ok := h.session.Current()
		if !ok || (key == last && !force) {
			return nil
		}
		last = key
		return fw.WriteFrame(img)
	}

	err := send(true)
	for err == nil {
		select {
		case <-r.Context().Done():
			return
		case <-changed:
			err = send(false)
		case <-keepAlive.C:
			err = send(true)
		}
	}

	if !errors.Is(err, streaming.ErrClientGone) {
		logging.Debug("Frame stream ended: %v", err)
	}
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"

	"frame-viewer/internal/logging"
	"frame-viewer/internal/mediatypes"
	"frame-viewer/internal/playback"
)

// CacheEntry describes one cached frame.
type CacheEntry struct {
	Key   string `json:"key"`
	Index int    `json:"index"`
	Tier  string `json:"tier"`
	Bytes int64  `json:"bytes"`
}

// CacheResponse is the body of GET /api/cache.
type CacheResponse struct {
	UsedBytes   int64        `json:"usedBytes"`
	BudgetBytes int64        `json:"budgetBytes"`
	Used        string       `json:"used"`
	Budget      string       `json:"budget"`
	Entries     []CacheEntry `json:"entries"`
}

// StateResponse is the body of GET /api/state.
type StateResponse struct {
	Source      string  `json:"source"`
	FirstFrame  int     `json:"firstFrame"`
	LastFrame   int     `json:"lastFrame"`
	InPoint     int     `json:"inPoint"`
	OutPoint    int     `json:"outPoint"`
	FPS         float64 `json:"fps"`
	Frame       int     `json:"frame"`
	Direction   string  `json:"direction"`
	Stalled     bool    `json:"stalled"`
	WorkerState string  `json:"workerState"`
	Active      string  `json:"active,omitempty"`
	Wanted      string  `json:"wanted,omitempty"`
	Stages      Stages  `json:"stages"`
}

// Stages reports the pipeline's per-frame stage cache.
type Stages struct {
	Index   int `json:"index"`
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
}

// GetCache lists the frame cache contents.
func (h *Handlers) GetCache(w http.ResponseWriter, _ *http.Request) {
	c := h.session.Cache()
	snap := c.Snapshot()
	budget := h.session.Worker().Budget()

	resp := CacheResponse{
		UsedBytes:   c.UsedBytes(),
		BudgetBytes: budget,
		Used:        humanize.IBytes(uint64(max(c.UsedBytes(), 0))),
		Budget:      humanize.IBytes(uint64(max(budget, 0))),
		Entries:     make([]CacheEntry, 0, len(snap)),
	}
	for _, e := range snap {
		resp.Entries = append(resp.Entries, CacheEntry{
			Key:   e.Key.String(),
			Index: e.Key.Index,
			Tier:  e.Key.Tier.String(),
			Bytes: e.Bytes,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, resp)
}

// GetState reports the playback and worker state.
func (h *Handlers) GetState(w http.ResponseWriter, _ *http.Request) {
	st := h.session.Stats()
	meta, _ := h.session.Metadata()
	in, out := h.session.Clock().Range()

	resp := StateResponse{
		Source:      st.Source,
		FirstFrame:  meta.FirstFrame,
		LastFrame:   meta.LastFrame,
		InPoint:     in,
		OutPoint:    out,
		FPS:         h.session.Clock().FPS(),
		Frame:       st.Frame,
		Direction:   st.Direction.String(),
		Stalled:     st.Stalled,
		WorkerState: st.WorkerState.String(),
		Stages: Stages{
			Index:   st.Stages.Index,
			Entries: st.Stages.Entries,
			Hits:    st.Stages.Hits,
			Misses:  st.Stages.Misses,
		},
	}
	if st.Active.Valid() {
		resp.Active = st.Active.String()
	}
	if st.HasWanted {
		resp.Wanted = st.Wanted.String()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, resp)
}

// GetFrame serves a rendered frame as PNG when it is cached. Otherwise the
// frame is requested from the preload worker and 202 is returned so the
// client can poll.
func (h *Handlers) GetFrame(w http.ResponseWriter, r *http.Request) {
	index, ok := h.frameIndex(w, r)
	if !ok {
		return
	}

	key := h.session.Key(index)
	img, cached := h.session.Cache().Get(key)
	if !cached {
		h.session.Worker().Request(key)
		writeJSONStatus(w, http.StatusAccepted, "rendering")
		return
	}

	w.Header().Set("Content-Type", mediatypes.GetMimeType(".png"))
	w.Header().Set("Cache-Control", "no-cache")
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		logging.Warn("failed to encode frame %s: %v", key, err)
	}
}

// Seek moves the playhead to ?index= and returns the resulting state.
func (h *Handlers) Seek(w http.ResponseWriter, r *http.Request) {
	index, ok := h.frameIndex(w, r)
	if !ok {
		return
	}
	h.session.Seek(index)
	h.GetState(w, r)
}

// Play starts playback in ?direction= (forward, reverse) or pauses it.
func (h *Handlers) Play(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session.Metadata(); !ok {
		writeJSONError(w, "no source opened", http.StatusConflict)
		return
	}

	switch r.URL.Query().Get("direction") {
	case "", "forward":
		h.session.Play(playback.Forward)
	case "reverse":
		h.session.Play(playback.Reverse)
	case "pause", "paused":
		h.session.Pause()
	default:
		writeJSONError(w, "direction must be forward, reverse or pause", http.StatusBadRequest)
		return
	}
	h.GetState(w, r)
}

func (h *Handlers) frameIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	meta, ok := h.session.Metadata()
	if !ok {
		writeJSONError(w, "no source opened", http.StatusConflict)
		return 0, false
	}

	raw := r.URL.Query().Get("index")
	if raw == "" {
		return h.session.Clock().Frame(), true
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		writeJSONError(w, "index must be an integer", http.StatusBadRequest)
		return 0, false
	}
	if index < meta.FirstFrame || index > meta.LastFrame {
		writeJSONError(w, "index outside source range", http.StatusBadRequest)
		return 0, false
	}
	return index, true
}

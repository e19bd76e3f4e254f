package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"frame-viewer/internal/middleware"
)

// NewRouter registers the status API routes.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logger(middleware.DefaultLoggingConfig()))
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)
	r.Handle("/metrics", h.MetricsHandler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/cache", h.GetCache).Methods(http.MethodGet)
	api.HandleFunc("/state", h.GetState).Methods(http.MethodGet)
	api.HandleFunc("/frame", h.GetFrame).Methods(http.MethodGet)
	api.HandleFunc("/stream", h.StreamFrames).Methods(http.MethodGet)
	api.HandleFunc("/seek", h.Seek).Methods(http.MethodPost)
	api.HandleFunc("/play", h.Play).Methods(http.MethodPost)

	return r
}

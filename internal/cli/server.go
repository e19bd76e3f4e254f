package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"frame-viewer/internal/handlers"
	"frame-viewer/internal/logging"
	"frame-viewer/internal/metrics"
	"frame-viewer/internal/startup"
	"frame-viewer/internal/viewer"
)

const collectInterval = 5 * time.Second

// statusServer is the HTTP status endpoint plus the metrics collector that
// samples the session behind it.
type statusServer struct {
	srv       *http.Server
	collector *metrics.Collector
	errc      chan error
}

// startStatusServer listens on addr and serves the status API of s.
func startStatusServer(addr string, s *viewer.Session, started time.Time) (*statusServer, error) {
	router := handlers.NewRouter(handlers.New(s))
	startup.LogHTTPRoutes(router)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	ss := &statusServer{
		srv: &http.Server{
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0, // /api/stream is long-lived
			IdleTimeout:  60 * time.Second,
		},
		collector: metrics.NewCollector(s, collectInterval),
		errc:      make(chan error, 1),
	}
	ss.collector.Start()

	go func() {
		if err := ss.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ss.errc <- err
		}
		close(ss.errc)
	}()

	startup.LogServerStarted(ln.Addr().String(), time.Since(started))
	return ss, nil
}

// Err reports a failure of the listener. It is closed on shutdown.
func (ss *statusServer) Err() <-chan error {
	return ss.errc
}

func (ss *statusServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping metrics collector")
	ss.collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := ss.srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}
}

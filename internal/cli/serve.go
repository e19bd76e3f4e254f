package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"frame-viewer/internal/media"
	"frame-viewer/internal/playback"
	"frame-viewer/internal/startup"
)

func (a *app) newServeCommand() *cobra.Command {
	var play bool
	cmd := &cobra.Command{
		Use:   "serve <path>",
		Short: "Open a source and expose the session over HTTP",
		Long: `Open a source in a viewer session and serve its status API:
health and version probes, Prometheus metrics, cache contents, playback
state, rendered frames as PNG, and seek/play controls.`,
		Example: `  frame-viewer serve plate.1001.exr --metrics-addr :8080
  frame-viewer serve clip.mov --play --budget 1GiB`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()
			cfg, err := a.loadConfig(cmd, map[string]string{
				startup.KeyMetricsAddr: "metrics-addr",
				startup.KeyFPS:         "fps",
			})
			if err != nil {
				return err
			}
			if cfg.MetricsAddr == "" {
				cfg.MetricsAddr = ":8080"
			}

			startup.PrintBanner()
			startup.LogSystemInfo()
			startup.LogConfig(cfg)
			defer initRuntime(cfg)()
			startup.LogDecoderInit(media.IsVipsAvailable())

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			openStart := time.Now()
			s, meta, err := openSession(ctx, cfg, args[0])
			if err != nil {
				return err
			}
			startup.LogSessionOpened(args[0], meta.FirstFrame, meta.LastFrame, s.Clock().FPS(), time.Since(openStart))
			if play {
				s.Play(playback.Forward)
			}

			srv, err := startStatusServer(cfg.MetricsAddr, s, started)
			if err != nil {
				s.Close()
				return err
			}
			return handleShutdown(srv, s.Close)
		},
	}

	cmd.Flags().String("metrics-addr", "", "listen address (default :8080)")
	cmd.Flags().Float64("fps", 0, "playback rate (default: source rate)")
	cmd.Flags().BoolVar(&play, "play", false, "start playing forward immediately")
	return cmd
}

// handleShutdown blocks until a signal arrives or the server fails, then
// stops the server and the session.
func handleShutdown(srv *statusServer, closeSession func() error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var serveErr error
	select {
	case sig := <-sigChan:
		startup.LogShutdownInitiated("received " + sig.String())
	case serveErr = <-srv.Err():
		startup.LogShutdownInitiated("server error")
	}

	srv.shutdown()

	startup.LogShutdownStep("Closing viewer session")
	if err := closeSession(); err != nil {
		startup.LogShutdownStepComplete("Viewer session closed with error: " + err.Error())
	} else {
		startup.LogShutdownStepComplete("Viewer session closed")
	}

	startup.LogShutdownComplete()
	return serveErr
}

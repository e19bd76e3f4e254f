package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"frame-viewer/internal/frame"
	"frame-viewer/internal/playback"
	"frame-viewer/internal/startup"
	"frame-viewer/internal/viewer"
)

const statusRefresh = 100 * time.Millisecond

func (a *app) newPlayCommand() *cobra.Command {
	var (
		reverse bool
		frames  int
		corners string
	)
	cmd := &cobra.Command{
		Use:   "play <path>",
		Short: "Play a source through the frame cache and report progress",
		Long: `Play a source headlessly: frames are rendered by the preload worker,
cached within the byte budget and advanced by the playback clock, which
holds on a frame until it is ready. A status line shows the playhead,
cache fill and worker state.`,
		Example: `  frame-viewer play plate.1001.exr --fps 24 --frames 240
  frame-viewer play clip.mov --reverse --tier quarter --metrics-addr :9090`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()
			cfg, err := a.loadConfig(cmd, map[string]string{
				startup.KeyFPS:         "fps",
				startup.KeyInPoint:     "in",
				startup.KeyOutPoint:    "out",
				startup.KeyMetricsAddr: "metrics-addr",
			})
			if err != nil {
				return err
			}
			defer initRuntime(cfg)()

			warp, hasWarp, err := parseCorners(corners)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, _, err := openSession(ctx, cfg, args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			if hasWarp {
				if err := s.SetWarp(warp); err != nil {
					return err
				}
			}

			if cfg.MetricsAddr != "" {
				srv, err := startStatusServer(cfg.MetricsAddr, s, started)
				if err != nil {
					return err
				}
				defer srv.shutdown()
			}

			var shown atomic.Int64
			done := make(chan struct{})
			cancelReady := s.Worker().OnReady(func(k frame.Key) {
				if k != s.Key(k.Index) {
					return
				}
				for {
					n := shown.Load()
					if frames > 0 && n >= int64(frames) {
						return
					}
					if shown.CompareAndSwap(n, n+1) {
						if n+1 == int64(frames) {
							close(done)
						}
						return
					}
				}
			})
			defer cancelReady()

			dir := playback.Forward
			if reverse {
				dir = playback.Reverse
			}
			s.Play(dir)

			status := newStatusLine(cmd.OutOrStdout())
			ticker := time.NewTicker(statusRefresh)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					status.finish(s, shown.Load())
					return nil
				case <-done:
					s.Pause()
					status.finish(s, shown.Load())
					return nil
				case <-ticker.C:
					status.update(s, shown.Load())
				}
			}
		},
	}

	cmd.Flags().BoolVar(&reverse, "reverse", false, "play backwards")
	cmd.Flags().IntVar(&frames, "frames", 0, "stop after this many frames were shown (default: until interrupted)")
	cmd.Flags().Float64("fps", 0, "playback rate (default: source rate)")
	cmd.Flags().Int("in", 0, "in point (default: source start)")
	cmd.Flags().Int("out", 0, "out point (default: source end)")
	cmd.Flags().String("metrics-addr", "", "serve the status API on this address while playing")
	cmd.Flags().StringVar(&corners, "corners", "", `warp corners "x,y x,y x,y x,y" (TL TR BR BL)`)
	return cmd
}

// statusLine redraws a single line in place on terminals and prints one line
// per second otherwise.
type statusLine struct {
	w        io.Writer
	tty      bool
	fd       int
	lastLine time.Time
}

func newStatusLine(w io.Writer) *statusLine {
	sl := &statusLine{w: w}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		sl.tty, sl.fd = true, int(f.Fd())
	}
	return sl
}

func formatStatus(st viewer.Stats, shown int64) string {
	stall := ""
	if st.Stalled {
		stall = " waiting"
	}
	return fmt.Sprintf("frame %d %s%s | shown %d | cache %s/%s (%d) | worker %s",
		st.Frame, st.Direction, stall, shown,
		humanize.IBytes(uint64(max(st.UsedBytes, 0))), humanize.IBytes(uint64(max(st.Budget, 0))),
		st.Entries, st.WorkerState)
}

func (sl *statusLine) update(s *viewer.Session, shown int64) {
	line := formatStatus(s.Stats(), shown)
	if !sl.tty {
		if time.Since(sl.lastLine) >= time.Second {
			sl.lastLine = time.Now()
			fmt.Fprintln(sl.w, line)
		}
		return
	}
	if width, _, err := term.GetSize(sl.fd); err == nil && width > 1 && len(line) >= width {
		line = line[:width-1]
	}
	fmt.Fprintf(sl.w, "\r%s\x1b[K", line)
}

func (sl *statusLine) finish(s *viewer.Session, shown int64) {
	line := formatStatus(s.Stats(), shown)
	if sl.tty {
		fmt.Fprintf(sl.w, "\r%s\x1b[K\n", line)
		return
	}
	fmt.Fprintln(sl.w, strings.TrimSpace(line))
}

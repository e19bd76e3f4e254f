package cli

import (
	"fmt"
	"math"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"frame-viewer/internal/export"
	"frame-viewer/internal/logging"
	"frame-viewer/internal/startup"
	"frame-viewer/internal/viewer"
)

func (a *app) newExportCommand() *cobra.Command {
	var (
		output  string
		corners string
		fps     float64
	)
	cmd := &cobra.Command{
		Use:   "export <path>",
		Short: "Render a frame range to an image sequence or an mp4",
		Example: `  frame-viewer export plate.1001.exr --in 1010 --out 1050 -o review/sh010.%04d.jpg
  frame-viewer export clip.mov --tier half --lut show.cube -o review.mp4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd, map[string]string{
				startup.KeyInPoint:  "in",
				startup.KeyOutPoint: "out",
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

			first, last := cfg.InPoint, cfg.OutPoint
			if first != 0 && last == 0 {
				last = math.MaxInt
			}
			opts := export.Options{
				Source:  args[0],
				First:   first,
				Last:    last,
				Tier:    cfg.Tier,
				Warp:    warp,
				HasWarp: hasWarp,
				Output:  output,
				FPS:     fps,
				Openers: viewer.DefaultOpeners(),
				Progress: func(done, total int) {
					if done == total || done%25 == 0 {
						logging.Info("Exported %d/%d frames", done, total)
					}
				},
			}
			if cfg.LUTEnabled {
				opts.LUT = cfg.LUTPath
			}

			res, err := export.Run(ctx, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d frames (%d-%d) to %s as %s in %v\n",
				res.Frames, res.First, res.Last, res.Output, res.Format, res.Duration)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path: a sequence pattern or a .mp4 file")
	cmd.Flags().Int("in", 0, "first frame to export (default: source start)")
	cmd.Flags().Int("out", 0, "last frame to export (default: source end)")
	cmd.Flags().StringVar(&corners, "corners", "", `warp corners "x,y x,y x,y x,y" (TL TR BR BL)`)
	cmd.Flags().Float64Var(&fps, "fps", 0, "mp4 frame rate (default: source rate)")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"frame-viewer/internal/frame"
	"frame-viewer/internal/media"
	"frame-viewer/internal/viewer"
)

func (a *app) newProbeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <path>",
		Short: "Print the frame range, rate and size of a source",
		Example: `  frame-viewer probe shots/sh010/plate.1001.exr
  frame-viewer probe clip.mov`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			defer initRuntime(cfg)()

			meta, err := viewer.DefaultOpeners().Probe(args[0])
			if err != nil {
				return err
			}

			kind := string(media.DetectKind(args[0]))
			if media.IsSequenceMember(args[0]) {
				kind = "image sequence"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "source:  %s (%s)\n", args[0], kind)
			fmt.Fprintf(out, "frames:  %d-%d (%d)\n", meta.FirstFrame, meta.LastFrame, meta.FrameCount())
			fmt.Fprintf(out, "fps:     %.3f\n", meta.FPS)
			fmt.Fprintf(out, "size:    %dx%d\n", meta.Width, meta.Height)
			for _, t := range []frame.Tier{frame.TierFull, frame.TierHalf, frame.TierQuarter} {
				f := t.Factor()
				bytes := int64(max(meta.Width/f, 1)) * int64(max(meta.Height/f, 1)) * 3
				fmt.Fprintf(out, "frame @ %-7s %s, %d fit in %s\n", t.String()+":",
					humanize.IBytes(uint64(bytes)), cfg.CacheBudget/bytes, humanize.IBytes(uint64(cfg.CacheBudget)))
			}
			return nil
		},
	}
}

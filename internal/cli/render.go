package cli

import (
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"frame-viewer/internal/frame"
	"frame-viewer/internal/logging"
	"frame-viewer/internal/lut"
	"frame-viewer/internal/media"
	"frame-viewer/internal/pipeline"
	"frame-viewer/internal/viewer"
)

func (a *app) newRenderCommand() *cobra.Command {
	var (
		index   int
		corners string
		output  string
	)
	cmd := &cobra.Command{
		Use:   "render <path>",
		Short: "Render one frame through the pipeline and save it",
		Example: `  frame-viewer render plate.1001.exr --frame 1042 -o check.png
  frame-viewer render clip.mov --frame 12 --tier half --lut show.cube -o f12.jpg
  frame-viewer render plate.1001.png --corners "0,0 1900,40 1920,1080 0,1040" -o warped.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			defer initRuntime(cfg)()

			warp, hasWarp, err := parseCorners(corners)
			if err != nil {
				return err
			}

			decoders := media.NewRegistry(viewer.DefaultOpeners())
			defer decoders.Close()
			luts, err := lut.NewRegistry(cfg.LUTCacheBudget)
			if err != nil {
				return err
			}
			defer luts.Close()

			dec, err := decoders.Decoder(args[0])
			if err != nil {
				return err
			}
			meta := dec.Metadata()
			if !cmd.Flags().Changed("frame") {
				index = meta.FirstFrame
			}

			key := frame.Key{Source: args[0], Index: index, Tier: cfg.Tier}
			if cfg.LUTPath != "" && cfg.LUTEnabled {
				if _, err := luts.Load(cfg.LUTPath); err != nil {
					return err
				}
				key.LUT = cfg.LUTPath
			}
			if hasWarp {
				key = key.WithWarp(warp)
			}

			img, err := pipeline.New(decoders, luts).Evaluate(cmd.Context(), key, nil)
			if err != nil {
				return err
			}
			if err := imaging.Save(img, output, imaging.JPEGQuality(95)); err != nil {
				return fmt.Errorf("save %s: %w", output, err)
			}
			logging.Info("Rendered %s to %s (%dx%d)", key, output, img.Width, img.Height)
			return nil
		},
	}

	cmd.Flags().IntVar(&index, "frame", 0, "frame index (default: first frame)")
	cmd.Flags().StringVar(&corners, "corners", "", `warp corners "x,y x,y x,y x,y" (TL TR BR BL)`)
	cmd.Flags().StringVarP(&output, "output", "o", "frame.png", "output image (png, jpg, tif, bmp)")
	return cmd
}

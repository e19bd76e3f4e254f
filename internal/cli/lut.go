package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"frame-viewer/internal/lut"
)

func (a *app) newLUTCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lut",
		Short: "Inspect .cube LUT files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:     "check <file.cube>...",
		Short:   "Parse LUT files and report their shape",
		Example: `  frame-viewer lut check grades/show_v3.cube`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.loadConfig(cmd, nil); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				t, err := lut.Load(path)
				if err != nil {
					fmt.Fprintf(out, "FAIL %v\n", err)
					failed++
					continue
				}
				title := t.Title
				if title == "" {
					title = "-"
				}
				fmt.Fprintf(out, "OK   %s: %s size %d, title %q, domain %v-%v, %s\n",
					path, t.Kind, t.Size, title, t.DomainMin, t.DomainMax, humanize.IBytes(uint64(t.SizeBytes())))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d LUTs failed to parse", failed, len(args))
			}
			return nil
		},
	})
	return cmd
}

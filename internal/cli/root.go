package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"frame-viewer/internal/logging"
	"frame-viewer/internal/startup"
)

// app carries state shared by the commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
}

// NewRootCommand builds the frame-viewer command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "frame-viewer",
		Short: "Frame viewer - cached playback of image sequences and video",
		Long: `frame-viewer decodes image sequences and video files, renders frames
through a resize, LUT and perspective warp pipeline, and plays them back
from a byte-budgeted frame cache.

Settings are read from flags, environment variables (CACHE_BUDGET,
RESOLUTION_TIER, LUT_PATH, ...) and an optional config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       startup.Version,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (yaml, toml or json)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("budget", "", "frame cache budget, e.g. 2GiB")
	pf.String("tier", "", "resolution tier (full, half, quarter)")
	pf.String("lut", "", ".cube LUT applied to every frame")

	_ = a.v.BindPFlag(startup.KeyLogLevel, pf.Lookup("log-level"))
	_ = a.v.BindPFlag(startup.KeyCacheBudget, pf.Lookup("budget"))
	_ = a.v.BindPFlag(startup.KeyTier, pf.Lookup("tier"))
	_ = a.v.BindPFlag(startup.KeyLUTPath, pf.Lookup("lut"))

	root.AddCommand(
		a.newProbeCommand(),
		a.newLUTCommand(),
		a.newRenderCommand(),
		a.newPlayCommand(),
		a.newExportCommand(),
		a.newServeCommand(),
	)
	return root
}

// Execute runs the root command
func Execute() {
	defer logging.Sync()
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig binds the command's own flags to their config keys and
// resolves the configuration. Binding happens here rather than at
// construction because several commands expose flags for the same key.
func (a *app) loadConfig(cmd *cobra.Command, flags map[string]string) (*startup.Config, error) {
	for key, name := range flags {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			return nil, fmt.Errorf("unknown flag --%s", name)
		}
		if err := a.v.BindPFlag(key, f); err != nil {
			return nil, err
		}
	}
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	}
	return startup.LoadConfig(a.v)
}

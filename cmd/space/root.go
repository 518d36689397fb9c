package main

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-space/engine"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// newRootCmd builds the command tree. Engine options are passed through to the run command so tests
// can replace the window and the device.
//
// Parameters:
//   - options: engine options appended to the ones derived from the configuration
//
// Returns:
//   - *cobra.Command: the root command
func newRootCmd(options ...engine.EngineBuilderOption) *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:   "space",
		Short: "Simulate and watch N-body gravity systems",
		Long: `space integrates an N-body gravity system on the CPU and draws it with WebGPU.

Configuration is read from defaults, then oxy-space.{yaml,toml,json} in the working directory or
~/.oxy-space, then OXY_SPACE_* environment variables, then flags.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./oxy-space.yaml or ~/.oxy-space/oxy-space.yaml)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	_ = v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		newRunCmd(v, &cfgFile, options...),
		newPresetsCmd(),
		newExportCmd(v, &cfgFile),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "oxy-space %s\n", version)
		},
	}
}

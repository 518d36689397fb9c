package main

import (
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-space/engine/config"
	"github.com/Carmen-Shannon/oxy-space/engine/sim"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in initial systems",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range sim.PresetNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

// newExportCmd writes the configured initial system as a scenario file, to be edited and loaded
// back with --scenario.
func newExportCmd(v *viper.Viper, cfgFile *string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the initial system as a scenario file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bindFlags(v, cmd.Flags())
			cfg, err := config.Load(v, *cfgFile)
			if err != nil {
				return err
			}
			var bodies []sim.Body
			if cfg.Sim.Scenario != "" {
				bodies, err = sim.LoadScenario(cfg.Sim.Scenario)
			} else {
				bodies, err = sim.Preset(cfg.Sim.Preset, cfg.Sim.Bodies, uint64(cfg.Sim.Seed))
			}
			if err != nil {
				return err
			}
			data, err := sim.MarshalScenario(bodies)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write scenario: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	addSimFlags(cmd.Flags())
	return cmd
}

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/Carmen-Shannon/oxy-space/engine"
	"github.com/Carmen-Shannon/oxy-space/engine/config"
	"github.com/Carmen-Shannon/oxy-space/engine/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps run flags to their configuration keys.
var flagKeys = map[string]string{
	"width":          "window.width",
	"height":         "window.height",
	"present-mode":   "renderer.present_mode",
	"msaa":           "renderer.msaa",
	"software":       "renderer.force_software",
	"frame-limit":    "renderer.frame_limit",
	"kernels":        "kernels.dir",
	"kernel-sources": "kernels.source_dir",
	"preset":         "sim.preset",
	"bodies":         "sim.bodies",
	"solver":         "sim.solver",
	"theta":          "sim.theta",
	"delta":          "sim.delta",
	"workers":        "sim.workers",
	"tick-rate":      "sim.tick_rate",
	"seed":           "sim.seed",
	"scenario":       "sim.scenario",
	"profiling":      "profiling",
}

// addSimFlags registers the flags selecting the initial system.
func addSimFlags(fs *pflag.FlagSet) {
	fs.String("preset", "", "initial system preset (see the presets command)")
	fs.Int("bodies", 0, "number of generated bodies for presets that generate them")
	fs.Int64("seed", 0, "seed for generated presets")
	fs.String("scenario", "", "scenario file to load instead of a preset")
}

// bindFlags binds every flag in fs that has a configuration key.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = v.BindPFlag(key, f)
		}
	})
}

func newRunCmd(v *viper.Viper, cfgFile *string, options ...engine.EngineBuilderOption) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the window and run the simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bindFlags(v, cmd.Flags())
			cfg, err := config.Load(v, *cfgFile)
			if err != nil {
				return err
			}
			if err := logging.Init(cfg.Log.Level, cfg.Log.File, cfg.Log.Console); err != nil {
				return err
			}
			log := logging.For("main")

			e, err := engine.NewEngine(cfg, options...)
			if err != nil {
				log.WithError(err).Error("startup failed")
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := e.Run(ctx); err != nil {
				log.WithError(err).Error("engine stopped with an error")
				return err
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.Int("width", 0, "window width in pixels")
	fs.Int("height", 0, "window height in pixels")
	fs.String("present-mode", "", "vsync or uncapped")
	fs.Int("msaa", 0, "MSAA sample count: 1, 4, 8 or 16")
	fs.Bool("software", false, "force the software adapter")
	fs.Int("frame-limit", 0, "cap frames per second; 0 is uncapped")
	fs.String("kernels", "", "kernel artifact directory")
	fs.String("kernel-sources", "", "kernel source directory for the stale-artifact check")
	fs.String("solver", "", "barnes-hut, direct or central")
	fs.Float64("theta", 0, "Barnes-Hut opening angle")
	fs.Float64("delta", 0, "seconds of simulated time per step")
	fs.Int("workers", 0, "simulation worker goroutines; 0 uses every CPU")
	fs.Int("tick-rate", 0, "simulation steps per second; 0 is as fast as possible")
	fs.Bool("profiling", false, "log frame and simulation statistics every second")
	addSimFlags(fs)
	return cmd
}

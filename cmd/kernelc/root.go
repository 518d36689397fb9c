package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Carmen-Shannon/oxy-space/engine/kernel"
	"github.com/Carmen-Shannon/oxy-space/engine/logging"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "kernelc",
		Short:        "Compile WGSL kernels to SPIR-V",
		SilenceUsage: true,
	}
	root.AddCommand(newBuildCmd())
	return root
}

// buildOptions holds the build command flags.
type buildOptions struct {
	src      string
	out      string
	names    []string
	watch    bool
	logLevel string
}

func newBuildCmd() *cobra.Command {
	opts := buildOptions{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Preprocess, reflect and compile kernels and write the manifest",
		Long: `build compiles every kernel in the source directory, or only the ones named with --kernel,
and writes <name>.wgsl, <name>.spv and manifest.yaml to the output directory. Outputs whose content
did not change are left untouched. With --watch it keeps rebuilding whenever a source changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logging.Init(opts.logLevel, "", true); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBuild(ctx, opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.src, "src", "kernels", "kernel source directory")
	fs.StringVar(&opts.out, "out", "kernels/build", "artifact output directory")
	fs.StringSliceVar(&opts.names, "kernel", nil, "kernels to build; default builds every kernel in --src")
	fs.BoolVar(&opts.watch, "watch", false, "rebuild whenever a source file changes")
	fs.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	return cmd
}

// runBuild compiles once and, when watching, keeps rebuilding until ctx is done.
func runBuild(ctx context.Context, opts buildOptions) error {
	log := logging.For("kernelc")
	info, err := os.Stat(opts.src)
	if err != nil {
		return fmt.Errorf("failed to read source directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", opts.src)
	}

	build := func() error {
		m, err := kernel.Compile(os.DirFS(opts.src), opts.names, opts.out)
		if err != nil {
			return err
		}
		log.WithField("out", opts.out).Infof("wrote %d kernels", len(m.Kernels))
		return nil
	}

	if err := build(); err != nil {
		if !opts.watch {
			return err
		}
		log.WithError(err).Error("build failed")
	}
	if !opts.watch {
		return nil
	}

	if err := kernel.Watch(ctx, opts.src, kernel.DefaultDebounce, build); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

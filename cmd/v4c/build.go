package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"v4c/internal/buildpipeline"
	"v4c/internal/diag"
	"v4c/internal/watch"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [input.v4ir...]",
	Short: "Lower IR bundles to LLVM IR, assembly, or object code",
	Long: `Lower IR bundles to the output mode configured in v4c.toml (or --mode).
Without arguments the inputs listed under [build].inputs are built.`,
	RunE: buildExecution,
}

func init() {
	addCodegenFlags(buildCmd)
	addOutputFlags(buildCmd)
	buildCmd.Flags().String("ui", "auto", "user interface (auto|on|off)")
	buildCmd.Flags().Bool("watch", false, "rebuild inputs whenever their content changes")
}

func buildExecution(cmd *cobra.Command, args []string) error {
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	watchFlag, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return err
	}
	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	s, err := loadSettings(cmd, args)
	if err != nil {
		return err
	}
	if s.mode == buildpipeline.ModeJIT {
		return errors.New("--mode=jit runs the program; use v4c run")
	}

	if watchFlag {
		return watchBuilds(cmd, s)
	}
	return buildOnce(cmd.Context(), cmd, s, shouldUseTUI(uiModeValue, len(s.inputs)))
}

func buildOnce(ctx context.Context, cmd *cobra.Command, s *settings, useTUI bool) error {
	reqs := s.requests(cmd)
	labels := make([]string, len(reqs))
	for i, req := range reqs {
		labels[i] = req.File
	}

	results, err := runBuilds(ctx, "v4c build", reqs, s.jobs, useTUI)
	for i, res := range results {
		if res.Compile.Lowered != nil {
			reportNotes(cmd, labels[i], res.Compile.Lowered.Notes)
		}
	}
	out := cmd.OutOrStdout()
	if err != nil {
		_ = printTimings(cmd, out, stageTimer(results, labels))
		return err
	}

	if !quiet(cmd) {
		base := s.baseDir()
		for _, res := range results {
			if s.keepTmp && res.TmpDir != "" {
				fmt.Fprintf(out, "tmp dir: %s\n", formatPathForOutput(base, res.TmpDir))
			}
			fmt.Fprintf(out, "built %s\n", formatPathForOutput(base, res.OutputPath))
		}
	}
	return printTimings(cmd, out, stageTimer(results, labels))
}

// watchBuilds rebuilds changed inputs until interrupted. Build errors are
// reported and watching continues.
func watchBuilds(cmd *cobra.Command, s *settings) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	w, err := watch.New(s.inputs)
	if err != nil {
		return err
	}
	printer := diag.NewPrinter(cmd.ErrOrStderr(), colorMode(cmd))
	w.OnError = func(err error) {
		printer.Report(diag.FromError(err))
	}
	if !quiet(cmd) {
		fmt.Fprintf(cmd.OutOrStdout(), "watching %d input(s); press Ctrl-C to stop\n", len(w.Paths()))
	}
	return w.Run(ctx, func(ctx context.Context, changed []string) error {
		batch := *s
		batch.inputs = changed
		return buildOnce(ctx, cmd, &batch, false)
	})
}

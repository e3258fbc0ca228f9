package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"v4c/internal/buildpipeline"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] [input.v4ir] [-- program args]",
	Short: "Lower an IR bundle and run its entry point",
	Long: `Lower an IR bundle, link it against the runtime library and run the
module entry point through lli. The process exits with the entry point's status.`,
	RunE: runExecution,
}

func init() {
	addCodegenFlags(runCmd)
	runCmd.Flags().String("lli", "lli", "LLVM interpreter used to run the module")
	runCmd.Flags().Bool("keep-tmp", false, "preserve the linked .ll file")
}

func runExecution(cmd *cobra.Command, args []string) error {
	inputs, programArgs := splitArgsAtDash(cmd, args)
	s, err := loadSettings(cmd, inputs)
	if err != nil {
		return err
	}
	if len(s.inputs) != 1 {
		return fmt.Errorf("run takes exactly one input, got %d", len(s.inputs))
	}
	lli, err := cmd.Flags().GetString("lli")
	if err != nil {
		return err
	}
	s.mode = buildpipeline.ModeJIT

	req := s.requests(cmd)[0]
	req.Trampoline = buildpipeline.LLITrampoline{Runner: req.Runner, LLI: lli, Args: programArgs}
	res, err := buildpipeline.Build(cmd.Context(), req)
	if res.Compile.Lowered != nil {
		reportNotes(cmd, req.File, res.Compile.Lowered.Notes)
	}
	if err != nil {
		return err
	}
	if err := printTimings(cmd, cmd.ErrOrStderr(), stageTimer([]buildpipeline.BuildResult{res}, nil)); err != nil {
		return err
	}
	if res.Status != 0 {
		return exitStatus(res.Status)
	}
	return nil
}

// splitArgsAtDash separates inputs from arguments after "--".
func splitArgsAtDash(cmd *cobra.Command, args []string) (before, after []string) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return args, nil
	}
	return args[:dash], args[dash:]
}

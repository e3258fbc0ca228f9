// Command v4c lowers serialized script IR to LLVM through the v4 runtime ABI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"v4c/internal/diag"
	"v4c/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "v4c",
	Short:         "v4 script compiler backend",
	Long:          `v4c lowers IR bundles produced by the script front end to LLVM IR, object code, or a JIT run.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		stopProfiling, err := setupProfiling(cmd)
		if err != nil {
			return err
		}
		stopTracing, err := setupTracing(cmd)
		if err != nil {
			stopProfiling()
			return err
		}
		cleanup = func() {
			stopTracing()
			stopProfiling()
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		runCleanup()
	},
}

var cleanup func()

// runCleanup stops tracing and profiling at most once.
func runCleanup() {
	if cleanup != nil {
		c := cleanup
		cleanup = nil
		c()
	}
}

// exitStatus carries a non-error exit code out of a command (the JIT
// entry point's status).
type exitStatus int

func (e exitStatus) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().String("timings", "", "show stage timings (text|json)")
	rootCmd.PersistentFlags().Lookup("timings").NoOptDefVal = "text"
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	registerTraceFlags(rootCmd)
	registerProfileFlags(rootCmd)
}

func main() {
	err := rootCmd.Execute()
	runCleanup()
	os.Exit(exitCode(err))
}

// exitCode reports err and maps it to the process status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var status exitStatus
	if errors.As(err, &status) {
		return int(status)
	}
	printer := diag.NewPrinter(os.Stderr, colorMode(rootCmd))
	printer.Report(diag.FromError(err))
	dumpTraceRing(os.Stderr)
	return 1
}

func colorMode(cmd *cobra.Command) diag.ColorMode {
	value, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return diag.ColorAuto
	}
	mode, err := diag.ParseColorMode(value)
	if err != nil {
		return diag.ColorAuto
	}
	return mode
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

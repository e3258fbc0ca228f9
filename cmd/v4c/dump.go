package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"v4c/internal/backend/llvm"
	"v4c/internal/buildpipeline"
	"v4c/internal/ir"
	"v4c/internal/irpack"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <input.v4ir>",
	Short: "Print an IR bundle as HIR, MIR, or lowered LLVM IR",
	Args:  cobra.ExactArgs(1),
	RunE:  dumpExecution,
}

func init() {
	addCodegenFlags(dumpCmd)
	dumpCmd.Flags().String("format", "hir", "dump format (hir|mir|ll)")
	dumpCmd.Flags().Bool("liveness", false, "append live-in/live-out temps per block (mir only)")
	dumpCmd.Flags().String("func", "", "dump only the named function")
}

func dumpExecution(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	liveness, err := cmd.Flags().GetBool("liveness")
	if err != nil {
		return err
	}
	only, err := cmd.Flags().GetString("func")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if strings.EqualFold(format, "ll") {
		return dumpLowered(cmd, args, out, only)
	}
	mode, err := ir.ParseMode(format)
	if err != nil {
		return err
	}
	m, err := irpack.ReadFile(args[0])
	if err != nil {
		return err
	}
	for i, f := range m.Funcs {
		if only != "" && f.Name != only {
			continue
		}
		if mode == ir.MIR {
			f.ComputeLiveness()
		}
		if i > 0 && only == "" {
			fmt.Fprintln(out)
		}
		if err := ir.DumpFunction(out, f, mode); err != nil {
			return err
		}
		if mode == ir.MIR && liveness {
			writeLiveness(out, f)
		}
	}
	return nil
}

func writeLiveness(out io.Writer, f *ir.Function) {
	temps := func(v ir.BitVector) string {
		idx := v.Indices()
		if len(idx) == 0 {
			return "-"
		}
		parts := make([]string, len(idx))
		for i, t := range idx {
			parts[i] = fmt.Sprintf("t%d", t)
		}
		return strings.Join(parts, " ")
	}
	for _, b := range f.Blocks {
		fmt.Fprintf(out, "// L%d in: %s out: %s\n", b.Index, temps(b.LiveIn), temps(b.LiveOut))
	}
}

// dumpLowered runs the selector and prints the target module, or a single
// target function when --func is set.
func dumpLowered(cmd *cobra.Command, args []string, out io.Writer, only string) error {
	s, err := loadSettings(cmd, args)
	if err != nil {
		return err
	}
	req := s.requests(cmd)[0].CompileRequest
	res, err := buildpipeline.Compile(cmd.Context(), &req)
	if err != nil {
		return err
	}
	reportNotes(cmd, req.File, res.Lowered.Notes)
	if only == "" {
		_, err = io.WriteString(out, res.Lowered.String())
		return err
	}
	for _, name := range []string{only, llvm.NativePrefix + only} {
		if only == ir.EntryName {
			name = llvm.EntrySymbol
		}
		if f := llvm.FindFunc(res.Lowered.Module, name); f != nil {
			_, err = fmt.Fprintln(out, f.LLString())
			return err
		}
	}
	return fmt.Errorf("no function %q in the lowered module", only)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"v4c/internal/backend/llvm"
	"v4c/internal/diag"
)

// reportNotes prints selector notes as warnings, labeled with their input
// and capped by --max-diagnostics.
func reportNotes(cmd *cobra.Command, file string, notes []llvm.Note) {
	if len(notes) == 0 {
		return
	}
	limit, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		limit = 0
	}
	bag := diag.NewBag(limit)
	dropped := 0
	for _, d := range diag.FromNotes(notes) {
		if !bag.Add(d.WithNote("in " + file)) {
			dropped++
		}
	}
	bag.Sort()
	printer := diag.NewPrinter(cmd.ErrOrStderr(), colorMode(cmd))
	for _, d := range bag.Items() {
		printer.Report(d)
	}
	if dropped > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d more diagnostics not shown\n", dropped)
	}
}

func quiet(cmd *cobra.Command) bool {
	q, err := cmd.Root().PersistentFlags().GetBool("quiet")
	return err == nil && q
}

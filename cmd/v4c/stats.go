package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	lir "github.com/llir/llvm/ir"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"v4c/internal/backend/llvm"
	"v4c/internal/buildpipeline"
)

var statsCmd = &cobra.Command{
	Use:   "stats [flags] <input.v4ir>",
	Short: "Lower an IR bundle and summarize the target functions",
	Args:  cobra.ExactArgs(1),
	RunE:  statsExecution,
}

func init() {
	addCodegenFlags(statsCmd)
	statsCmd.Flags().Int("top", 5, "runtime entry points listed by call count (0 lists none)")
}

func statsExecution(cmd *cobra.Command, args []string) error {
	top, err := cmd.Flags().GetInt("top")
	if err != nil {
		return err
	}
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
	out := cmd.OutOrStdout()
	writeFunctionTable(out, res.Lowered)
	writeTopCalls(out, res.Lowered.Stats.RuntimeCalls, top)
	return printTimings(cmd, out, stageTimer([]buildpipeline.BuildResult{{Timings: res.Timings}}, nil))
}

func writeFunctionTable(out io.Writer, res *llvm.Result) {
	rows := [][]string{{"function", "blocks", "insts", "slots", "rt calls"}}
	for _, f := range res.Module.Funcs {
		if len(f.Blocks) == 0 {
			continue
		}
		insts, slots := 0, 0
		for _, b := range f.Blocks {
			insts += len(b.Insts)
			for _, inst := range b.Insts {
				if _, ok := inst.(*lir.InstAlloca); ok {
					slots++
				}
			}
		}
		calls := 0
		for _, n := range llvm.CountRuntimeCalls(f) {
			calls += n
		}
		rows = append(rows, []string{
			f.Name(),
			strconv.Itoa(len(f.Blocks)),
			strconv.Itoa(insts),
			strconv.Itoa(slots),
			strconv.Itoa(calls),
		})
	}
	st := res.Stats
	rows = append(rows, []string{
		"total",
		strconv.Itoa(st.Blocks),
		"",
		fmt.Sprintf("%d (-%d)", st.Slots, st.RemovedSlots),
		"",
	})
	writeTable(out, rows)
	if st.DroppedBlocks > 0 {
		fmt.Fprintf(out, "%d unreachable block(s) dropped\n", st.DroppedBlocks)
	}
}

func writeTopCalls(out io.Writer, calls map[string]int, top int) {
	if top <= 0 || len(calls) == 0 {
		return
	}
	names := make([]string, 0, len(calls))
	for name := range calls {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if calls[names[i]] != calls[names[j]] {
			return calls[names[i]] > calls[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > top {
		names = names[:top]
	}
	rows := [][]string{{"runtime entry", "calls"}}
	for _, name := range names {
		rows = append(rows, []string{name, strconv.Itoa(calls[name])})
	}
	fmt.Fprintln(out)
	writeTable(out, rows)
}

// writeTable left-aligns the first column and right-aligns the rest,
// measuring cells by display width.
func writeTable(out io.Writer, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	for _, row := range rows {
		var sb strings.Builder
		for i, cell := range row {
			if i == 0 {
				sb.WriteString(runewidth.FillRight(cell, widths[i]))
				continue
			}
			sb.WriteString("  ")
			sb.WriteString(runewidth.FillLeft(cell, widths[i]))
		}
		fmt.Fprintln(out, strings.TrimRight(sb.String(), " "))
	}
}

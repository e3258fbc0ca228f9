package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"v4c/internal/buildpipeline"
	"v4c/internal/observ"
)

var timedStages = []buildpipeline.Stage{
	buildpipeline.StageLoad,
	buildpipeline.StageValidate,
	buildpipeline.StageLower,
	buildpipeline.StageBuild,
	buildpipeline.StageLink,
	buildpipeline.StageRun,
}

// stageTimer collects the recorded stages of every result, one phase per
// input and stage.
func stageTimer(results []buildpipeline.BuildResult, labels []string) *observ.Timer {
	timer := observ.NewTimer()
	for i, res := range results {
		label := ""
		if len(results) > 1 && i < len(labels) {
			label = labels[i]
		}
		for _, stage := range timedStages {
			if res.Timings.Has(stage) {
				timer.Record(string(stage), res.Timings.Duration(stage), label)
			}
		}
	}
	return timer
}

// printTimings honors --timings: empty prints nothing, "json" prints the
// report as JSON, anything else the text summary.
func printTimings(cmd *cobra.Command, out io.Writer, timer *observ.Timer) error {
	format, err := cmd.Root().PersistentFlags().GetString("timings")
	if err != nil || format == "" || timer.Len() == 0 {
		return nil
	}
	if format == "json" {
		data, err := timer.JSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	_, err = io.WriteString(out, timer.Summary())
	return err
}

package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"v4c/internal/buildpipeline"
	"v4c/internal/ui"
)

type buildOutcome struct {
	results []buildpipeline.BuildResult
	err     error
}

// runBuildsWithUI runs every request through BuildAll while a progress view
// consumes their events.
func runBuildsWithUI(ctx context.Context, title string, reqs []*buildpipeline.BuildRequest, jobs int) ([]buildpipeline.BuildResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan buildOutcome, 1)

	files := make([]string, len(reqs))
	copies := make([]*buildpipeline.BuildRequest, len(reqs))
	for i, req := range reqs {
		reqCopy := *req
		reqCopy.Progress = buildpipeline.ChannelSink{Ch: events, Done: ctx.Done()}
		copies[i] = &reqCopy
		files[i] = req.File
	}

	go func() {
		res, err := buildpipeline.BuildAll(ctx, copies, jobs)
		outcomeCh <- buildOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// a quit view stops the builds still running
	cancel()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}

// runBuilds picks the progress view or a plain parallel build.
func runBuilds(ctx context.Context, title string, reqs []*buildpipeline.BuildRequest, jobs int, useTUI bool) ([]buildpipeline.BuildResult, error) {
	if useTUI {
		return runBuildsWithUI(ctx, title, reqs, jobs)
	}
	return buildpipeline.BuildAll(ctx, reqs, jobs)
}

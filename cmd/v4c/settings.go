package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"v4c/internal/backend/llvm"
	"v4c/internal/buildpipeline"
	"v4c/internal/project"
)

const noInputsMessage = "no inputs: pass IR bundles as arguments or list them under [build].inputs in " + project.ConfigName

// settings is the merged view of v4c.toml and command-line flags.
type settings struct {
	project *project.Project
	found   bool

	inputs        []string
	mode          buildpipeline.Mode
	passes        []string
	runtime       *llvm.Runtime
	triple        string
	outDir        string
	keepTmp       bool
	jobs          int
	printCommands bool
}

func addCodegenFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("passes", nil, "per-function optimizer pipeline, in order ("+strings.Join(llvm.PassNames(), ", ")+")")
	cmd.Flags().String("runtime", "", "textual LLVM runtime library declaring the ABI")
	cmd.Flags().String("triple", "", "target triple (default: host)")
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("mode", "", "output mode (ll|obj|asm|jit)")
	cmd.Flags().String("out-dir", "", "artifact directory (default: target)")
	cmd.Flags().Bool("keep-tmp", false, "preserve the intermediate .ll files")
	cmd.Flags().Int("jobs", 0, "parallel builds (default: GOMAXPROCS)")
	cmd.Flags().Bool("print-commands", false, "print toolchain commands")
}

// loadSettings discovers v4c.toml from the working directory and applies
// every flag the user set on top of it.
func loadSettings(cmd *cobra.Command, args []string) (*settings, error) {
	proj, found, err := project.Discover(".")
	if err != nil {
		return nil, err
	}
	cfg := proj.Config
	s := &settings{
		project: proj,
		found:   found,
		passes:  cfg.Codegen.Passes,
		triple:  cfg.Codegen.Triple,
		outDir:  proj.Resolve(cfg.Output.Dir),
		keepTmp: cfg.Output.KeepTmp,
		jobs:    cfg.Build.Jobs,
	}

	if len(args) > 0 {
		for _, arg := range args {
			if !slices.Contains(s.inputs, arg) {
				s.inputs = append(s.inputs, arg)
			}
		}
	} else {
		s.inputs = proj.Inputs()
	}
	if len(s.inputs) == 0 {
		return nil, errors.New(noInputsMessage)
	}

	flags := cmd.Flags()
	modeName := cfg.Output.Mode
	if flags.Changed("mode") {
		modeName, _ = flags.GetString("mode")
	}
	if s.mode, err = buildpipeline.ParseMode(modeName); err != nil {
		return nil, err
	}
	if flags.Changed("passes") {
		s.passes, _ = flags.GetStringSlice("passes")
	}
	if flags.Changed("triple") {
		s.triple, _ = flags.GetString("triple")
	}
	if flags.Changed("out-dir") {
		s.outDir, _ = flags.GetString("out-dir")
	}
	if flags.Changed("keep-tmp") {
		s.keepTmp, _ = flags.GetBool("keep-tmp")
	}
	if flags.Changed("jobs") {
		s.jobs, _ = flags.GetInt("jobs")
	}
	if flags.Changed("print-commands") {
		s.printCommands, _ = flags.GetBool("print-commands")
	}
	if s.jobs < 0 {
		return nil, fmt.Errorf("--jobs must not be negative")
	}

	library := proj.Resolve(cfg.Runtime.Library)
	if flags.Changed("runtime") {
		library, _ = flags.GetString("runtime")
	}
	if library == "" {
		s.runtime = llvm.DefaultRuntime()
	} else if s.runtime, err = llvm.LoadRuntime(library); err != nil {
		return nil, err
	}
	return s, nil
}

// baseDir is the directory progress labels and printed paths are relative to.
func (s *settings) baseDir() string {
	if s.found {
		return s.project.Root
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// requests builds one request per input. The runtime catalogue is only
// read while lowering, so parallel builds share it.
func (s *settings) requests(cmd *cobra.Command) []*buildpipeline.BuildRequest {
	base := s.baseDir()
	reqs := make([]*buildpipeline.BuildRequest, len(s.inputs))
	for i, in := range s.inputs {
		file := in
		if names := buildpipeline.DisplayNames([]string{in}, base); len(names) == 1 {
			file = names[0]
		}
		reqs[i] = &buildpipeline.BuildRequest{
			CompileRequest: buildpipeline.CompileRequest{
				InputPath: in,
				Runtime:   s.runtime,
				Passes:    s.passes,
				Triple:    s.triple,
				File:      file,
			},
			Mode:      s.mode,
			OutputDir: s.outDir,
			KeepTmp:   s.keepTmp,
			Runner: buildpipeline.ExecRunner{
				PrintCommands: s.printCommands,
				Stdout:        cmd.OutOrStdout(),
			},
		}
	}
	return reqs
}

// formatPathForOutput prints path relative to root when it lives below it.
func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

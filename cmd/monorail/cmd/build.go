// Copyright (c) 2024 the monorail authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/monorailhq/monorail/internal/buildtask"
	"github.com/monorailhq/monorail/internal/diagnostics"
	"github.com/monorailhq/monorail/internal/scheduler"
	"github.com/monorailhq/monorail/internal/workspace"
)

var (
	buildTo          []string
	buildFrom        []string
	buildParallelism int
	buildProduction  bool
	buildNPM         bool
	buildMinimal     bool
	buildVerbose     bool
	buildVSO         bool
	buildClean       bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run incremental builds across the dependency graph",
	Long: `Build schedules each project's clean+build (or clean+test) script as a
task in the dependency-ordered scheduler (C7), consulting the change-hash
analyzer (C6) to skip projects whose tracked inputs and build command
haven't changed since their last successful run, and the diagnostic
scanner (C9) to turn tool output into structured findings.

--to and --from restrict the run to a subgraph: --to adds a project and
everything it transitively depends on; --from adds a project and
everything that transitively depends on it. Combined, the run covers the
union of both subgraphs. With neither flag, every project runs.`,
	Example: `  # Build everything
  monorail build

  # Build only what "web-app" needs
  monorail build --to web-app

  # Build everything downstream of a shared library, plus the library itself
  monorail build --from shared-utils --parallelism 4`,
	RunE: runBuild,
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Run a full build, ignoring the incremental-skip cache",
	Long: `Rebuild is build with incremental skipping disabled for every task:
every selected project's clean+build (or clean+test) script runs
regardless of whether its fingerprint is unchanged.`,
	RunE: runRebuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(rebuildCmd)
	for _, c := range []*cobra.Command{buildCmd, rebuildCmd} {
		c.Flags().StringArrayVar(&buildTo, "to", nil, "restrict the run to this project and its dependencies (repeatable)")
		c.Flags().StringArrayVar(&buildFrom, "from", nil, "restrict the run to this project and its dependents (repeatable)")
		c.Flags().IntVar(&buildParallelism, "parallelism", 0, "maximum concurrent build tasks (default: host CPU count)")
		c.Flags().BoolVar(&buildProduction, "production", false, "append --production to the build/test command")
		c.Flags().BoolVar(&buildNPM, "npm", false, "append --npm to the build/test command")
		c.Flags().BoolVar(&buildMinimal, "minimal", false, "append --minimal to the build/test command")
		c.Flags().BoolVar(&buildVerbose, "verbose", false, "stream task output as it is produced instead of only in the final report")
		c.Flags().BoolVar(&buildVSO, "vso", false, "render diagnostics as Azure Pipelines ##vso[task.logissue] logging commands")
	}
	buildCmd.Flags().BoolVar(&buildClean, "clean", false, "treat every selected project as changed, bypassing the incremental cache")
}

func runBuild(cmd *cobra.Command, args []string) error {
	return runBuildFlow(buildClean)
}

func runRebuild(cmd *cobra.Command, args []string) error {
	return runBuildFlow(true)
}

func runBuildFlow(forceFull bool) error {
	log := newLogger()
	ws, cfg, _, err := loadWorkspace(log)
	if err != nil {
		return err
	}

	selected, err := selectProjects(ws, buildTo, buildFrom)
	if err != nil {
		return err
	}

	opts := buildtask.Options{
		Production: buildProduction || cfg.Build.Production,
		NPM:        buildNPM || cfg.Build.NPM,
		Minimal:    buildMinimal || cfg.Build.Minimal,
		Color:      !buildVSO,
	}
	scanner := diagnostics.NewScanner(diagnostics.DefaultRules())

	var schedOpts []scheduler.Option
	parallelism := buildParallelism
	if parallelism == 0 {
		parallelism = cfg.Build.Parallelism
	}
	if parallelism > 0 {
		schedOpts = append(schedOpts, scheduler.WithConcurrency(parallelism))
	}
	schedOpts = append(schedOpts, scheduler.WithLogger(log))
	sched := scheduler.New(schedOpts...)

	var il *scheduler.Interleaver
	if buildVerbose {
		il = scheduler.NewInterleaver(os.Stdout)
		sched.SetOutput(il)
	}

	for _, name := range sortedNames(selected) {
		proj, _ := ws.ByName(name)
		task := buildtask.New(proj, ws.Root, opts, scanner, log)
		if err := sched.AddTask(name, wrapForceFull(task, forceFull)); err != nil {
			return err
		}
	}
	for _, name := range sortedNames(selected) {
		var deps []string
		for _, dep := range ws.Graph.Dependencies(name) {
			if _, ok := selected[dep]; ok {
				deps = append(deps, dep)
			}
		}
		if err := sched.AddDependencies(name, deps); err != nil {
			return err
		}
	}

	runErr := sched.Execute(context.Background())

	mode := diagnostics.Local
	if buildVSO {
		mode = diagnostics.CIIDELinked
	}
	printBuildReport(sched, sortedNames(selected), mode)

	if runErr != nil {
		os.Exit(1)
	}
	return nil
}

// wrapForceFull reports IncrementalAllowed as false when forceFull is set,
// regardless of what upstream tasks did — the rebuild/--clean override.
func wrapForceFull(task scheduler.TaskFunc, forceFull bool) scheduler.TaskFunc {
	if !forceFull {
		return task
	}
	return func(ctx context.Context, tc scheduler.TaskContext) (scheduler.Result, error) {
		tc.IncrementalAllowed = false
		return task(ctx, tc)
	}
}

func printBuildReport(sched *scheduler.Scheduler, names []string, mode diagnostics.DisplayMode) {
	for _, name := range names {
		status, _ := sched.Status(name)
		fmt.Printf("%-40s %s\n", name, titleCase(string(status)))
		for _, d := range sched.Errors(name) {
			fmt.Println("  " + d.Render(mode))
		}
	}
}

func sortedNames(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// selectProjects computes the union of the --to (dependency closure) and
// --from (dependent closure) subgraphs. With neither flag, every project
// in the workspace is selected.
func selectProjects(ws *workspace.Workspace, to, from []string) (map[string]struct{}, error) {
	if len(to) == 0 && len(from) == 0 {
		all := make(map[string]struct{}, len(ws.Projects))
		for _, p := range ws.Projects {
			all[p.PackageName] = struct{}{}
		}
		return all, nil
	}

	selected := make(map[string]struct{})
	for _, arg := range to {
		name, err := shorthandOrName(ws, arg)
		if err != nil {
			return nil, fmt.Errorf("--to %q: %w", arg, err)
		}
		closureUp(ws, name, selected)
	}
	for _, arg := range from {
		name, err := shorthandOrName(ws, arg)
		if err != nil {
			return nil, fmt.Errorf("--from %q: %w", arg, err)
		}
		closureDown(ws, name, selected)
	}
	return selected, nil
}

func closureUp(ws *workspace.Workspace, name string, seen map[string]struct{}) {
	if _, ok := seen[name]; ok {
		return
	}
	seen[name] = struct{}{}
	for _, dep := range ws.Graph.Dependencies(name) {
		closureUp(ws, dep, seen)
	}
}

func closureDown(ws *workspace.Workspace, name string, seen map[string]struct{}) {
	if _, ok := seen[name]; ok {
		return
	}
	seen[name] = struct{}{}
	for _, dep := range ws.Graph.Downstream(name) {
		closureDown(ws, dep, seen)
	}
}

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

// Package buildtask implements the per-project build unit run by the
// scheduler: fingerprint comparison and skip decision, clean+build script
// invocation, diagnostic scanning of the combined output, terminal status
// derivation, and fingerprint persistence on clean success.
package buildtask

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/monorailhq/monorail/internal/diagnostics"
	"github.com/monorailhq/monorail/internal/fingerprint"
	"github.com/monorailhq/monorail/internal/monorailerr"
	"github.com/monorailhq/monorail/internal/scheduler"
	"github.com/monorailhq/monorail/internal/secureio"
	"github.com/monorailhq/monorail/internal/workspace"
)

// recordFileName must match fingerprint's persisted record file name, so
// that file is excluded from a project's own tracked-input set.
const recordFileName = "package-deps.json"

// logFileName is the per-project ANSI-stripped combined build log.
const logFileName = "monorail-build.log"

// Options are the CLI-selected mode flags appended to every build/test
// invocation.
type Options struct {
	Production bool
	NPM        bool
	Minimal    bool
	Color      bool
}

// flags renders Options as the trailing command-line flags described in
// §4.8 step 6.
func (o Options) flags() []string {
	var flags []string
	if o.Production {
		flags = append(flags, "--production")
	}
	if o.NPM {
		flags = append(flags, "--npm")
	}
	if o.Minimal {
		flags = append(flags, "--minimal")
	}
	if o.Color {
		flags = append(flags, "--color")
	} else {
		flags = append(flags, "--no-color")
	}
	return flags
}

// LogPath returns the path of a project's persisted combined build log.
func LogPath(projectDir string) string {
	return filepath.Join(projectDir, logFileName)
}

// New builds the scheduler.TaskFunc for one project. root is the
// repository root (projectDir = root/proj.Folder).
func New(proj *workspace.Project, root string, opts Options, scanner *diagnostics.Scanner, log *slog.Logger) scheduler.TaskFunc {
	if log == nil {
		log = slog.Default()
	}
	projectDir := filepath.Join(root, proj.Folder)

	return func(ctx context.Context, tc scheduler.TaskContext) (scheduler.Result, error) {
		return run(ctx, tc, proj, projectDir, opts, scanner, log)
	}
}

func run(ctx context.Context, tc scheduler.TaskContext, proj *workspace.Project, projectDir string, opts Options, scanner *diagnostics.Scanner, log *slog.Logger) (scheduler.Result, error) {
	cmdName, script, err := selectBuildCommand(proj)
	if err != nil {
		return scheduler.Result{Status: scheduler.Failure}, err
	}
	cmdLine := commandLine(cmdName, script, opts)

	cur, curErr := computeFingerprint(projectDir, cmdLine)
	if curErr == nil && tc.IncrementalAllowed {
		if prev, ok, prevErr := fingerprint.Load(projectDir); prevErr == nil && ok && fingerprint.Unchanged(prev, cur) {
			fmt.Fprintf(tc.Writer, "%s: up to date, skipping\n", proj.PackageName)
			return scheduler.Result{Status: scheduler.Skipped}, nil
		}
	}

	// An interrupted build must never be mistaken for a finished one.
	if err := fingerprint.Remove(projectDir); err != nil {
		log.Warn("remove stale fingerprint", "project", proj.PackageName, "error", err)
	}

	if err := runClean(ctx, proj, projectDir, tc.Writer, log); err != nil {
		return scheduler.Result{Status: scheduler.Failure}, err
	}

	var combined bytes.Buffer
	sawStderr, exitErr := runBuild(ctx, projectDir, script, opts, tc.Writer, &combined)

	text := stripANSI(combined.String())
	if err := writeLog(projectDir, text); err != nil {
		log.Warn("persist build log", "project", proj.PackageName, "error", err)
	}

	diags := scanner.Scan(strings.Split(text, "\n"))

	status := scheduler.Success
	switch {
	case exitErr != nil || len(diags) > 0:
		status = scheduler.Failure
	case sawStderr:
		status = scheduler.SuccessWithWarnings
	}

	if status == scheduler.Success && curErr == nil {
		if err := fingerprint.Save(projectDir, cur); err != nil {
			log.Warn("persist fingerprint", "project", proj.PackageName, "error", err)
		}
	}

	return scheduler.Result{Status: status, Diagnostics: diags}, nil
}

// computeFingerprint hashes the project's tracked files. A failure here
// does not abort the task — it simply forces a rebuild — so callers treat
// a non-nil error as "stale".
func computeFingerprint(projectDir, cmdLine string) (*fingerprint.Record, error) {
	files, err := TrackedFiles(projectDir)
	if err != nil {
		return nil, err
	}
	return fingerprint.Compute(projectDir, files, cmdLine)
}

// selectBuildCommand prefers "test" over "build" per §4.8 step 6; fails
// if neither is declared.
func selectBuildCommand(proj *workspace.Project) (name, script string, err error) {
	if s, ok := proj.Manifest.Scripts["test"]; ok {
		return "test", s, nil
	}
	if s, ok := proj.Manifest.Scripts["build"]; ok {
		return "build", s, nil
	}
	return "", "", monorailerr.Configurationf("project %q declares neither a test nor a build script", proj.PackageName)
}

// commandLine renders the exact command line persisted in the fingerprint
// record: the script name, its script text, and the mode flags, so a
// flag-only change also forces a rebuild.
func commandLine(name, script string, opts Options) string {
	parts := append([]string{name, script}, opts.flags()...)
	return strings.Join(parts, " ")
}

// runClean invokes the project's declared "clean" script. A missing
// script is fatal; a declared-but-blank script is a no-op warning.
func runClean(ctx context.Context, proj *workspace.Project, projectDir string, w *scheduler.TaskWriter, log *slog.Logger) error {
	script, ok := proj.Manifest.Scripts["clean"]
	if !ok {
		return monorailerr.Configurationf("project %q does not declare a clean script", proj.PackageName)
	}
	if strings.TrimSpace(script) == "" {
		log.Warn("clean script is blank, skipping", "project", proj.PackageName)
		return nil
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", script) // #nosec G204 - script is the project's own declared manifest command
	cmd.Dir = projectDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		fmt.Fprint(w, string(out))
		return monorailerr.BuildDiagnosticf("project %q: clean script failed: %v", proj.PackageName, err)
	}
	fmt.Fprint(w, string(out))
	return nil
}

// runBuild runs the selected build/test script asynchronously, streaming
// stdout and stderr through w while also capturing the combined output
// into combined for diagnostic scanning and log persistence. It reports
// whether any stderr activity occurred and the command's terminal error.
func runBuild(ctx context.Context, projectDir, script string, opts Options, w *scheduler.TaskWriter, combined *bytes.Buffer) (sawStderr bool, err error) {
	full := strings.Join(append([]string{script}, opts.flags()...), " ")
	cmd := exec.CommandContext(ctx, "sh", "-c", full) // #nosec G204 - script is the project's own declared manifest command
	cmd.Dir = projectDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return false, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return false, err
	}

	if err := cmd.Start(); err != nil {
		return false, err
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	var stderrSeen bool

	wg.Add(2)
	go func() {
		defer wg.Done()
		streamLines(stdout, w, combined, &mu)
	}()
	go func() {
		defer wg.Done()
		n := streamLines(stderr, w, combined, &mu)
		if n > 0 {
			mu.Lock()
			stderrSeen = true
			mu.Unlock()
		}
	}()
	wg.Wait()

	waitErr := cmd.Wait()
	return stderrSeen, waitErr
}

// streamLines copies r line by line into w and combined (guarded by mu,
// since stdout and stderr are copied concurrently), returning the number
// of lines read.
func streamLines(r io.Reader, w *scheduler.TaskWriter, combined *bytes.Buffer, mu *sync.Mutex) int {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lines := 0
	for scanner.Scan() {
		line := scanner.Text()
		lines++
		fmt.Fprintln(w, line)
		mu.Lock()
		combined.WriteString(line)
		combined.WriteByte('\n')
		mu.Unlock()
	}
	return lines
}

func writeLog(projectDir, content string) error {
	return secureio.WriteFile(LogPath(projectDir), []byte(content), 0o644)
}

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

// Package installer drives the external package-manager installer through
// the Normal/ForceClean/UnsafePurge state machine: dirty detection against
// a success marker, asynchronous folder teardown via a recycler, bounded
// subprocess retry, and marker re-creation on success.
package installer

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/monorailhq/monorail/internal/monorailerr"
	"github.com/monorailhq/monorail/internal/secureio"
	"github.com/monorailhq/monorail/internal/workspace"
)

// Mode selects how aggressively the driver tears down prior install state
// before invoking the installer subprocess.
type Mode int

const (
	// Normal runs an incremental prune+install when a prior success marker
	// exists, or a full reinstall when it does not (the previous run
	// presumably crashed mid-install).
	Normal Mode = iota
	// ForceClean additionally recycles the installer's own cache and any
	// transient scratch folder, forcing a full reinstall regardless of
	// prior success.
	ForceClean
	// UnsafePurge additionally recycles the installer tool-version marker,
	// forcing the installer tool itself to be reinstalled.
	UnsafePurge
)

func (m Mode) String() string {
	switch m {
	case Normal:
		return "normal"
	case ForceClean:
		return "force-clean"
	case UnsafePurge:
		return "unsafe-purge"
	default:
		return "unknown"
	}
}

// Status is the terminal outcome of a Run.
type Status int

const (
	Success Status = iota
	Skipped
	Failure
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Skipped:
		return "skipped"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// Result reports what a Run did.
type Result struct {
	Status Status
	Mode   Mode
}

// maxInstallAttempts bounds the installer subprocess retry loop.
const maxInstallAttempts = 5

// Options configures one Driver. All paths must be absolute.
type Options struct {
	// SuccessMarkerPath is removed at the start of a dirty run and
	// re-created on success.
	SuccessMarkerPath string
	// SharedModulesDir is the shared installed-dependency tree.
	SharedModulesDir string
	// LockfilePath is the committed lockfile consulted for dirty checks.
	LockfilePath string
	// StubArchivePaths are every per-project stub archive, also consulted
	// for dirty checks.
	StubArchivePaths []string
	// ToolVersionMarkerPath records which installer tool version is
	// installed; recycled on UnsafePurge to force tool reinstall.
	ToolVersionMarkerPath string
	// InstallCacheDir and TransientDir are recycled on ForceClean and
	// UnsafePurge in addition to the shared modules folder.
	InstallCacheDir string
	TransientDir    string
	// RecyclerDir is where torn-down folders are renamed to before bulk
	// deletion.
	RecyclerDir string
	// Command is the installer subprocess argv, e.g. ["npm", "install"].
	Command []string
	// WorkDir is the directory the installer subprocess runs in.
	WorkDir string
}

// Driver runs one installer flow.
type Driver struct {
	opts     Options
	recycler *Recycler
	log      *slog.Logger
}

// New constructs a Driver.
func New(opts Options, log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	return &Driver{opts: opts, recycler: NewRecycler(opts.RecyclerDir), log: log}
}

// Run executes the state machine for mode and returns the terminal result.
func (d *Driver) Run(ctx context.Context, mode Mode) (Result, error) {
	markerInfo, markerErr := os.Stat(d.opts.SuccessMarkerPath)
	priorSuccess := markerErr == nil

	dirty, err := d.isDirty(markerInfo, priorSuccess)
	if err != nil {
		return Result{}, monorailerr.TransientIOf(err, "checking install dirty state")
	}
	if !dirty {
		return Result{Status: Skipped, Mode: mode}, nil
	}

	if err := os.Remove(d.opts.SuccessMarkerPath); err != nil && !os.IsNotExist(err) {
		return Result{}, monorailerr.TransientIOf(err, "removing install success marker")
	}

	incremental := mode == Normal && priorSuccess
	if !incremental {
		if err := d.recycler.Recycle(d.opts.SharedModulesDir); err != nil {
			return Result{}, monorailerr.TransientIOf(err, "recycling shared modules folder")
		}
	}
	if mode == ForceClean || mode == UnsafePurge {
		if err := d.recycler.Recycle(d.opts.InstallCacheDir); err != nil {
			return Result{}, monorailerr.TransientIOf(err, "recycling install cache")
		}
		if err := d.recycler.Recycle(d.opts.TransientDir); err != nil {
			return Result{}, monorailerr.TransientIOf(err, "recycling transient folder")
		}
	}
	if mode == UnsafePurge {
		if err := d.recycler.Recycle(d.opts.ToolVersionMarkerPath); err != nil {
			return Result{}, monorailerr.TransientIOf(err, "recycling tool version marker")
		}
	}

	// Kick off the bulk delete in the background; it races the (much
	// slower) installer subprocess rather than blocking ahead of it.
	go func() {
		if err := d.recycler.Purge(); err != nil {
			d.log.Warn("recycler purge failed", "error", err)
		}
	}()

	if err := d.runInstallWithRetry(ctx); err != nil {
		return Result{Status: Failure, Mode: mode}, err
	}

	if incremental {
		// The installer does not understand file: specifiers well enough
		// to detect stub content changes on its own, so the reserved
		// temp-project links are always rebuilt fresh by the linker.
		tempScopeDir := filepath.Join(d.opts.SharedModulesDir, workspace.ReservedScope)
		if err := d.recycler.Recycle(tempScopeDir); err != nil {
			d.log.Warn("recycling temp scope after incremental install", "error", err)
		} else if err := d.recycler.Purge(); err != nil {
			d.log.Warn("purging temp scope after incremental install", "error", err)
		}
	}

	if err := d.touchMarker(); err != nil {
		return Result{}, monorailerr.TransientIOf(err, "writing install success marker")
	}

	return Result{Status: Success, Mode: mode}, nil
}

func (d *Driver) isDirty(markerInfo os.FileInfo, priorSuccess bool) (bool, error) {
	if !priorSuccess {
		return true, nil
	}
	markerTime := markerInfo.ModTime()

	candidates := append([]string{d.opts.SharedModulesDir, d.opts.LockfilePath}, d.opts.StubArchivePaths...)
	for _, c := range candidates {
		info, err := os.Stat(c)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return false, err
		}
		if info.ModTime().After(markerTime) {
			return true, nil
		}
	}
	return false, nil
}

func (d *Driver) runInstallWithRetry(ctx context.Context) error {
	var lastErr error
	var lastOutput []byte
	for attempt := 1; attempt <= maxInstallAttempts; attempt++ {
		out, err := d.runOnce(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		lastOutput = out
		d.log.Warn("installer attempt failed", "attempt", attempt, "max_attempts", maxInstallAttempts, "error", err)
	}
	return monorailerr.Installerf(lastErr, "installer failed after %d attempts, last output: %s", maxInstallAttempts, lastOutput)
}

func (d *Driver) runOnce(ctx context.Context) ([]byte, error) {
	if len(d.opts.Command) == 0 {
		return nil, monorailerr.Configurationf("installer command is empty")
	}
	cmd := exec.CommandContext(ctx, d.opts.Command[0], d.opts.Command[1:]...) // #nosec G204 - command is operator-configured, not user input
	cmd.Dir = d.opts.WorkDir
	return cmd.CombinedOutput()
}

func (d *Driver) touchMarker() error {
	return secureio.WriteFile(d.opts.SuccessMarkerPath, []byte(time.Now().UTC().Format(time.RFC3339)), 0o644)
}

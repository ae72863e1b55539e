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

package installer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/monorailhq/monorail/internal/monorailerr"
)

func newTestDriver(t *testing.T, command []string) (*Driver, Options) {
	t.Helper()
	root := t.TempDir()
	opts := Options{
		SuccessMarkerPath: filepath.Join(root, "last-install.flag"),
		SharedModulesDir:  filepath.Join(root, "node_modules"),
		LockfilePath:      filepath.Join(root, "npm-shrinkwrap.json"),
		InstallCacheDir:   filepath.Join(root, "install-cache"),
		TransientDir:      filepath.Join(root, "transient"),
		RecyclerDir:       filepath.Join(root, "recycler"),
		Command:           command,
		WorkDir:           root,
	}
	if err := os.WriteFile(opts.LockfilePath, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write lockfile: %v", err)
	}
	if err := os.MkdirAll(opts.SharedModulesDir, 0o755); err != nil {
		t.Fatalf("mkdir shared modules: %v", err)
	}
	return New(opts, nil), opts
}

func TestRunIsDirtyOnFirstInstall(t *testing.T) {
	d, _ := newTestDriver(t, []string{"true"})
	result, err := d.Run(context.Background(), Normal)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != Success {
		t.Fatalf("status = %s, want success", result.Status)
	}
	if _, err := os.Stat(d.opts.SuccessMarkerPath); err != nil {
		t.Errorf("success marker not written: %v", err)
	}
}

func TestRunSkipsWhenNothingChangedSincePriorSuccess(t *testing.T) {
	d, opts := newTestDriver(t, []string{"true"})
	if _, err := d.Run(context.Background(), Normal); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// Ensure the marker's mtime is strictly after the shared modules dir's.
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(opts.SuccessMarkerPath, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	result, err := d.Run(context.Background(), Normal)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if result.Status != Skipped {
		t.Errorf("status = %s, want skipped", result.Status)
	}
}

func TestRunRerunsAfterLockfileChanges(t *testing.T) {
	d, opts := newTestDriver(t, []string{"true"})
	if _, err := d.Run(context.Background(), Normal); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(opts.LockfilePath, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	result, err := d.Run(context.Background(), Normal)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if result.Status != Success {
		t.Errorf("status = %s, want success (lockfile changed)", result.Status)
	}
}

func TestRunFailsAfterExhaustingRetries(t *testing.T) {
	d, _ := newTestDriver(t, []string{"false"})
	_, err := d.Run(context.Background(), Normal)
	if err == nil {
		t.Fatal("expected error from failing installer command")
	}
	if !monorailerr.Is(err, monorailerr.Installer) {
		t.Errorf("error kind = %v, want installer", err)
	}
}

func TestForceCleanRecyclesCacheAndTransient(t *testing.T) {
	d, opts := newTestDriver(t, []string{"true"})
	if err := os.MkdirAll(opts.InstallCacheDir, 0o755); err != nil {
		t.Fatalf("mkdir cache: %v", err)
	}
	if err := os.MkdirAll(opts.TransientDir, 0o755); err != nil {
		t.Fatalf("mkdir transient: %v", err)
	}

	result, err := d.Run(context.Background(), ForceClean)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != Success {
		t.Fatalf("status = %s, want success", result.Status)
	}

	// Give the background purge goroutine a moment, then verify the
	// recycler directory ends up empty and the originals are gone.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(opts.InstallCacheDir); os.IsNotExist(err) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(opts.InstallCacheDir); !os.IsNotExist(err) {
		t.Errorf("install cache dir still exists after ForceClean")
	}
}

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

package linker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/monorailhq/monorail/internal/planner"
	"github.com/monorailhq/monorail/internal/workspace"
)

func buildTestWorkspace(t *testing.T) (*workspace.Workspace, string) {
	t.Helper()
	root := t.TempDir()

	write := func(folder, name, version string) {
		dir := filepath.Join(root, folder)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
		manifest := `{"name":"` + name + `","version":"` + version + `"}`
		if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifest), 0o644); err != nil {
			t.Fatalf("write manifest: %v", err)
		}
	}
	write("packages/a", "a", "1.0.0")
	write("packages/b", "b", "1.0.0")
	write("packages/c", "c", "1.0.0")

	repo := `{
		"installerName": "npm",
		"installerVersion": "10.0.0",
		"lockfilePath": "common/temp/npm-shrinkwrap.json",
		"projects": [
			{"packageName": "a", "projectFolder": "packages/a"},
			{"packageName": "b", "projectFolder": "packages/b"},
			{"packageName": "c", "projectFolder": "packages/c"}
		]
	}`
	if err := os.WriteFile(filepath.Join(root, "monorail.json"), []byte(repo), 0o644); err != nil {
		t.Fatalf("write repo manifest: %v", err)
	}

	ws, err := workspace.Load(root, nil, nil)
	if err != nil {
		t.Fatalf("workspace.Load: %v", err)
	}
	return ws, root
}

func TestLinkCreatesTransitiveSymlinks(t *testing.T) {
	ws, root := buildTestWorkspace(t)
	commonDir := filepath.Join(root, "common", "temp")
	if err := os.MkdirAll(commonDir, 0o755); err != nil {
		t.Fatalf("mkdir common dir: %v", err)
	}

	l := New(root, ws, nil)
	edges := []planner.LinkEdge{
		{Consumer: "a", Dependency: "b"},
		{Consumer: "b", Dependency: "c"},
	}
	if err := l.Link(commonDir, edges); err != nil {
		t.Fatalf("Link: %v", err)
	}

	linkB := filepath.Join(root, "packages/a/node_modules/b")
	linkC := filepath.Join(root, "packages/a/node_modules/c")
	for _, path := range []string{linkB, linkC} {
		info, err := os.Lstat(path)
		if err != nil {
			t.Fatalf("expected symlink at %s: %v", path, err)
		}
		if info.Mode()&os.ModeSymlink == 0 {
			t.Errorf("%s is not a symlink", path)
		}
	}

	if _, err := os.Stat(FlagPath(commonDir)); err != nil {
		t.Errorf("expected success flag to be written: %v", err)
	}
}

func TestLinkIsNoOpWhenFlagAlreadyPresent(t *testing.T) {
	ws, root := buildTestWorkspace(t)
	commonDir := filepath.Join(root, "common", "temp")
	if err := os.MkdirAll(commonDir, 0o755); err != nil {
		t.Fatalf("mkdir common dir: %v", err)
	}
	if err := os.WriteFile(FlagPath(commonDir), []byte("ok"), 0o644); err != nil {
		t.Fatalf("seed flag: %v", err)
	}

	l := New(root, ws, nil)
	edges := []planner.LinkEdge{{Consumer: "a", Dependency: "b"}}
	if err := l.Link(commonDir, edges); err != nil {
		t.Fatalf("Link: %v", err)
	}

	if _, err := os.Lstat(filepath.Join(root, "packages/a/node_modules/b")); !os.IsNotExist(err) {
		t.Errorf("expected no link to be created while flag is present")
	}
}

func TestInvalidateRemovesFlag(t *testing.T) {
	commonDir := t.TempDir()
	flagPath := FlagPath(commonDir)
	if err := os.WriteFile(flagPath, []byte("ok"), 0o644); err != nil {
		t.Fatalf("seed flag: %v", err)
	}
	if err := Invalidate(commonDir); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := os.Stat(flagPath); !os.IsNotExist(err) {
		t.Errorf("expected flag to be removed")
	}
}

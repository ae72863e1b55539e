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

package planner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/monorailhq/monorail/internal/monorailerr"
	"github.com/monorailhq/monorail/internal/workspace"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newTestWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "monorail.json"), `{
		"installerName": "npm",
		"installerVersion": "10.0.0",
		"lockfilePath": "common/temp/npm-shrinkwrap.json",
		"projects": [
			{"packageName": "a", "projectFolder": "packages/a"},
			{"packageName": "b", "projectFolder": "packages/b"}
		]
	}`)
	writeFile(t, filepath.Join(root, "packages/a/package.json"), `{
		"name":"a","version":"1.0.0",
		"dependencies": {"lodash": "^4.0.0"}
	}`)
	writeFile(t, filepath.Join(root, "packages/b/package.json"), `{
		"name":"b","version":"1.0.0",
		"dependencies": {"a": "^1.0.0", "lodash": "^4.0.0"},
		"devDependencies": {"eslint": "^8.0.0"}
	}`)

	ws, err := workspace.Load(root, nil, nil)
	if err != nil {
		t.Fatalf("workspace.Load returned error: %v", err)
	}
	return ws
}

func TestPlanDetectsPinsAndLocalLinks(t *testing.T) {
	ws := newTestWorkspace(t)
	p := New(ws, nil, nil, filepath.Join(ws.Root, "common/temp"), nil)

	plan, err := p.Plan()
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	if rng, ok := plan.Pins["lodash"]; !ok || rng != "^4.0.0" {
		t.Errorf("Pins[lodash] = %q, ok=%v, want ^4.0.0", rng, ok)
	}

	foundLink := false
	for _, link := range plan.LocalLinks {
		if link.Consumer == "b" && link.Dependency == "a" {
			foundLink = true
		}
	}
	if !foundLink {
		t.Errorf("LocalLinks = %v, want an edge b -> a", plan.LocalLinks)
	}

	stubB := plan.Stubs["b"]
	if _, hasA := stubB.Manifest.Dependencies["a"]; hasA {
		t.Errorf("stub for b should not list a as a dependency, got %v", stubB.Manifest.Dependencies)
	}
	if rng := stubB.Manifest.Dependencies["eslint"]; rng != "^8.0.0" {
		t.Errorf("devDependency eslint should be promoted into stub deps, got %q", rng)
	}
}

func TestPlanRejectsUnsatisfiedNonExemptLocalDependency(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "monorail.json"), `{
		"installerName": "npm",
		"installerVersion": "10.0.0",
		"lockfilePath": "common/temp/npm-shrinkwrap.json",
		"projects": [
			{"packageName": "a", "projectFolder": "packages/a"},
			{"packageName": "b", "projectFolder": "packages/b"}
		]
	}`)
	writeFile(t, filepath.Join(root, "packages/a/package.json"), `{"name":"a","version":"1.5.0"}`)
	// b's devDependencies range on a is satisfied (so workspace.Load's graph,
	// which merges deps+devDeps with devDeps winning on conflict, sees no
	// violation), but its regular dependencies range is not, and the
	// planner's stub synthesis lets the regular dependency win on conflict —
	// this must surface as a Validation error from Plan, not a silent stub dep.
	writeFile(t, filepath.Join(root, "packages/b/package.json"), `{
		"name":"b","version":"1.0.0",
		"dependencies": {"a": "^2.0.0"},
		"devDependencies": {"a": "^1.0.0"}
	}`)

	ws, err := workspace.Load(root, nil, nil)
	if err != nil {
		t.Fatalf("workspace.Load returned error: %v", err)
	}

	p := New(ws, nil, nil, filepath.Join(root, "common/temp"), nil)
	if _, err := p.Plan(); err == nil {
		t.Fatal("expected Plan to reject the unsatisfied non-exempt local dependency")
	} else if !monorailerr.Is(err, monorailerr.Validation) {
		t.Errorf("expected a Validation error, got %v", err)
	}
}

func TestWriteStubArchivesIsByteStable(t *testing.T) {
	ws := newTestWorkspace(t)
	commonDir := filepath.Join(ws.Root, "common/temp")
	p := New(ws, nil, nil, commonDir, nil)

	plan, err := p.Plan()
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if err := p.WriteStubArchives(plan); err != nil {
		t.Fatalf("WriteStubArchives returned error: %v", err)
	}

	for _, stub := range plan.Stubs {
		if !stub.Changed {
			t.Errorf("expected first write to report Changed=true for %s", stub.Project.PackageName)
		}
	}

	info := make(map[string]os.FileInfo)
	for name, stub := range plan.Stubs {
		fi, err := os.Stat(stub.ArchivePath)
		if err != nil {
			t.Fatalf("stat %s: %v", stub.ArchivePath, err)
		}
		info[name] = fi
	}

	plan2, err := p.Plan()
	if err != nil {
		t.Fatalf("second Plan returned error: %v", err)
	}
	if err := p.WriteStubArchives(plan2); err != nil {
		t.Fatalf("second WriteStubArchives returned error: %v", err)
	}

	for name, stub := range plan2.Stubs {
		if stub.Changed {
			t.Errorf("expected unchanged stub for %s on rerun", name)
		}
		fi, err := os.Stat(stub.ArchivePath)
		if err != nil {
			t.Fatalf("stat %s: %v", stub.ArchivePath, err)
		}
		if fi.ModTime() != info[name].ModTime() {
			t.Errorf("mtime changed for unchanged stub %s", name)
		}
	}
}

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

package changeset

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/monorailhq/monorail/internal/monorailerr"
	"github.com/monorailhq/monorail/internal/rewrite"
	"github.com/monorailhq/monorail/internal/secureio"
)

// applyManifestRewrites rewrites every changed project's manifest version
// and every dependency/devDependency range that points at a bumped
// package, preserving each range's operator style. When dryRun is set, no
// file is touched, but a git-style patch is still generated for every
// project that would have changed, so --dry-run can preview the exact
// edit the real run would make. It returns those patches keyed by package
// name.
func (p *Pipeline) applyManifestRewrites(pending map[string]*PendingChange, dryRun bool) (map[string]string, error) {
	versions := make(map[string]string, len(pending))
	for name, pc := range pending {
		if pc.NewVersion != "" {
			versions[name] = pc.NewVersion
		}
	}

	patches := make(map[string]string)

	for _, proj := range p.ws.Projects {
		manifestPath := filepath.Join(p.ws.Root, proj.Folder, "package.json")

		before, err := secureio.ReadFile(manifestPath)
		if err != nil {
			return nil, monorailerr.TransientIOf(err, "read manifest for %s", proj.PackageName)
		}

		pc, changed := pending[proj.PackageName]
		rewroteDeps := false

		deps, err := rewrite.RewriteDependencyRanges(proj.Manifest.Dependencies, versions)
		if err != nil {
			return nil, monorailerr.Internalf("rewrite dependencies for %s: %v", proj.PackageName, err)
		}
		if !mapsEqual(deps, proj.Manifest.Dependencies) {
			proj.Manifest.Dependencies = deps
			rewroteDeps = true
		}

		devDeps, err := rewrite.RewriteDependencyRanges(proj.Manifest.DevDependencies, versions)
		if err != nil {
			return nil, monorailerr.Internalf("rewrite devDependencies for %s: %v", proj.PackageName, err)
		}
		if !mapsEqual(devDeps, proj.Manifest.DevDependencies) {
			proj.Manifest.DevDependencies = devDeps
			rewroteDeps = true
		}

		versionChanged := changed && pc.NewVersion != "" && pc.NewVersion != pc.CurrentVersion
		if versionChanged {
			proj.Manifest.Version = pc.NewVersion
		}

		if !versionChanged && !rewroteDeps {
			continue
		}

		after, err := json.MarshalIndent(proj.Manifest, "", "  ")
		if err != nil {
			return nil, monorailerr.Internalf("marshal manifest for %s: %v", proj.PackageName, err)
		}
		after = append(after, '\n')

		if !dryRun {
			if err := secureio.WriteFile(manifestPath, after, 0o644); err != nil {
				return nil, monorailerr.TransientIOf(err, "write manifest for %s", proj.PackageName)
			}
		}

		relPath := filepath.Join(proj.Folder, "package.json")
		patch, err := rewrite.GeneratePatch(relPath, string(before), string(after))
		if err != nil {
			p.log.Warn("generate manifest patch", "package", proj.PackageName, "error", err)
			continue
		}
		patches[proj.PackageName] = patch

		adds, dels := rewrite.CountChanges(patch)
		if dryRun {
			p.log.Debug("would rewrite manifest", "package", proj.PackageName, "additions", adds, "deletions", dels)
		} else {
			p.log.Debug("rewrote manifest", "package", proj.PackageName, "additions", adds, "deletions", dels)
		}
	}

	return patches, nil
}

func mapsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// deleteChangeFiles removes every change file that was folded into this
// run's result, so a repeat run starts from a clean changes folder.
func (p *Pipeline) deleteChangeFiles(records []changeRecord) error {
	for _, rec := range records {
		if err := os.Remove(rec.path); err != nil && !os.IsNotExist(err) {
			return monorailerr.TransientIOf(err, "remove consumed change file %s", rec.path)
		}
	}
	return nil
}

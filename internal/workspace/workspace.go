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

package workspace

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/monorailhq/monorail/internal/monorailerr"
	"github.com/monorailhq/monorail/internal/secureio"
)

// Workspace is the fully loaded, validated, and indexed repository.
type Workspace struct {
	Root    string
	Repo    RepoManifest
	Projects []*Project

	byName     map[string]*Project
	byTempName map[string]*Project
	byUnscoped map[string][]*Project // unscoped manifest-name suffix -> candidates

	Graph *Graph

	log *slog.Logger
}

// Load reads root/monorail.json and every referenced project's package
// manifest, validates them, and builds the dependency graph. knownPolicies
// is the set of version-policy names loaded from the policy registry; pass
// nil to skip that validation step (e.g. when the registry hasn't been
// loaded yet).
func Load(root string, log *slog.Logger, knownPolicies map[string]struct{}) (*Workspace, error) {
	if log == nil {
		log = slog.Default()
	}

	manifestPath := filepath.Join(root, "monorail.json")
	raw, err := secureio.ReadFile(manifestPath)
	if err != nil {
		return nil, monorailerr.Configurationf("read repository manifest %s: %v", manifestPath, err)
	}

	var repo RepoManifest
	if err := json.Unmarshal(raw, &repo); err != nil {
		return nil, monorailerr.Configurationf("parse repository manifest %s: %v", manifestPath, err)
	}
	if len(repo.Projects) == 0 {
		return nil, monorailerr.Configurationf("repository manifest %s declares no projects", manifestPath)
	}

	ws := &Workspace{
		Root:       root,
		Repo:       repo,
		byName:     make(map[string]*Project, len(repo.Projects)),
		byTempName: make(map[string]*Project, len(repo.Projects)),
		byUnscoped: make(map[string][]*Project),
		log:        log,
	}

	for _, entry := range repo.Projects {
		proj, err := ws.loadProject(entry, knownPolicies)
		if err != nil {
			return nil, err
		}
		if _, dup := ws.byName[proj.PackageName]; dup {
			return nil, monorailerr.Configurationf("duplicate package name %q", proj.PackageName)
		}
		if _, dup := ws.byTempName[proj.TempName]; dup {
			return nil, monorailerr.Configurationf("temp name collision for %q", proj.TempName)
		}
		ws.byName[proj.PackageName] = proj
		ws.byTempName[proj.TempName] = proj
		suffix := unscopedName(proj.PackageName)
		ws.byUnscoped[suffix] = append(ws.byUnscoped[suffix], proj)
		ws.Projects = append(ws.Projects, proj)
	}

	graph, err := buildGraph(ws)
	if err != nil {
		return nil, err
	}
	ws.Graph = graph

	log.Debug("workspace loaded", "projects", len(ws.Projects))
	return ws, nil
}

func (ws *Workspace) loadProject(entry ProjectEntry, knownPolicies map[string]struct{}) (*Project, error) {
	if entry.PackageName == "" {
		return nil, monorailerr.Configurationf("project entry missing packageName")
	}
	if entry.ProjectFolder == "" {
		return nil, monorailerr.Configurationf("project %q missing projectFolder", entry.PackageName)
	}

	depth := folderDepth(entry.ProjectFolder)
	if ws.Repo.MinFolderDepth > 0 && depth < ws.Repo.MinFolderDepth {
		return nil, monorailerr.Configurationf("project %q folder %q depth %d below minimum %d",
			entry.PackageName, entry.ProjectFolder, depth, ws.Repo.MinFolderDepth)
	}
	if ws.Repo.MaxFolderDepth > 0 && depth > ws.Repo.MaxFolderDepth {
		return nil, monorailerr.Configurationf("project %q folder %q depth %d above maximum %d",
			entry.PackageName, entry.ProjectFolder, depth, ws.Repo.MaxFolderDepth)
	}

	if len(ws.Repo.ReviewCategories) > 0 {
		if entry.ReviewCategory == "" {
			return nil, monorailerr.Configurationf("project %q requires a reviewCategory", entry.PackageName)
		}
		if !contains(ws.Repo.ReviewCategories, entry.ReviewCategory) {
			return nil, monorailerr.Configurationf("project %q has unknown reviewCategory %q", entry.PackageName, entry.ReviewCategory)
		}
	}

	if entry.VersionPolicyName != "" && knownPolicies != nil {
		if _, ok := knownPolicies[entry.VersionPolicyName]; !ok {
			return nil, monorailerr.Configurationf("project %q references unknown version policy %q", entry.PackageName, entry.VersionPolicyName)
		}
	}

	manifestPath := filepath.Join(ws.Root, entry.ProjectFolder, "package.json")
	raw, err := secureio.ReadFile(manifestPath)
	if err != nil {
		return nil, monorailerr.Configurationf("project %q: read manifest %s: %v", entry.PackageName, manifestPath, err)
	}

	var manifest ProjectManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, monorailerr.Configurationf("project %q: parse manifest %s: %v", entry.PackageName, manifestPath, err)
	}
	if manifest.Name != entry.PackageName {
		return nil, monorailerr.Configurationf("project %q: manifest name %q does not match packageName", entry.PackageName, manifest.Name)
	}

	exemptions := make(map[string]struct{}, len(entry.CyclicDependencyProjects))
	for _, d := range entry.CyclicDependencyProjects {
		exemptions[d] = struct{}{}
	}

	return &Project{
		PackageName:       entry.PackageName,
		Folder:            entry.ProjectFolder,
		ReviewCategory:    entry.ReviewCategory,
		CyclicExemptions:  exemptions,
		VersionPolicyName: entry.VersionPolicyName,
		Manifest:          &manifest,
		TempName:          deriveTempName(entry.PackageName),
		explicitShouldPub: entry.ShouldPublish,
	}, nil
}

func folderDepth(folder string) int {
	cleaned := strings.Trim(filepath.ToSlash(folder), "/")
	if cleaned == "" {
		return 0
	}
	return len(strings.Split(cleaned, "/"))
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

// ByName returns the project with the exact package name, if any.
func (ws *Workspace) ByName(name string) (*Project, bool) {
	p, ok := ws.byName[name]
	return p, ok
}

// ByTempName returns the project owning the given synthetic temp name.
func (ws *Workspace) ByTempName(tempName string) (*Project, bool) {
	p, ok := ws.byTempName[tempName]
	return p, ok
}

// Resolve looks up a project by exact name first, then by shorthand: a bare
// name matches if it is unique among manifest-name suffixes.
func (ws *Workspace) Resolve(shorthand string) (*Project, error) {
	if p, ok := ws.byName[shorthand]; ok {
		return p, nil
	}
	candidates := ws.byUnscoped[shorthand]
	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("no project matches %q", shorthand)
	case 1:
		return candidates[0], nil
	default:
		return nil, fmt.Errorf("shorthand %q is ambiguous among %d projects", shorthand, len(candidates))
	}
}

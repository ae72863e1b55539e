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
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/monorailhq/monorail/internal/config"
	"github.com/monorailhq/monorail/internal/lockfile"
	"github.com/monorailhq/monorail/internal/versionpolicy"
	"github.com/monorailhq/monorail/internal/workspace"
)

// repoPaths collects the on-disk layout rooted at the repository root,
// matching §6's "Persisted state layout".
type repoPaths struct {
	root           string
	repoManifest   string
	config         string
	policyRegistry string
	changesDir     string
	commonDir      string
	commonManifest string
	commonProjects string
	shrinkwrap     string
	installMarker  string
	sharedModules  string
	installCache   string
	transientDir   string
	recyclerDir    string
	toolMarker     string
}

func newRepoPaths(root string) repoPaths {
	common := filepath.Join(root, "common", "temp")
	return repoPaths{
		root:           root,
		repoManifest:   filepath.Join(root, "monorail.json"),
		config:         filepath.Join(root, "monorail.yaml"),
		policyRegistry: filepath.Join(root, "common", "config", "version-policies.yaml"),
		changesDir:     filepath.Join(root, "changes"),
		commonDir:      common,
		commonManifest: filepath.Join(common, "package.json"),
		commonProjects: filepath.Join(common, "projects"),
		shrinkwrap:     filepath.Join(common, "npm-shrinkwrap.json"),
		installMarker:  filepath.Join(common, "last-install.flag"),
		sharedModules:  filepath.Join(root, "common", "node_modules"),
		installCache:   filepath.Join(common, "install-cache"),
		transientDir:   filepath.Join(common, "transient"),
		recyclerDir:    filepath.Join(common, "recycler"),
		toolMarker:     filepath.Join(common, "last-install-tool.flag"),
	}
}

// newLogger builds the logger every command shares, honoring -q/-v.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: GetLogLevel(),
	}))
}

// loadPolicyRegistry loads the version-policy registry at paths.policyRegistry.
// A missing file yields an empty, valid registry.
func loadPolicyRegistry(paths repoPaths) (*versionpolicy.Registry, error) {
	return versionpolicy.Load(paths.policyRegistry)
}

// loadWorkspace loads the repository config, the policy registry (used only
// to check policy references), the repository manifest and every project
// manifest, and returns the workspace, the config and the resolved paths.
func loadWorkspace(log *slog.Logger) (*workspace.Workspace, *config.Config, repoPaths, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, nil, repoPaths{}, fmt.Errorf("get working directory: %w", err)
	}
	paths := newRepoPaths(root)

	cfg, err := config.Load(paths.config)
	if err != nil {
		return nil, nil, paths, fmt.Errorf("load %s: %w", paths.config, err)
	}

	registry, err := loadPolicyRegistry(paths)
	if err != nil {
		return nil, nil, paths, fmt.Errorf("load version policy registry: %w", err)
	}

	ws, err := workspace.Load(root, log, registry.Names())
	if err != nil {
		return nil, nil, paths, fmt.Errorf("load workspace: %w", err)
	}

	return ws, cfg, paths, nil
}

// openLockfile opens the committed lockfile referenced by the repository
// manifest. A lockfile that does not yet exist (first install) is not an
// error: the planner simply treats the workspace as having no lockfile to
// validate against.
func openLockfile(ws *workspace.Workspace, log *slog.Logger) (*lockfile.Adapter, error) {
	if ws.Repo.LockfilePath == "" {
		return nil, nil
	}
	path := filepath.Join(ws.Root, ws.Repo.LockfilePath)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return lockfile.Open(path, log)
}

var titleCaser = cases.Title(language.English)

// titleCase renders a scheduler/installer status label for report headers,
// e.g. "success_with_warnings" -> "Success With Warnings".
func titleCase(label string) string {
	spaced := ""
	for _, r := range label {
		if r == '_' || r == '-' {
			spaced += " "
			continue
		}
		spaced += string(r)
	}
	return titleCaser.String(spaced)
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func mustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

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

// Package linker materializes the planner's local-link edges as real
// filesystem links inside each consumer's module folder, transitively, so a
// project's indirect workspace dependencies resolve without going through
// the shared install tree.
package linker

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/monorailhq/monorail/internal/monorailerr"
	"github.com/monorailhq/monorail/internal/planner"
	"github.com/monorailhq/monorail/internal/secureio"
	"github.com/monorailhq/monorail/internal/workspace"
)

// successFlagName marks a completed linking pass. Any install invalidates it.
const successFlagName = "local-link.flag"

// FlagPath returns the success-flag path under commonDir.
func FlagPath(commonDir string) string {
	return filepath.Join(commonDir, successFlagName)
}

// Invalidate removes the link success flag, forcing the next Link call to
// redo the work. Called after every successful install.
func Invalidate(commonDir string) error {
	err := os.Remove(FlagPath(commonDir))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Linker creates workspace-local symlinks for a set of planner link edges.
type Linker struct {
	root string
	ws   *workspace.Workspace
	log  *slog.Logger
}

// New constructs a Linker. root is the repository root; link edge folders
// are resolved relative to it.
func New(root string, ws *workspace.Workspace, log *slog.Logger) *Linker {
	if log == nil {
		log = slog.Default()
	}
	return &Linker{root: root, ws: ws, log: log}
}

// Link materializes edges (and their transitive closure) as symlinks, then
// writes the success flag under commonDir. A no-op if the flag already
// exists from a prior, not-yet-invalidated run.
func (l *Linker) Link(commonDir string, edges []planner.LinkEdge) error {
	flagPath := FlagPath(commonDir)
	if _, err := os.Stat(flagPath); err == nil {
		l.log.Debug("local links already materialized, skipping")
		return nil
	}

	adjacency := make(map[string][]string)
	for _, e := range edges {
		adjacency[e.Consumer] = append(adjacency[e.Consumer], e.Dependency)
	}

	consumers := make([]string, 0, len(adjacency))
	for c := range adjacency {
		consumers = append(consumers, c)
	}
	sort.Strings(consumers)

	for _, consumer := range consumers {
		closure := transitiveClosure(consumer, adjacency)
		deps := make([]string, 0, len(closure))
		for dep := range closure {
			deps = append(deps, dep)
		}
		sort.Strings(deps)

		for _, dep := range deps {
			if err := l.linkOne(consumer, dep); err != nil {
				return err
			}
		}
	}

	return secureio.WriteFile(flagPath, []byte("ok"), 0o644)
}

// transitiveClosure returns every project reachable from start by following
// link edges, excluding start itself.
func transitiveClosure(start string, adjacency map[string][]string) map[string]struct{} {
	seen := make(map[string]struct{})
	var visit func(name string)
	visit = func(name string) {
		for _, dep := range adjacency[name] {
			if _, ok := seen[dep]; ok {
				continue
			}
			seen[dep] = struct{}{}
			visit(dep)
		}
	}
	visit(start)
	return seen
}

// Remove deletes every symlink edges (and its transitive closure) would
// have created, without touching the link success flag's file itself —
// callers invalidate that separately once removal succeeds.
func Remove(root string, ws *workspace.Workspace, edges []planner.LinkEdge) error {
	adjacency := make(map[string][]string)
	for _, e := range edges {
		adjacency[e.Consumer] = append(adjacency[e.Consumer], e.Dependency)
	}

	consumers := make([]string, 0, len(adjacency))
	for c := range adjacency {
		consumers = append(consumers, c)
	}
	sort.Strings(consumers)

	for _, consumerName := range consumers {
		consumer, ok := ws.ByName(consumerName)
		if !ok {
			return monorailerr.Internalf("link edge references unknown consumer %q", consumerName)
		}
		closure := transitiveClosure(consumerName, adjacency)
		deps := make([]string, 0, len(closure))
		for dep := range closure {
			deps = append(deps, dep)
		}
		sort.Strings(deps)

		modulesDir := filepath.Join(root, consumer.Folder, "node_modules")
		for _, dep := range deps {
			linkPath := filepath.Join(modulesDir, filepath.FromSlash(dep))
			if err := os.RemoveAll(linkPath); err != nil {
				return monorailerr.TransientIOf(err, "removing local link %q -> %q", consumerName, dep)
			}
		}
	}
	return nil
}

func (l *Linker) linkOne(consumerName, depName string) error {
	consumer, ok := l.ws.ByName(consumerName)
	if !ok {
		return monorailerr.Internalf("link edge references unknown consumer %q", consumerName)
	}
	dep, ok := l.ws.ByName(depName)
	if !ok {
		return monorailerr.Internalf("link edge references unknown dependency %q", depName)
	}

	modulesDir := filepath.Join(l.root, consumer.Folder, "node_modules")
	linkPath := filepath.Join(modulesDir, filepath.FromSlash(depName))
	if err := os.MkdirAll(filepath.Dir(linkPath), 0o755); err != nil {
		return monorailerr.TransientIOf(err, "creating module scope directory for %q", depName)
	}

	target := filepath.Join(l.root, dep.Folder)

	if err := os.RemoveAll(linkPath); err != nil {
		return monorailerr.TransientIOf(err, "clearing prior local link for %q", depName)
	}
	if err := createLink(target, linkPath); err != nil {
		return monorailerr.TransientIOf(err, "linking %q -> %q", consumerName, depName)
	}
	return nil
}

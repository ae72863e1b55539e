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
	"sort"

	"github.com/monorailhq/monorail/internal/monorailerr"
	"github.com/monorailhq/monorail/internal/semverutil"
)

// Graph holds the local dependency graph, keyed by package name. It stores
// projects by stable string identifier rather than back-pointers, so the
// structure stays a flat index even though the underlying relationship is
// cyclic-capable (cyclic exemptions are required to break real cycles).
type Graph struct {
	// dependencies[P] is the set of local projects P directly depends on
	// (non-exempt, range-satisfied).
	dependencies map[string]map[string]struct{}
	// downstream[D] is the set of local projects that directly depend on D.
	downstream map[string]map[string]struct{}
}

// Downstream returns the names of projects that directly depend on name.
func (g *Graph) Downstream(name string) []string {
	return sortedKeys(g.downstream[name])
}

// Dependencies returns the names of local projects that name directly
// depends on.
func (g *Graph) Dependencies(name string) []string {
	return sortedKeys(g.dependencies[name])
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func buildGraph(ws *Workspace) (*Graph, error) {
	g := &Graph{
		dependencies: make(map[string]map[string]struct{}, len(ws.Projects)),
		downstream:   make(map[string]map[string]struct{}, len(ws.Projects)),
	}
	for _, p := range ws.Projects {
		g.dependencies[p.PackageName] = make(map[string]struct{})
		g.downstream[p.PackageName] = make(map[string]struct{})
	}

	for _, p := range ws.Projects {
		all := mergeDeps(p.Manifest.Dependencies, p.Manifest.DevDependencies)
		for depName, rng := range all {
			dep, ok := ws.byName[depName]
			if !ok {
				continue
			}
			if p.IsCyclicExempt(depName) {
				continue
			}
			satisfied, checked := semverutil.Satisfies(rng, dep.Version())
			if !checked {
				continue
			}
			if !satisfied {
				return nil, monorailerr.Validationf(
					"project %q declares %q at range %q, which local project %q's version %q does not satisfy, and %q is not cyclic-exempt",
					p.PackageName, depName, rng, depName, dep.Version(), depName)
			}
			g.dependencies[p.PackageName][depName] = struct{}{}
			g.downstream[depName][p.PackageName] = struct{}{}
		}
	}

	if _, err := g.TopoOrder(); err != nil {
		return nil, err
	}
	return g, nil
}

func mergeDeps(maps ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// TopoOrder returns project names in dependency order (a project's local
// dependencies precede it). Returns a Configuration error if the graph
// (excluding cyclic exemptions) contains a cycle.
func (g *Graph) TopoOrder() ([]string, error) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(g.dependencies))
	order := make([]string, 0, len(g.dependencies))

	names := make([]string, 0, len(g.dependencies))
	for name := range g.dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	var visit func(name string, stack []string) error
	visit = func(name string, stack []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return monorailerr.Configurationf("dependency cycle detected: %v -> %s", append(stack, name), name)
		}
		state[name] = visiting
		deps := sortedKeys(g.dependencies[name])
		for _, dep := range deps {
			if err := visit(dep, append(stack, name)); err != nil {
				return err
			}
		}
		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

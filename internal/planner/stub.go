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
	"sort"

	"github.com/monorailhq/monorail/internal/monorailerr"
	"github.com/monorailhq/monorail/internal/semverutil"
	"github.com/monorailhq/monorail/internal/workspace"
)

// computeStubs synthesizes a per-project stub manifest and the local-link
// edges implied by it. For each declared (name, range) pair: if name
// resolves to a local project whose version satisfies range, and the
// project has not cyclic-exempted name, it becomes a local-link edge and is
// omitted from the stub's dependencies; if that local project's version
// does not satisfy range, a Validation error is returned (see
// placeDependency); otherwise it is placed in the stub's dependencies.
// devDependencies are promoted into dependencies, with
// the regular dependency winning on conflict. optionalDependencies are
// copied verbatim, never treated as local links.
func (p *Planner) computeStubs() (map[string]*StubPlan, []LinkEdge, error) {
	stubs := make(map[string]*StubPlan, len(p.ws.Projects))
	var links []LinkEdge

	for _, proj := range p.ws.Projects {
		deps := make(map[string]string)
		isLink := make(map[string]bool)

		names := make([]string, 0, len(proj.Manifest.DevDependencies))
		for name := range proj.Manifest.DevDependencies {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := p.placeDependency(proj, name, proj.Manifest.DevDependencies[name], deps, isLink); err != nil {
				return nil, nil, err
			}
		}

		names = names[:0]
		for name := range proj.Manifest.Dependencies {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := p.placeDependency(proj, name, proj.Manifest.Dependencies[name], deps, isLink); err != nil {
				return nil, nil, err
			}
		}

		linkNames := make([]string, 0, len(isLink))
		for name, linked := range isLink {
			if linked {
				linkNames = append(linkNames, name)
			}
		}
		sort.Strings(linkNames)
		for _, name := range linkNames {
			links = append(links, LinkEdge{Consumer: proj.PackageName, Dependency: name})
		}

		var optional map[string]string
		if len(proj.Manifest.OptionalDependencies) > 0 {
			optional = make(map[string]string, len(proj.Manifest.OptionalDependencies))
			for name, rng := range proj.Manifest.OptionalDependencies {
				optional[name] = rng
			}
		}

		stubs[proj.PackageName] = &StubPlan{
			Project: proj,
			Manifest: StubManifest{
				Name:                 proj.TempName,
				Version:              "0.0.0",
				Private:              true,
				Dependencies:         deps,
				OptionalDependencies: optional,
			},
		}
	}

	return stubs, links, nil
}

// placeDependency records (name, rng) as either a local-link edge or a stub
// dependency. A later call for the same name (dependencies overlaying
// devDependencies) always wins, matching the "regular wins on conflict"
// rule, because the caller processes devDependencies first.
//
// When name resolves to a local project that is not cyclic-exempt but whose
// version does not satisfy rng, this is a configuration violation, not an
// ordinary external dependency: every non-exempt local dependency must
// either be satisfied by the local project's current version or be broken
// via cyclic exemption. Reported as a Validation error.
func (p *Planner) placeDependency(proj *workspace.Project, name, rng string, deps map[string]string, isLink map[string]bool) error {
	if dep, ok := p.ws.ByName(name); ok && !proj.IsCyclicExempt(name) {
		satisfied, checked := semverutil.Satisfies(rng, dep.Version())
		if checked && satisfied {
			isLink[name] = true
			delete(deps, name)
			return nil
		}
		if checked && !satisfied {
			return monorailerr.Validationf(
				"project %q declares %q at range %q, which local project %q's version %q does not satisfy, and %q is not cyclic-exempt",
				proj.PackageName, name, rng, name, dep.Version(), name)
		}
	}
	isLink[name] = false
	deps[name] = rng
	return nil
}

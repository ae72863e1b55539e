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
	"sort"

	"github.com/monorailhq/monorail/internal/monorailerr"
	"github.com/monorailhq/monorail/internal/semverutil"
	"github.com/monorailhq/monorail/internal/workspace"
)

// propagateAndFinalize walks the workspace graph in dependency-first order,
// so that by the time a package is visited every local dependency already
// has its final kind and version decided. That lets inheritance and order
// stamping both run in one linear pass instead of an iterative fixpoint.
func (p *Pipeline) propagateAndFinalize(pending map[string]*PendingChange) error {
	order, err := p.ws.Graph.TopoOrder()
	if err != nil {
		return err
	}

	for _, name := range order {
		proj, ok := p.ws.ByName(name)
		if !ok {
			return monorailerr.Internalf("topo order named unknown project %q", name)
		}
		if err := p.finalizeOne(name, proj, pending); err != nil {
			return err
		}
	}
	return nil
}

// finalizeOne computes the final kind, version, range, and apply order for
// one package, given that every local dependency earlier in topo order is
// already finalized in pending.
func (p *Pipeline) finalizeOne(name string, proj *workspace.Project, pending map[string]*PendingChange) error {
	inherited := KindNone
	depOrder := 0
	forceDependency := p.opts.PrereleaseToken != ""

	anyInherited := false
	for _, depName := range p.ws.Graph.Dependencies(name) {
		depPC, ok := pending[depName]
		if !ok {
			continue
		}
		// In prerelease mode every package's own kind is held at none by
		// the skip rule, so propagation must look past that at whether
		// the dependency carried a real change before it was downgraded.
		signal := depPC.Kind != KindNone
		if forceDependency {
			signal = signal || depPC.hadSignal
		}
		if !signal {
			continue
		}
		anyInherited = true
		if depPC.Order+1 > depOrder {
			depOrder = depPC.Order + 1
		}

		var k ChangeKind
		if forceDependency {
			k = KindDependency
		} else {
			rng := dependencyRange(proj, depName)
			satisfied, ok := semverutil.Satisfies(rng, depPC.NewVersion)
			if ok && satisfied {
				k = KindDependency
			} else {
				k = KindPatch
			}
		}
		inherited = maxKind(inherited, k)
	}

	pc, hasDirect := pending[name]
	if !hasDirect && !anyInherited {
		return nil
	}
	if !hasDirect {
		pc = &PendingChange{PackageName: name, Kind: KindNone, CurrentVersion: proj.Version()}
		pending[name] = pc
	}

	outcome := p.classifySkip(name, proj)

	direct := pc.Kind
	if outcome.zeroDirect {
		direct = KindNone
	}
	combinedInherited := inherited
	if outcome.zeroInherited {
		combinedInherited = KindNone
	}
	preSkipKind := maxKind(pc.Kind, inherited)
	pc.hadSignal = preSkipKind != KindNone

	pc.Kind = maxKind(direct, combinedInherited)
	pc.Skipped = outcome.holdVersion
	pc.Order = depOrder

	if outcome.holdVersion || pc.Kind == KindNone || pc.Kind == KindDependency {
		pc.NewVersion = pc.CurrentVersion
	} else {
		nv, err := semverutil.Bump(pc.CurrentVersion, pc.Kind.bumpKind(), "")
		if err != nil {
			return monorailerr.Internalf("bump %s: %v", name, err)
		}
		pc.NewVersion = nv
	}

	rng, err := semverutil.NewRange(pc.NewVersion)
	if err != nil {
		return monorailerr.Internalf("compute publish range for %s: %v", name, err)
	}
	pc.NewRange = rng

	return nil
}

// applyOrder returns package names with pending entries sorted by ascending
// apply order, package name as the tiebreaker.
func applyOrder(pending map[string]*PendingChange) []string {
	names := make([]string, 0, len(pending))
	for name := range pending {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		oi, oj := pending[names[i]].Order, pending[names[j]].Order
		if oi != oj {
			return oi < oj
		}
		return names[i] < names[j]
	})
	return names
}

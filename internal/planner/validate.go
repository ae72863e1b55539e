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

import "fmt"

// validateLockfile implements step 6: a lockfile is INVALID if any pinned
// dependency has no compatible entry, any stub dependency is not satisfied
// under its project's temp scope, or any lockfile temp-project name is an
// orphan with no corresponding workspace project. A nil lockfile adapter
// (no committed lockfile consulted) is always valid.
func (p *Planner) validateLockfile(pins map[string]string, stubs map[string]*StubPlan) Verdict {
	if p.lock == nil {
		return Verdict{Valid: true}
	}

	var reasons []string

	for _, name := range sortedStringKeys(pins) {
		rng := pins[name]
		if !p.lock.HasCompatible(name, rng, "") {
			reasons = append(reasons, fmt.Sprintf("pinned dependency %s@%s has no compatible lockfile entry", name, rng))
		}
	}

	for _, proj := range p.ws.Projects {
		stub := stubs[proj.PackageName]
		for _, name := range sortedStringKeys(stub.Manifest.Dependencies) {
			rng := stub.Manifest.Dependencies[name]
			if !p.lock.HasCompatible(name, rng, proj.TempName) {
				reasons = append(reasons, fmt.Sprintf("project %s: dependency %s@%s not satisfied under %s", proj.PackageName, name, rng, proj.TempName))
			}
		}
	}

	known := make(map[string]struct{}, len(p.ws.Projects))
	for _, proj := range p.ws.Projects {
		known[proj.TempName] = struct{}{}
	}
	for _, tempName := range p.lock.TempProjectNames() {
		if _, ok := known[tempName]; !ok {
			reasons = append(reasons, fmt.Sprintf("lockfile temp project %s has no corresponding workspace project (orphan)", tempName))
		}
	}

	return Verdict{Valid: len(reasons) == 0, Reasons: reasons}
}

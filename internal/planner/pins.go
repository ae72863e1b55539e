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

// computePins detects implicitly-pinned external dependencies (every
// consuming project declares the same range) and merges in the operator's
// explicit pins, which win on conflict.
func (p *Planner) computePins() map[string]string {
	ranges := make(map[string]map[string]struct{})

	for _, proj := range p.ws.Projects {
		for name, rng := range mergeDeps(proj.Manifest.Dependencies, proj.Manifest.DevDependencies) {
			if _, isLocal := p.ws.ByName(name); isLocal {
				continue
			}
			if ranges[name] == nil {
				ranges[name] = make(map[string]struct{})
			}
			ranges[name][rng] = struct{}{}
		}
	}

	pins := make(map[string]string)
	for name, set := range ranges {
		if len(set) == 1 {
			for rng := range set {
				pins[name] = rng
			}
		}
	}

	for name, rng := range p.explicitPins {
		pins[name] = rng
	}

	return pins
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

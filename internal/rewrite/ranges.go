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

package rewrite

import "github.com/monorailhq/monorail/internal/semverutil"

// RewriteDependencyRanges returns a copy of deps with every entry named in
// versions reshaped to point at its new version via semverutil.RewritePrefix,
// preserving each range's original operator style ("~", "^", explicit
// bounds, or bare). Entries not named in versions pass through unchanged.
// A nil deps map returns nil, so callers can round-trip an absent
// dependencies/devDependencies field without synthesizing an empty one.
func RewriteDependencyRanges(deps map[string]string, versions map[string]string) (map[string]string, error) {
	if deps == nil {
		return nil, nil
	}
	out := make(map[string]string, len(deps))
	for name, rng := range deps {
		newVersion, ok := versions[name]
		if !ok {
			out[name] = rng
			continue
		}
		newRange, err := semverutil.RewritePrefix(rng, newVersion)
		if err != nil {
			return nil, err
		}
		out[name] = newRange
	}
	return out, nil
}

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

package semverutil

import "testing"

func TestSatisfies(t *testing.T) {
	tests := []struct {
		name    string
		rng     string
		version string
		want    bool
		wantOK  bool
	}{
		{"caret satisfied", "^1.0.0", "1.1.0", true, true},
		{"caret mismatch", "^0.9.0", "1.1.0", false, true},
		{"tilde satisfied", "~1.2.0", "1.2.5", true, true},
		{"tilde out of patch range", "~1.2.0", "1.3.0", false, true},
		{"git spec unparseable", "git+https://example.com/foo.git", "1.0.0", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Satisfies(tt.rng, tt.version)
			if ok != tt.wantOK {
				t.Fatalf("Satisfies(%q, %q) ok = %v, want %v", tt.rng, tt.version, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Satisfies(%q, %q) = %v, want %v", tt.rng, tt.version, got, tt.want)
			}
		})
	}
}

func TestBump(t *testing.T) {
	tests := []struct {
		name    string
		current string
		kind    BumpKind
		want    string
	}{
		{"minor bump", "1.2.3", BumpMinor, "1.3.0"},
		{"major bump", "1.2.3", BumpMajor, "2.0.0"},
		{"patch bump", "1.2.3", BumpPatch, "1.2.4"},
		{"none is unchanged", "1.2.3", BumpNone, "1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Bump(tt.current, tt.kind, "")
			if err != nil {
				t.Fatalf("Bump returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Bump(%q, %q) = %q, want %q", tt.current, tt.kind, got, tt.want)
			}
		})
	}
}

func TestNextMajor(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"1.2.3", "2.0.0"},
		{"0.2.3", "0.3.0"},
		{"0.0.3", "0.0.4"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			got, err := NextMajor(tt.version)
			if err != nil {
				t.Fatalf("NextMajor returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NextMajor(%q) = %q, want %q", tt.version, got, tt.want)
			}
		})
	}
}

func TestRewritePrefix(t *testing.T) {
	tests := []struct {
		name     string
		oldRange string
		newVer   string
		want     string
	}{
		{"tilde preserved", "~1.0.0", "1.1.0", "~1.1.0"},
		{"caret preserved", "^1.0.0", "1.1.0", "^1.1.0"},
		{"bare version replaced", "1.0.0", "1.1.0", "1.1.0"},
		{"explicit range reshaped", ">=1.0.0 <2.0.0", "1.1.0", ">=1.1.0 <2.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RewritePrefix(tt.oldRange, tt.newVer)
			if err != nil {
				t.Fatalf("RewritePrefix returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("RewritePrefix(%q, %q) = %q, want %q", tt.oldRange, tt.newVer, got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	got, err := Compare("1.0.0", "1.1.0")
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}
	if got != -1 {
		t.Errorf("Compare(1.0.0, 1.1.0) = %d, want -1", got)
	}
}

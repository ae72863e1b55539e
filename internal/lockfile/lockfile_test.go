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

package lockfile

import (
	"os"
	"path/filepath"
	"testing"
)

func writeLockfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "npm-shrinkwrap.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write lockfile: %v", err)
	}
	return path
}

func TestHasCompatible(t *testing.T) {
	path := writeLockfile(t, `{
		"dependencies": {
			"lodash": {"version": "4.17.21"},
			"@rush-temp/a": {
				"version": "0.0.0",
				"dependencies": {
					"lodash": {"version": "4.0.0"}
				}
			},
			"my-fork": {"version": "github:acme/my-fork#v1"}
		}
	}`)

	a, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	tests := []struct {
		name      string
		rng       string
		tempScope string
		want      bool
	}{
		{"lodash", "^4.0.0", "", true},
		{"lodash", "^5.0.0", "", false},
		{"lodash", "^4.0.0", "@rush-temp/a", true},
		{"lodash", "^4.17.0", "@rush-temp/a", false},
		{"missing", "^1.0.0", "", false},
		{"my-fork", "github:acme/my-fork#v1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.tempScope, func(t *testing.T) {
			got := a.HasCompatible(tt.name, tt.rng, tt.tempScope)
			if got != tt.want {
				t.Errorf("HasCompatible(%q, %q, %q) = %v, want %v", tt.name, tt.rng, tt.tempScope, got, tt.want)
			}
		})
	}
}

func TestTempProjectNames(t *testing.T) {
	path := writeLockfile(t, `{
		"dependencies": {
			"lodash": {"version": "4.17.21"},
			"@rush-temp/a": {"version": "0.0.0"},
			"@rush-temp/b": {"version": "0.0.0"}
		}
	}`)

	a, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	names := a.TempProjectNames()
	if len(names) != 2 {
		t.Fatalf("TempProjectNames() = %v, want 2 entries", names)
	}
}

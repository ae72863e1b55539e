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

package versionpolicy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingRegistryIsEmpty(t *testing.T) {
	reg, err := Load(filepath.Join(t.TempDir(), "version-policies.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(reg.Names()) != 0 {
		t.Errorf("expected empty registry, got %v", reg.Names())
	}
}

func TestLoadParsesBothPolicyKinds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "version-policies.yaml")
	doc := `
policies:
  - kind: lockStep
    lockStep:
      policyName: p1
      version: 2.4.0
  - kind: individual
    individual:
      policyName: p2
      lockedMajor: 2
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write registry: %v", err)
	}

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	p1, ok := reg.Lookup("p1")
	if !ok {
		t.Fatal("expected p1 to be present")
	}
	if ls, ok := p1.(*LockStep); !ok || ls.Version != "2.4.0" {
		t.Errorf("p1 = %#v, want LockStep version 2.4.0", p1)
	}

	p2, ok := reg.Lookup("p2")
	if !ok {
		t.Fatal("expected p2 to be present")
	}
	ind, ok := p2.(*Individual)
	if !ok || ind.LockedMajor == nil || *ind.LockedMajor != 2 {
		t.Errorf("p2 = %#v, want Individual lockedMajor 2", p2)
	}
}

func TestSaveRoundTripsBumpedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "version-policies.yaml")
	doc := `
policies:
  - kind: lockStep
    lockStep:
      policyName: p1
      version: 1.0.0
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write registry: %v", err)
	}

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p1, _ := reg.Lookup("p1")
	ls := p1.(*LockStep)
	if _, err := ls.Bump("minor", ""); err != nil {
		t.Fatalf("Bump: %v", err)
	}

	if err := reg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	p1again, _ := reloaded.Lookup("p1")
	if p1again.(*LockStep).Version != "1.1.0" {
		t.Errorf("reloaded version = %s, want 1.1.0", p1again.(*LockStep).Version)
	}
}

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

package fingerprint

import (
	"os"
	"path/filepath"
	"testing"
)

func TestComputeAndUnchanged(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.ts"), []byte("const a = 1;"), 0o644); err != nil {
		t.Fatalf("write a.ts: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.ts"), []byte("const b = 2;"), 0o644); err != nil {
		t.Fatalf("write b.ts: %v", err)
	}

	rec1, err := Compute(dir, []string{"a.ts", "b.ts"}, "build --production")
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	rec2, err := Compute(dir, []string{"a.ts", "b.ts"}, "build --production")
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if !Unchanged(rec1, rec2) {
		t.Error("expected identical fingerprints to be Unchanged")
	}

	if err := os.WriteFile(filepath.Join(dir, "a.ts"), []byte("const a = 2;"), 0o644); err != nil {
		t.Fatalf("rewrite a.ts: %v", err)
	}
	rec3, err := Compute(dir, []string{"a.ts", "b.ts"}, "build --production")
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if Unchanged(rec1, rec3) {
		t.Error("expected changed file content to invalidate fingerprint")
	}
}

func TestUnchangedDetectsCommandLineChange(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.ts"), []byte("const a = 1;"), 0o644); err != nil {
		t.Fatalf("write a.ts: %v", err)
	}

	rec1, err := Compute(dir, []string{"a.ts"}, "build --production")
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	rec2, err := Compute(dir, []string{"a.ts"}, "build --minimal")
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if Unchanged(rec1, rec2) {
		t.Error("expected command line change to invalidate fingerprint")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec := &Record{Hashes: map[string]string{"a.ts": "deadbeef"}, CommandLine: "build"}
	if err := Save(dir, rec); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, ok, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected Load to find a record")
	}
	if !Unchanged(rec, loaded) {
		t.Error("expected loaded record to match saved record")
	}

	if err := Remove(dir); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	_, ok, err = Load(dir)
	if err != nil {
		t.Fatalf("Load after Remove returned error: %v", err)
	}
	if ok {
		t.Error("expected no record after Remove")
	}
}

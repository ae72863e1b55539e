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

// Package fingerprint computes and persists the content-hash record used to
// decide whether a project's build can be skipped.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/monorailhq/monorail/internal/secureio"
)

// Record is the persisted fingerprint: a content hash per tracked file plus
// the exact command line that produced the last successful build.
type Record struct {
	Hashes     map[string]string `json:"hashes"`
	CommandLine string           `json:"commandLine"`
}

// recordFileName is the name of the per-project fingerprint file.
const recordFileName = "package-deps.json"

// RecordPath returns the fingerprint file path for a project folder.
func RecordPath(projectDir string) string {
	return filepath.Join(projectDir, recordFileName)
}

// Compute hashes every file in files (paths relative to projectDir) and
// pairs the result with commandLine. Any read failure is returned as an
// error; the caller is expected to treat that as "must rebuild".
func Compute(projectDir string, files []string, commandLine string) (*Record, error) {
	hashes := make(map[string]string, len(files))
	for _, rel := range files {
		sum, err := hashFile(filepath.Join(projectDir, rel))
		if err != nil {
			return nil, err
		}
		hashes[rel] = sum
	}
	return &Record{Hashes: hashes, CommandLine: commandLine}, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 - path is built from a workspace-declared tracked file list
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Load reads the previous fingerprint record for a project, if any.
func Load(projectDir string) (*Record, bool, error) {
	path := RecordPath(projectDir)
	raw, err := secureio.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, err
	}
	return &rec, true, nil
}

// Save persists the fingerprint record, overwriting any previous one.
func Save(projectDir string, rec *Record) error {
	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return secureio.WriteFile(RecordPath(projectDir), raw, 0o644)
}

// Remove deletes the fingerprint record, so an interrupted build cannot be
// mistaken for a finished one.
func Remove(projectDir string) error {
	err := os.Remove(RecordPath(projectDir))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Unchanged reports whether prev matches cur: identical keyset, identical
// hash for every key, and identical command line.
func Unchanged(prev, cur *Record) bool {
	if prev == nil || cur == nil {
		return false
	}
	if prev.CommandLine != cur.CommandLine {
		return false
	}
	if len(prev.Hashes) != len(cur.Hashes) {
		return false
	}
	for path, hash := range cur.Hashes {
		prevHash, ok := prev.Hashes[path]
		if !ok || prevHash != hash {
			return false
		}
	}
	return true
}

// SortedKeys returns the file paths of a record's hashes in sorted order,
// useful for deterministic diagnostics output.
func (r *Record) SortedKeys() []string {
	out := make([]string, 0, len(r.Hashes))
	for k := range r.Hashes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

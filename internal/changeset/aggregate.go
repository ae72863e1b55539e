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
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/monorailhq/monorail/internal/monorailerr"
	"github.com/monorailhq/monorail/internal/secureio"
)

// changeRecord pairs one parsed change file with the path it came from, so
// the apply step can delete exactly the files that were consumed.
type changeRecord struct {
	path string
	file ChangeFile
}

// readChangeFiles walks the configured changes directory for *.json files
// and parses each as a ChangeFile. A missing directory yields no records;
// a repository between releases has nothing pending.
func (p *Pipeline) readChangeFiles() ([]changeRecord, error) {
	if p.opts.ChangesDir == "" {
		return nil, nil
	}
	if _, err := os.Stat(p.opts.ChangesDir); os.IsNotExist(err) {
		return nil, nil
	}

	var records []changeRecord
	walkErr := filepath.Walk(p.opts.ChangesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		raw, readErr := secureio.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		var cf ChangeFile
		if jsonErr := json.Unmarshal(raw, &cf); jsonErr != nil {
			return monorailerr.Configurationf("parse change file %s: %v", path, jsonErr)
		}
		records = append(records, changeRecord{path: path, file: cf})
		return nil
	})
	if walkErr != nil {
		return nil, monorailerr.Configurationf("read changes directory %s: %v", p.opts.ChangesDir, walkErr)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].path < records[j].path })
	return records, nil
}

// aggregate folds every change record into one PendingChange per named
// package: the kind is the maximum across all recorded changes, and
// comments are grouped by the kind under which they were recorded.
func (p *Pipeline) aggregate(records []changeRecord) (map[string]*PendingChange, error) {
	pending := make(map[string]*PendingChange)

	for _, rec := range records {
		if rec.file.PackageName == "" {
			return nil, monorailerr.Configurationf("change file %s missing packageName", rec.path)
		}
		proj, ok := p.ws.ByName(rec.file.PackageName)
		if !ok {
			return nil, monorailerr.Configurationf("change file %s references unknown package %q", rec.path, rec.file.PackageName)
		}

		pc, ok := pending[rec.file.PackageName]
		if !ok {
			pc = &PendingChange{
				PackageName:    rec.file.PackageName,
				Kind:           KindNone,
				CurrentVersion: proj.Version(),
			}
			pending[rec.file.PackageName] = pc
		}

		for _, change := range rec.file.Changes {
			pc.Kind = maxKind(pc.Kind, change.Kind)
			addComment(pc, change.Kind, change.Comment)
		}
	}

	return pending, nil
}

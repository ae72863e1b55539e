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

package buildtask

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ignoredDirs are never walked when discovering a project's tracked input
// files: build output, VCS metadata, and the shared installation tree.
var ignoredDirs = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	"dist":         {},
	"lib":          {},
	"coverage":     {},
}

// TrackedFiles walks projectDir and returns every regular file's
// slash-separated path relative to projectDir, sorted, excluding build
// output and VCS directories. The fingerprint file itself and any
// persisted build log are excluded so a task's own bookkeeping never
// counts as a content change.
func TrackedFiles(projectDir string) ([]string, error) {
	var files []string
	err := filepath.Walk(projectDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(projectDir, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		base := filepath.Base(path)
		if info.IsDir() {
			if _, skip := ignoredDirs[base]; skip || strings.HasPrefix(base, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if base == recordFileName || base == logFileName {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

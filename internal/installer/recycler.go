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

package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Recycler makes folder teardown asynchronous: Recycle renames a path out
// of the way immediately, and Purge does the actual (slow) deletion later,
// off the critical path of the install that is about to run.
type Recycler struct {
	dir string
	mu  sync.Mutex
}

// NewRecycler constructs a Recycler rooted at dir, created on first use.
func NewRecycler(dir string) *Recycler {
	return &Recycler{dir: dir}
}

// Recycle moves path into the recycler directory under a unique name. A
// missing path is not an error: there is nothing to tear down.
func (r *Recycler) Recycle(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(r.dir, fmt.Sprintf("%s-%d", filepath.Base(path), time.Now().UnixNano()))
	return os.Rename(path, dest)
}

// Purge deletes every entry recycled so far. Safe to call concurrently with
// Recycle; entries added after Purge starts scanning are left for the next
// call.
func (r *Recycler) Purge() error {
	r.mu.Lock()
	entries, err := os.ReadDir(r.dir)
	r.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var firstErr error
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(r.dir, entry.Name())); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

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

// Package lockfile answers compatibility queries against the committed
// shrinkwrap document. The document's format is treated as opaque outside
// of the small shape this package actually reads: a recursive
// name -> {version, dependencies} tree.
package lockfile

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/monorailhq/monorail/internal/monorailerr"
	"github.com/monorailhq/monorail/internal/secureio"
	"github.com/monorailhq/monorail/internal/semverutil"
	"github.com/monorailhq/monorail/internal/workspace"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// entry is one node of the shrinkwrap dependency tree.
type entry struct {
	Version      string           `json:"version"`
	Dependencies map[string]entry `json:"dependencies,omitempty"`
}

// Adapter answers compatibility queries against a single opened shrinkwrap
// document. It owns its own one-time-warning tracking; it is not a
// package-level singleton.
type Adapter struct {
	top map[string]entry
	log *slog.Logger

	warnOnce sync.Mutex
	warned   map[string]struct{}
}

// Open reads and parses the shrinkwrap document at path.
func Open(path string, log *slog.Logger) (*Adapter, error) {
	if log == nil {
		log = slog.Default()
	}
	raw, err := secureio.ReadFile(path)
	if err != nil {
		return nil, monorailerr.TransientIOf(err, "read lockfile %s", path)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	var doc struct {
		Dependencies map[string]entry `json:"dependencies"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, monorailerr.Validationf("parse lockfile %s: %v", path, err)
	}

	return &Adapter{
		top:    doc.Dependencies,
		log:    log,
		warned: make(map[string]struct{}),
	}, nil
}

// HasCompatible reports whether the lockfile contains an entry for name
// under tempScope (or, failing that, at the top level) whose version
// satisfies rng. Non-semver specifiers (git/tarball/tag ranges or versions)
// are treated as compatible, with a one-time-per-adapter warning.
func (a *Adapter) HasCompatible(name, rng, tempScope string) bool {
	e, ok := a.lookup(name, tempScope)
	if !ok {
		return false
	}

	satisfied, checked := semverutil.Satisfies(rng, e.Version)
	if !checked {
		a.warnNonSemver(name, rng, e.Version)
		return true
	}
	return satisfied
}

func (a *Adapter) lookup(name, tempScope string) (entry, bool) {
	if tempScope != "" {
		if scopeEntry, ok := a.top[tempScope]; ok {
			if e, ok := scopeEntry.Dependencies[name]; ok {
				return e, true
			}
		}
	}
	e, ok := a.top[name]
	return e, ok
}

func (a *Adapter) warnNonSemver(name, rng, version string) {
	key := name + "@" + rng + "=" + version
	a.warnOnce.Lock()
	defer a.warnOnce.Unlock()
	if _, seen := a.warned[key]; seen {
		return
	}
	a.warned[key] = struct{}{}
	a.log.Warn("treating non-semver specifier as compatible", "name", name, "range", rng, "lockedVersion", version)
}

// TempProjectNames returns the reserved-scope keys present in the lockfile.
func (a *Adapter) TempProjectNames() []string {
	var names []string
	for name := range a.top {
		if strings.HasPrefix(name, workspace.ReservedScope+"/") {
			names = append(names, name)
		}
	}
	return names
}

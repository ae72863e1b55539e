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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/monorailhq/monorail/internal/monorailerr"
	"github.com/monorailhq/monorail/internal/secureio"
)

// changelogKindOrder fixes the section order within a rendered changelog
// entry, most severe first.
var changelogKindOrder = []ChangeKind{KindMajor, KindMinor, KindPatch, KindDependency}

var changelogKindHeading = map[ChangeKind]string{
	KindMajor:      "Major changes",
	KindMinor:      "Minor changes",
	KindPatch:      "Patch changes",
	KindDependency: "Dependency updates",
}

// ChangelogEntry is one package's rendered changelog addition for this run.
type ChangelogEntry struct {
	PackageName string
	Version     string
	Markdown    string
}

// buildChangelogs renders one entry per package whose version actually
// changed this run. Prerelease-mode runs never touch changelogs: the
// version held constant means there is nothing durable to record yet.
func (p *Pipeline) buildChangelogs(pending map[string]*PendingChange) []ChangelogEntry {
	if p.opts.PrereleaseToken != "" {
		return nil
	}

	var entries []ChangelogEntry
	for _, name := range applyOrder(pending) {
		pc := pending[name]
		if pc.NewVersion == "" || pc.NewVersion == pc.CurrentVersion {
			continue
		}

		var b strings.Builder
		fmt.Fprintf(&b, "## %s\n\n", pc.NewVersion)
		for _, kind := range changelogKindOrder {
			comments := pc.CommentsByKind[kind]
			if len(comments) == 0 {
				continue
			}
			fmt.Fprintf(&b, "### %s\n\n", changelogKindHeading[kind])
			for _, c := range comments {
				fmt.Fprintf(&b, "- %s\n", c)
			}
			b.WriteString("\n")
		}

		entries = append(entries, ChangelogEntry{
			PackageName: pc.PackageName,
			Version:     pc.NewVersion,
			Markdown:    b.String(),
		})
	}
	return entries
}

// writeChangelogs prepends each entry's markdown to its package's
// CHANGELOG.md, creating the file if absent.
func (p *Pipeline) writeChangelogs(entries []ChangelogEntry) error {
	for _, entry := range entries {
		proj, ok := p.ws.ByName(entry.PackageName)
		if !ok {
			return monorailerr.Internalf("changelog for unknown package %q", entry.PackageName)
		}

		path := filepath.Join(p.ws.Root, proj.Folder, "CHANGELOG.md")
		existing, err := secureio.ReadFile(path)
		if err != nil {
			existing = nil
		}

		var out strings.Builder
		fmt.Fprintf(&out, "# %s\n\n", proj.PackageName)
		out.WriteString(entry.Markdown)
		if len(existing) > 0 {
			out.Write(stripHeading(existing, proj.PackageName))
		}

		if err := secureio.WriteFile(path, []byte(out.String()), 0o644); err != nil {
			return monorailerr.TransientIOf(err, "write changelog for %s", proj.PackageName)
		}
	}
	return nil
}

// stripHeading drops an existing changelog's leading "# <name>" heading (and
// the blank line after it) so repeated runs don't accumulate duplicate
// top-level headings.
func stripHeading(existing []byte, name string) []byte {
	heading := "# " + name
	text := string(existing)
	if !strings.HasPrefix(strings.TrimSpace(text), heading) {
		return existing
	}
	idx := strings.Index(text, "\n\n")
	if idx < 0 {
		return nil
	}
	return []byte(strings.TrimLeft(text[idx+2:], "\n"))
}

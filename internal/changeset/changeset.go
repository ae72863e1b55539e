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

// Package changeset aggregates per-change JSON records into per-package
// version bumps, propagates those bumps through the dependency graph,
// rewrites manifests and dependency ranges, and emits changelog entries.
package changeset

import (
	"log/slog"

	"github.com/monorailhq/monorail/internal/semverutil"
	"github.com/monorailhq/monorail/internal/workspace"
)

// ChangeKind is the totally-ordered severity of one recorded change.
type ChangeKind string

const (
	KindNone       ChangeKind = "none"
	KindDependency ChangeKind = "dependency"
	KindPatch      ChangeKind = "patch"
	KindMinor      ChangeKind = "minor"
	KindMajor      ChangeKind = "major"
)

var kindRank = map[ChangeKind]int{
	KindNone:       0,
	KindDependency: 1,
	KindPatch:      2,
	KindMinor:      3,
	KindMajor:      4,
}

func maxKind(a, b ChangeKind) ChangeKind {
	if kindRank[a] >= kindRank[b] {
		return a
	}
	return b
}

// bumpKind maps a change kind to the semver release type it applies;
// KindNone and KindDependency never move the version on their own.
func (k ChangeKind) bumpKind() semverutil.BumpKind {
	switch k {
	case KindPatch:
		return semverutil.BumpPatch
	case KindMinor:
		return semverutil.BumpMinor
	case KindMajor:
		return semverutil.BumpMajor
	default:
		return semverutil.BumpNone
	}
}

// ChangeInfo is one entry inside a change file's changes array.
type ChangeInfo struct {
	Kind    ChangeKind `json:"type"`
	Comment string     `json:"comment,omitempty"`
}

// ChangeFile is the on-disk envelope for one author-submitted change record.
type ChangeFile struct {
	PackageName string       `json:"packageName"`
	Changes     []ChangeInfo `json:"changes"`
	Author      string       `json:"author,omitempty"`
	Commit      string       `json:"commit,omitempty"`
}

// PendingChange is the aggregated, and later finalized, change state for one
// package over the course of one pipeline run.
type PendingChange struct {
	PackageName    string
	Kind           ChangeKind
	CommentsByKind map[ChangeKind][]string
	CurrentVersion string
	NewVersion     string
	NewRange       string
	Order          int
	Skipped        bool

	// hadSignal records whether this package carried a non-none kind
	// before the skip rule held its Kind at none, so prerelease-mode
	// propagation (which ignores every package's own skip) can still see
	// which packages were actually touched.
	hadSignal bool
}

// Options configures one pipeline run.
type Options struct {
	ChangesDir      string
	PrereleaseToken string
	Exclude         map[string]struct{}
	DryRun          bool
}

// Result is everything one Run produced.
type Result struct {
	Pending    map[string]*PendingChange
	ApplyOrder []string
	Changelogs []ChangelogEntry
	// Patches holds a git-style patch per package whose manifest changed
	// (or would change, under DryRun), keyed by package name.
	Patches map[string]string
}

// Pipeline runs the change-file aggregation, propagation, and application
// flow against one workspace.
type Pipeline struct {
	ws   *workspace.Workspace
	opts Options
	log  *slog.Logger
}

// New constructs a Pipeline.
func New(ws *workspace.Workspace, opts Options, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{ws: ws, opts: opts, log: log}
}

// skipOutcome is what the skip-bump rule does to one package's pending
// change once its combined kind is known.
type skipOutcome struct {
	// holdVersion forces NewVersion to stay at CurrentVersion.
	holdVersion bool
	// zeroDirect drops this package's own change-file-derived kind.
	zeroDirect bool
	// zeroInherited additionally drops any kind propagated down from a
	// local dependency, making the package invisible to its own
	// downstream. Exclusion and non-publishable packages are invisible
	// this way; prerelease mode is not, since its downstream still needs
	// to see the inherited signal to register unconditionally.
	zeroInherited bool
}

// classifySkip applies the skip-bump rule to pkg.
func (p *Pipeline) classifySkip(pkg string, proj *workspace.Project) skipOutcome {
	if _, excluded := p.opts.Exclude[pkg]; excluded {
		return skipOutcome{holdVersion: true, zeroDirect: true, zeroInherited: true}
	}
	if !proj.ShouldPublish() {
		return skipOutcome{holdVersion: true, zeroDirect: true, zeroInherited: true}
	}
	if p.opts.PrereleaseToken != "" {
		return skipOutcome{holdVersion: true, zeroDirect: true}
	}
	return skipOutcome{}
}

// dependencyRange returns the range proj declares for depName, checking
// regular dependencies before devDependencies.
func dependencyRange(proj *workspace.Project, depName string) string {
	if rng, ok := proj.Manifest.Dependencies[depName]; ok {
		return rng
	}
	if rng, ok := proj.Manifest.DevDependencies[depName]; ok {
		return rng
	}
	return ""
}

func addComment(pc *PendingChange, kind ChangeKind, comment string) {
	if comment == "" {
		return
	}
	if pc.CommentsByKind == nil {
		pc.CommentsByKind = make(map[ChangeKind][]string)
	}
	pc.CommentsByKind[kind] = append(pc.CommentsByKind[kind], comment)
}

// Run executes the full pipeline: read change files, aggregate, propagate
// and finalize versions, stamp apply order, and (unless DryRun) rewrite
// manifests, delete consumed change files, and write changelogs.
func (p *Pipeline) Run() (*Result, error) {
	records, err := p.readChangeFiles()
	if err != nil {
		return nil, err
	}

	pending, err := p.aggregate(records)
	if err != nil {
		return nil, err
	}

	if err := p.propagateAndFinalize(pending); err != nil {
		return nil, err
	}

	order := applyOrder(pending)
	changelogs := p.buildChangelogs(pending)

	patches, err := p.applyManifestRewrites(pending, p.opts.DryRun)
	if err != nil {
		return nil, err
	}

	if !p.opts.DryRun {
		if err := p.deleteChangeFiles(records); err != nil {
			return nil, err
		}
		if err := p.writeChangelogs(changelogs); err != nil {
			return nil, err
		}
	}

	return &Result{Pending: pending, ApplyOrder: order, Changelogs: changelogs, Patches: patches}, nil
}

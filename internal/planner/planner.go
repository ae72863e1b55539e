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

// Package planner synthesizes the common installation: a single manifest
// covering every project's third-party dependencies, a per-project stub
// tarball standing in for each workspace project, and the lockfile validity
// verdict that decides whether the installer needs to re-resolve.
package planner

import (
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/monorailhq/monorail/internal/lockfile"
	"github.com/monorailhq/monorail/internal/workspace"
)

// StubManifest is the minimal manifest packaged for each workspace project.
type StubManifest struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Private              bool              `json:"private"`
	Dependencies         map[string]string `json:"dependencies,omitempty"`
	OptionalDependencies map[string]string `json:"optionalDependencies,omitempty"`
}

// StubPlan is the synthesized stub for one workspace project.
type StubPlan struct {
	Project     *workspace.Project
	Manifest    StubManifest
	ArchivePath string
	// Changed reports whether the archive's bytes differ from what is
	// already on disk and therefore needed to be (or will need to be)
	// rewritten.
	Changed bool
}

// LinkEdge is a direct local-link decision: Consumer depends on Dependency
// via the workspace rather than through the shared installation.
type LinkEdge struct {
	Consumer   string
	Dependency string
}

// CommonManifest is the synthetic package manifest covering every pinned
// external dependency plus a file-path entry per workspace project stub.
type CommonManifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Private      bool              `json:"private"`
	Dependencies map[string]string `json:"dependencies"`
}

// Verdict is the outcome of validating the lockfile against the plan.
type Verdict struct {
	Valid   bool
	Reasons []string
}

// Plan is the complete output of one planning run.
type Plan struct {
	Pins           map[string]string
	Stubs          map[string]*StubPlan
	LocalLinks     []LinkEdge
	CommonManifest CommonManifest
	Verdict        Verdict
}

// Planner synthesizes installation plans for a workspace.
type Planner struct {
	ws           *workspace.Workspace
	lock         *lockfile.Adapter
	explicitPins map[string]string
	commonDir    string
	log          *slog.Logger
}

// New constructs a Planner. lock may be nil (no validity check is run).
// explicitPins are operator-declared pins from monorail.yaml; they override
// implicitly detected pins on conflict. commonDir is the directory holding
// the synthesized manifest and stub archives (typically "common/temp").
func New(ws *workspace.Workspace, lock *lockfile.Adapter, explicitPins map[string]string, commonDir string, log *slog.Logger) *Planner {
	if log == nil {
		log = slog.Default()
	}
	return &Planner{ws: ws, lock: lock, explicitPins: explicitPins, commonDir: commonDir, log: log}
}

// Plan runs the full five-step planning algorithm plus lockfile validation.
// It does not write any files; call WriteStubArchives to materialize stubs.
func (p *Planner) Plan() (*Plan, error) {
	pins := p.computePins()
	stubs, links, err := p.computeStubs()
	if err != nil {
		return nil, err
	}

	for _, proj := range p.ws.Projects {
		stub := stubs[proj.PackageName]
		stub.ArchivePath = filepath.Join(p.commonDir, "projects", workspace.UnscopedTempName(proj.TempName)+".tgz")
	}

	common := p.assembleCommonManifest(pins, stubs)
	verdict := p.validateLockfile(pins, stubs)

	return &Plan{
		Pins:           pins,
		Stubs:          stubs,
		LocalLinks:     links,
		CommonManifest: common,
		Verdict:        verdict,
	}, nil
}

func (p *Planner) assembleCommonManifest(pins map[string]string, stubs map[string]*StubPlan) CommonManifest {
	deps := make(map[string]string, len(pins)+len(stubs))
	for name, rng := range pins {
		deps[name] = rng
	}
	for _, proj := range p.ws.Projects {
		unscoped := workspace.UnscopedTempName(proj.TempName)
		deps[proj.TempName] = "file:./projects/" + unscoped + ".tgz"
	}
	return CommonManifest{
		Name:         "monorail-common-temp",
		Version:      "0.0.0",
		Private:      true,
		Dependencies: deps,
	}
}

func sortedStringKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

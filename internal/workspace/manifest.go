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

// Package workspace loads and validates the repository manifest and the
// per-project package manifests it references, and builds the dependency
// and dependent indices the rest of monorail operates against.
package workspace

// RepoManifest is the root monorail.json document.
type RepoManifest struct {
	InstallerName        string            `json:"installerName"`
	InstallerVersion      string            `json:"installerVersion"`
	LockfilePath          string            `json:"lockfilePath"`
	AllowedEmailPatterns  []string          `json:"allowedEmailPatterns,omitempty"`
	MinFolderDepth        int               `json:"minFolderDepth,omitempty"`
	MaxFolderDepth        int               `json:"maxFolderDepth,omitempty"`
	ReviewCategories      []string          `json:"reviewCategories,omitempty"`
	TelemetryEnabled      bool              `json:"telemetryEnabled,omitempty"`
	Projects              []ProjectEntry    `json:"projects"`
}

// ProjectEntry is one project entry in the repository manifest.
type ProjectEntry struct {
	PackageName              string   `json:"packageName"`
	ProjectFolder            string   `json:"projectFolder"`
	ReviewCategory           string   `json:"reviewCategory,omitempty"`
	CyclicDependencyProjects []string `json:"cyclicDependencyProjects,omitempty"`
	VersionPolicyName        string   `json:"versionPolicyName,omitempty"`
	ShouldPublish            bool     `json:"shouldPublish,omitempty"`
}

// ProjectManifest is the package.json-shaped per-project manifest.
type ProjectManifest struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Private              bool              `json:"private,omitempty"`
	Dependencies         map[string]string `json:"dependencies,omitempty"`
	DevDependencies      map[string]string `json:"devDependencies,omitempty"`
	OptionalDependencies map[string]string `json:"optionalDependencies,omitempty"`
	Scripts              map[string]string `json:"scripts,omitempty"`
}

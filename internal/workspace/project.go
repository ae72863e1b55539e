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

package workspace

import "strings"

// ReservedScope prefixes every project's synthetic temp name.
const ReservedScope = "@rush-temp"

// Project is one loaded, validated project descriptor.
type Project struct {
	PackageName        string
	Folder             string
	ReviewCategory     string
	CyclicExemptions   map[string]struct{}
	VersionPolicyName  string
	Manifest           *ProjectManifest
	TempName           string
	explicitShouldPub  bool
}

// ShouldPublish is true whenever a version policy is attached, or the
// repository manifest explicitly marked the project publishable.
func (p *Project) ShouldPublish() bool {
	return p.explicitShouldPub || p.VersionPolicyName != ""
}

// IsCyclicExempt reports whether dep must never be treated as a local link
// for this project, even if a matching local project exists.
func (p *Project) IsCyclicExempt(dep string) bool {
	_, ok := p.CyclicExemptions[dep]
	return ok
}

// Version returns the project's manifest version.
func (p *Project) Version() string {
	if p.Manifest == nil {
		return ""
	}
	return p.Manifest.Version
}

// unscopedName returns the portion of a package name after the last "/",
// used for shorthand lookup and temp-name derivation.
func unscopedName(name string) string {
	idx := strings.LastIndex(name, "/")
	if idx < 0 {
		return name
	}
	return name[idx+1:]
}

// deriveTempName builds the reserved-scope synthetic name for a project.
func deriveTempName(packageName string) string {
	sanitized := strings.ReplaceAll(strings.TrimPrefix(packageName, "@"), "/", "-")
	return ReservedScope + "/" + sanitized
}

// UnscopedTempName is the name under which a project's stub is registered
// in the reserved scope (the part after ReservedScope + "/"), used to
// derive the stub archive's file name.
func UnscopedTempName(tempName string) string {
	return unscopedName(tempName)
}

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

// Package versionpolicy implements the lock-step and individual release
// policies that govern how a project's version may move: whether it must
// track a shared version exactly, or may move independently subject to an
// optional locked major.
package versionpolicy

import (
	"fmt"

	"github.com/monorailhq/monorail/internal/monorailerr"
	"github.com/monorailhq/monorail/internal/semverutil"
)

// Policy is the shared interface both policy kinds satisfy. Dispatch is
// per-call rather than resolved once at registry-load time, so a registry
// reload always sees each policy's current behavior.
type Policy interface {
	// Name returns the policy's registry name.
	Name() string
	// Ensure reconciles a member project's declared version against the
	// policy, returning the version it must carry. Returns a Validation
	// error if the project's version is ahead of what the policy allows.
	Ensure(projectVersion string) (string, error)
	// Bump applies a release increment to the policy's own state (lock-step
	// only; individual policies are driven entirely by change files) and
	// returns the resulting version.
	Bump(kind semverutil.BumpKind, preid string) (string, error)
	// Validate rejects a version that does not conform to the policy.
	Validate(version string) error
}

// LockStep requires every member project to carry exactly the policy's
// stored version.
type LockStep struct {
	PolicyName string              `yaml:"policyName"`
	Version    string              `yaml:"version"`
	NextBump   semverutil.BumpKind `yaml:"nextBump,omitempty"`
}

// Name implements Policy.
func (p *LockStep) Name() string { return p.PolicyName }

// Ensure implements Policy: equal versions pass through, a lower member
// version is rewritten up to the policy version, and a higher member
// version is a Validation error.
func (p *LockStep) Ensure(projectVersion string) (string, error) {
	cmp, err := semverutil.Compare(projectVersion, p.Version)
	if err != nil {
		return "", monorailerr.Validationf("lock-step policy %q: %v", p.PolicyName, err)
	}
	switch {
	case cmp == 0:
		return projectVersion, nil
	case cmp < 0:
		return p.Version, nil
	default:
		return "", monorailerr.Validationf("lock-step policy %q: project version %s is ahead of policy version %s", p.PolicyName, projectVersion, p.Version)
	}
}

// Bump implements Policy: applies kind to the policy's own stored version.
func (p *LockStep) Bump(kind semverutil.BumpKind, preid string) (string, error) {
	next, err := semverutil.Bump(p.Version, kind, preid)
	if err != nil {
		return "", monorailerr.Validationf("lock-step policy %q: %v", p.PolicyName, err)
	}
	p.Version = next
	return p.Version, nil
}

// Validate implements Policy: a version must match the policy version exactly.
func (p *LockStep) Validate(version string) error {
	cmp, err := semverutil.Compare(version, p.Version)
	if err != nil {
		return monorailerr.Validationf("lock-step policy %q: %v", p.PolicyName, err)
	}
	if cmp != 0 {
		return monorailerr.Validationf("lock-step policy %q: version %s does not equal policy version %s", p.PolicyName, version, p.Version)
	}
	return nil
}

// Individual allows member projects to version independently, optionally
// sharing a locked major version.
type Individual struct {
	PolicyName  string `yaml:"policyName"`
	LockedMajor *int   `yaml:"lockedMajor,omitempty"`
}

// Name implements Policy.
func (p *Individual) Name() string { return p.PolicyName }

// Ensure implements Policy: with no locked major, the version passes
// through unchanged. With a locked major set, a lower major is rewritten up
// to "${lockedMajor}.0.0"; a higher major is a Validation error.
func (p *Individual) Ensure(projectVersion string) (string, error) {
	if p.LockedMajor == nil {
		return projectVersion, nil
	}
	v, err := semverutil.ParseVersion(projectVersion)
	if err != nil {
		return "", monorailerr.Validationf("individual policy %q: %v", p.PolicyName, err)
	}
	major := int(v.Major())
	switch {
	case major == *p.LockedMajor:
		return projectVersion, nil
	case major < *p.LockedMajor:
		return fmt.Sprintf("%d.0.0", *p.LockedMajor), nil
	default:
		return "", monorailerr.Validationf("individual policy %q: project version %s has major %d, ahead of locked major %d", p.PolicyName, projectVersion, major, *p.LockedMajor)
	}
}

// Bump implements Policy: individual policies never bump a shared version;
// member versions are driven entirely by the change pipeline.
func (p *Individual) Bump(kind semverutil.BumpKind, preid string) (string, error) {
	return "", nil
}

// Validate implements Policy: with a locked major set, v's major must match
// it exactly; otherwise any valid semver version is accepted.
func (p *Individual) Validate(version string) error {
	if p.LockedMajor == nil {
		if !semverutil.IsValidSemver(version) {
			return monorailerr.Validationf("individual policy %q: %s is not a valid version", p.PolicyName, version)
		}
		return nil
	}
	v, err := semverutil.ParseVersion(version)
	if err != nil {
		return monorailerr.Validationf("individual policy %q: %v", p.PolicyName, err)
	}
	if int(v.Major()) != *p.LockedMajor {
		return monorailerr.Validationf("individual policy %q: version %s major does not equal locked major %d", p.PolicyName, version, *p.LockedMajor)
	}
	return nil
}


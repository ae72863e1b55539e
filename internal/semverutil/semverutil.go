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

// Package semverutil provides the range-satisfaction, bump, and comparison
// helpers shared by the lockfile adapter, install planner, version policy
// engine, and change pipeline. All parsing and range evaluation is built on
// Masterminds/semver/v3.
package semverutil

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// BumpKind is a release type applied to a version.
type BumpKind string

const (
	BumpNone       BumpKind = "none"
	BumpPrerelease BumpKind = "prerelease"
	BumpPatch      BumpKind = "patch"
	BumpPreminor   BumpKind = "preminor"
	BumpMinor      BumpKind = "minor"
	BumpMajor      BumpKind = "major"
)

// ParseVersion parses version leniently, tolerating a leading "v".
func ParseVersion(version string) (*semver.Version, error) {
	if v, err := semver.NewVersion(version); err == nil {
		return v, nil
	}
	if strings.HasPrefix(version, "v") {
		if v, err := semver.NewVersion(strings.TrimPrefix(version, "v")); err == nil {
			return v, nil
		}
	} else {
		if v, err := semver.NewVersion("v" + version); err == nil {
			return v, nil
		}
	}
	return nil, fmt.Errorf("invalid version: %s", version)
}

// IsValidSemver reports whether version parses as a semver version.
func IsValidSemver(version string) bool {
	_, err := ParseVersion(version)
	return err == nil
}

// Compare returns -1, 0, or 1 as v1 is less than, equal to, or greater than v2.
func Compare(v1, v2 string) (int, error) {
	a, err := ParseVersion(v1)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", v1, err)
	}
	b, err := ParseVersion(v2)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", v2, err)
	}
	return a.Compare(b), nil
}

// Satisfies reports whether version satisfies the given range expression.
// A range that fails to parse as semver is reported via ok=false so callers
// can fall back to pass-through handling of non-semver specifiers.
func Satisfies(rng, version string) (satisfied bool, ok bool) {
	c, err := semver.NewConstraint(rng)
	if err != nil {
		return false, false
	}
	v, err := ParseVersion(version)
	if err != nil {
		return false, false
	}
	return c.Check(v), true
}

// Bump applies a release increment to current and returns the new version
// string. BumpNone and BumpPrerelease-with-no-suffix-change return current
// unchanged; BumpDependency-equivalent callers should not call Bump at all.
func Bump(current string, kind BumpKind, preid string) (string, error) {
	v, err := ParseVersion(current)
	if err != nil {
		return "", fmt.Errorf("parse current version %q: %w", current, err)
	}

	switch kind {
	case BumpNone:
		return v.String(), nil
	case BumpMajor:
		nv := v.IncMajor()
		return nv.String(), nil
	case BumpMinor:
		nv := v.IncMinor()
		return nv.String(), nil
	case BumpPatch:
		nv := v.IncPatch()
		return nv.String(), nil
	case BumpPreminor:
		nv := v.IncMinor()
		return withPrerelease(nv, preid)
	case BumpPrerelease:
		return withPrerelease(*v, preid)
	default:
		return "", fmt.Errorf("unknown bump kind: %s", kind)
	}
}

func withPrerelease(v semver.Version, preid string) (string, error) {
	if preid == "" {
		preid = "0"
	}
	nv, err := v.SetPrerelease(preid)
	if err != nil {
		return "", fmt.Errorf("set prerelease %q: %w", preid, err)
	}
	return nv.String(), nil
}

// NextMajor returns the smallest version that is not satisfied by a
// "caret-equivalent" range rooted at version, i.e. version's next major
// boundary (or next minor, for 0.x versions, matching caret semantics).
func NextMajor(version string) (string, error) {
	v, err := ParseVersion(version)
	if err != nil {
		return "", fmt.Errorf("parse version %q: %w", version, err)
	}
	if v.Major() == 0 {
		if v.Minor() == 0 {
			return fmt.Sprintf("0.0.%d", v.Patch()+1), nil
		}
		return fmt.Sprintf("0.%d.0", v.Minor()+1), nil
	}
	return fmt.Sprintf("%d.0.0", v.Major()+1), nil
}

// NewRange builds the ">=newVersion <nextMajor" range used to register a
// freshly bumped package's default acceptable range for its dependents.
func NewRange(newVersion string) (string, error) {
	next, err := NextMajor(newVersion)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(">=%s <%s", newVersion, next), nil
}

// RewritePrefix reshapes oldRange to point at newVersion, preserving the
// operator style of oldRange: "~" stays a tilde range, "^" stays a caret
// range, an explicit ">=x <y" range is reshaped to the new bounds, and a
// bare version is replaced with the bare new version.
func RewritePrefix(oldRange, newVersion string) (string, error) {
	trimmed := strings.TrimSpace(oldRange)
	switch {
	case strings.HasPrefix(trimmed, "~"):
		return "~" + newVersion, nil
	case strings.HasPrefix(trimmed, "^"):
		return "^" + newVersion, nil
	case strings.Contains(trimmed, ">=") || strings.Contains(trimmed, "<"):
		return NewRange(newVersion)
	default:
		return newVersion, nil
	}
}

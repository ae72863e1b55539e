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

package versionpolicy

import (
	"testing"

	"github.com/monorailhq/monorail/internal/monorailerr"
	"github.com/monorailhq/monorail/internal/semverutil"
)

func TestLockStepEnsure(t *testing.T) {
	p := &LockStep{PolicyName: "p1", Version: "2.4.0"}

	got, err := p.Ensure("2.4.0")
	if err != nil || got != "2.4.0" {
		t.Errorf("Ensure(equal) = %q, %v; want 2.4.0, nil", got, err)
	}

	got, err = p.Ensure("2.3.0")
	if err != nil || got != "2.4.0" {
		t.Errorf("Ensure(lower) = %q, %v; want 2.4.0, nil", got, err)
	}

	if _, err := p.Ensure("2.5.0"); err == nil {
		t.Error("Ensure(higher) should fail")
	}
}

func TestLockStepBumpAndValidate(t *testing.T) {
	p := &LockStep{PolicyName: "p1", Version: "1.0.0"}
	got, err := p.Bump(semverutil.BumpMinor, "")
	if err != nil {
		t.Fatalf("Bump: %v", err)
	}
	if got != "1.1.0" {
		t.Errorf("Bump = %q, want 1.1.0", got)
	}
	if err := p.Validate("1.1.0"); err != nil {
		t.Errorf("Validate(matching) failed: %v", err)
	}
	if err := p.Validate("1.0.0"); err == nil {
		t.Error("Validate(stale) should fail")
	}
}

func TestIndividualEnsureWithLockedMajor(t *testing.T) {
	major := 2
	p := &Individual{PolicyName: "p2", LockedMajor: &major}

	got, err := p.Ensure("1.9.5")
	if err != nil || got != "2.0.0" {
		t.Errorf("Ensure(below major) = %q, %v; want 2.0.0, nil", got, err)
	}

	if _, err := p.Ensure("3.0.0"); err == nil {
		t.Error("Ensure(above major) should fail")
	}

	if err := p.Validate("2.4.1"); err != nil {
		t.Errorf("Validate(matching major) failed: %v", err)
	}
	if err := p.Validate("3.0.0"); err == nil {
		t.Error("Validate(wrong major) should fail")
	}
}

func TestIndividualWithoutLockedMajorPassesThrough(t *testing.T) {
	p := &Individual{PolicyName: "p3"}
	got, err := p.Ensure("5.1.2")
	if err != nil || got != "5.1.2" {
		t.Errorf("Ensure = %q, %v; want 5.1.2, nil", got, err)
	}
	if err := p.Validate("5.1.2"); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestIndividualBumpIsNoOp(t *testing.T) {
	p := &Individual{PolicyName: "p4"}
	got, err := p.Bump(semverutil.BumpMajor, "")
	if err != nil {
		t.Fatalf("Bump: %v", err)
	}
	if got != "" {
		t.Errorf("Bump = %q, want empty (no-op)", got)
	}
}

func TestLockStepValidationErrorKind(t *testing.T) {
	p := &LockStep{PolicyName: "p1", Version: "1.0.0"}
	_, err := p.Ensure("2.0.0")
	if !monorailerr.Is(err, monorailerr.Validation) {
		t.Errorf("expected Validation error kind, got %v", err)
	}
}

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

package monorailerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesDirectKind(t *testing.T) {
	err := Validationf("version %s outside policy", "2.0.0")
	if !Is(err, Validation) {
		t.Fatalf("expected Is to match Validation")
	}
	if Is(err, Configuration) {
		t.Fatalf("expected Is not to match Configuration")
	}
}

func TestIsUnwrapsThroughFmtErrorf(t *testing.T) {
	inner := Internalf("duplicate task %q", "build")
	wrapped := fmt.Errorf("scheduling task: %w", inner)

	if !Is(wrapped, Internal) {
		t.Fatalf("expected Is to unwrap through fmt.Errorf and match Internal")
	}
}

func TestIsReturnsFalseForPlainError(t *testing.T) {
	if Is(errors.New("boom"), Internal) {
		t.Fatalf("expected Is to return false for a non-monorailerr error")
	}
}

func TestTransientIOfWrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := TransientIOf(cause, "writing %s", "package-deps.json")

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find the wrapped cause")
	}
	if got := err.Error(); got != "transient_io: writing package-deps.json: disk full" {
		t.Fatalf("unexpected error string: %q", got)
	}
}

func TestErrorWithoutCause(t *testing.T) {
	err := Configurationf("unknown policy %q", "platform-release")
	if got := err.Error(); got != "configuration: unknown policy \"platform-release\"" {
		t.Fatalf("unexpected error string: %q", got)
	}
	if err.Unwrap() != nil {
		t.Fatalf("expected Unwrap to return nil when there is no cause")
	}
}

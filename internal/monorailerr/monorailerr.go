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

// Package monorailerr defines the single structured error type shared across
// every monorail component, in place of ad-hoc error strings.
package monorailerr

import "fmt"

// Kind classifies an Error for CLI formatting and exit-code decisions.
type Kind string

const (
	// Configuration errors are fatal at workspace-load time: schema
	// violations, folder-depth violations, name mismatches, cycles,
	// unknown policy references.
	Configuration Kind = "configuration"
	// Validation errors are fatal at a flow boundary: version outside
	// policy, lockfile incompatible, orphan temp project.
	Validation Kind = "validation"
	// TransientIO errors wrap a failed filesystem operation (folder create,
	// rename or delete, file write). They are returned to the caller as-is;
	// no component retries them.
	TransientIO Kind = "transient_io"
	// Installer errors come from the external installer subprocess after
	// its retry budget is exhausted.
	Installer Kind = "installer"
	// BuildDiagnostic errors are recovered locally and reported by the
	// scheduler; they fail one task without aborting the run.
	BuildDiagnostic Kind = "build_diagnostic"
	// Internal errors signal a programming error: duplicate task name,
	// write to a closed writer, a file missing where it must exist.
	Internal Kind = "internal"
)

// Error is the structured error type threaded through every component.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Configurationf builds a Configuration error.
func Configurationf(format string, args ...any) *Error {
	return newf(Configuration, nil, format, args...)
}

// Validationf builds a Validation error.
func Validationf(format string, args ...any) *Error {
	return newf(Validation, nil, format, args...)
}

// TransientIOf builds a TransientIO error wrapping cause.
func TransientIOf(cause error, format string, args ...any) *Error {
	return newf(TransientIO, cause, format, args...)
}

// Installerf builds an Installer error wrapping cause.
func Installerf(cause error, format string, args ...any) *Error {
	return newf(Installer, cause, format, args...)
}

// BuildDiagnosticf builds a BuildDiagnostic error.
func BuildDiagnosticf(format string, args ...any) *Error {
	return newf(BuildDiagnostic, nil, format, args...)
}

// Internalf builds an Internal (programming error) error.
func Internalf(format string, args ...any) *Error {
	return newf(Internal, nil, format, args...)
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if ok := asError(err, &e); !ok {
		return false
	}
	return e.Kind == kind
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

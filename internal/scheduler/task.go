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

package scheduler

import (
	"context"

	"github.com/monorailhq/monorail/internal/diagnostics"
)

// Status is a task node's lifecycle state.
type Status string

const (
	Ready               Status = "ready"
	Executing           Status = "executing"
	Success             Status = "success"
	SuccessWithWarnings Status = "success_with_warnings"
	Skipped             Status = "skipped"
	Blocked             Status = "blocked"
	Failure             Status = "failure"
)

// Terminal reports whether s is a status a node does not leave on its own.
func (s Status) Terminal() bool {
	switch s {
	case Success, SuccessWithWarnings, Skipped, Blocked, Failure:
		return true
	default:
		return false
	}
}

// Result is what a TaskFunc reports when it finishes. Status must be one
// of Success, SuccessWithWarnings, Skipped, or Failure — a task never
// reports Blocked or Ready/Executing itself; those are scheduler-assigned.
type Result struct {
	Status      Status
	Diagnostics []diagnostics.Diagnostic
}

// TaskFunc is the unit of work run for one task node.
type TaskFunc func(ctx context.Context, tc TaskContext) (Result, error)

// TaskContext is what a running task is given: the writer its output
// should stream through (the scheduler does not interleave what is
// written there with other tasks' output until finish), and whether
// incremental (skip) behavior is still permitted for this task given what
// has happened upstream so far.
type TaskContext struct {
	Writer             *TaskWriter
	IncrementalAllowed bool
}

// node is the scheduler's internal bookkeeping for one registered task.
// It mirrors the "Task node" record of the data model, plus scheduler-only
// fields (remaining live deps, incremental-allowed flag, dispatched flag).
type node struct {
	name string
	run  TaskFunc

	// deps is mutated as dependencies finish: entries are removed on
	// Success, SuccessWithWarnings, or Skipped.
	deps map[string]struct{}
	// allDeps never shrinks; used for cycle and CPL computation.
	allDeps    map[string]struct{}
	dependents map[string]struct{}

	status Status
	errors []diagnostics.Diagnostic
	cpl    int

	// incrementalAllowed is cleared when any upstream dependency reports
	// Success or SuccessWithWarnings; a Skipped upstream leaves it set,
	// since skipping implies outputs were preserved while success does not.
	incrementalAllowed bool

	dispatched bool
	writer     *TaskWriter
}

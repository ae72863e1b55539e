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
	"fmt"
	"sync"
	"testing"
)

func noopTask(status Status) TaskFunc {
	return func(ctx context.Context, tc TaskContext) (Result, error) {
		return Result{Status: status}, nil
	}
}

func TestExecuteRunsEveryNodeExactlyOnceOnSuccess(t *testing.T) {
	s := New(WithConcurrency(2))
	var mu sync.Mutex
	runs := make(map[string]int)

	makeTask := func(name string) TaskFunc {
		return func(ctx context.Context, tc TaskContext) (Result, error) {
			mu.Lock()
			runs[name]++
			mu.Unlock()
			return Result{Status: Success}, nil
		}
	}

	for _, name := range []string{"a", "b", "c"} {
		if err := s.AddTask(name, makeTask(name)); err != nil {
			t.Fatalf("AddTask(%s): %v", name, err)
		}
	}
	if err := s.AddDependencies("b", []string{"a"}); err != nil {
		t.Fatalf("AddDependencies: %v", err)
	}
	if err := s.AddDependencies("c", []string{"b"}); err != nil {
		t.Fatalf("AddDependencies: %v", err)
	}

	if err := s.Execute(context.Background()); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	for _, name := range []string{"a", "b", "c"} {
		if runs[name] != 1 {
			t.Errorf("task %s ran %d times, want 1", name, runs[name])
		}
		status, _ := s.Status(name)
		if status != Success {
			t.Errorf("task %s status = %s, want success", name, status)
		}
	}
}

func TestExecuteBlocksTransitiveDependentsOnFailure(t *testing.T) {
	s := New(WithConcurrency(4))
	if err := s.AddTask("a", noopTask(Failure)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddTask("b", noopTask(Success)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddTask("c", noopTask(Success)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddDependencies("b", []string{"a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddDependencies("c", []string{"b"}); err != nil {
		t.Fatal(err)
	}

	err := s.Execute(context.Background())
	if err == nil {
		t.Fatal("Execute returned nil error, want failure")
	}

	if st, _ := s.Status("a"); st != Failure {
		t.Errorf("a status = %s, want failure", st)
	}
	if st, _ := s.Status("b"); st != Blocked {
		t.Errorf("b status = %s, want blocked", st)
	}
	if st, _ := s.Status("c"); st != Blocked {
		t.Errorf("c status = %s, want blocked", st)
	}
}

func TestCriticalPathOrdersQueueDescending(t *testing.T) {
	// T1->T3, T2->T3, T3->T5, T4->T5. CPL: T5=0, T3=1, T4=1, T1=2, T2=2.
	s := New(WithConcurrency(1))
	var mu sync.Mutex
	var startOrder []string

	record := func(name string) TaskFunc {
		return func(ctx context.Context, tc TaskContext) (Result, error) {
			mu.Lock()
			startOrder = append(startOrder, name)
			mu.Unlock()
			return Result{Status: Success}, nil
		}
	}

	for _, name := range []string{"t1", "t2", "t3", "t4", "t5"} {
		if err := s.AddTask(name, record(name)); err != nil {
			t.Fatal(err)
		}
	}
	mustAddDeps(t, s, "t3", "t1", "t2")
	mustAddDeps(t, s, "t5", "t3", "t4")

	if err := s.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(startOrder) != 5 {
		t.Fatalf("startOrder = %v, want 5 entries", startOrder)
	}
	// With concurrency 1, t1 and t2 must start before their dependent t3,
	// and t5 must start after t3 and t4.
	pos := map[string]int{}
	for i, n := range startOrder {
		pos[n] = i
	}
	if pos["t1"] > pos["t3"] || pos["t2"] > pos["t3"] {
		t.Errorf("expected t1,t2 before t3, got order %v", startOrder)
	}
	if pos["t3"] > pos["t5"] || pos["t4"] > pos["t5"] {
		t.Errorf("expected t3,t4 before t5, got order %v", startOrder)
	}
}

func TestSkippedDoesNotInvalidateIncrementalButSuccessDoes(t *testing.T) {
	s := New(WithConcurrency(2))
	var gotIncremental bool

	if err := s.AddTask("up", noopTask(Success)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddTask("down", func(ctx context.Context, tc TaskContext) (Result, error) {
		gotIncremental = tc.IncrementalAllowed
		return Result{Status: Success}, nil
	}); err != nil {
		t.Fatal(err)
	}
	mustAddDeps(t, s, "down", "up")

	if err := s.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if gotIncremental {
		t.Error("expected IncrementalAllowed=false after a Success upstream")
	}

	s2 := New(WithConcurrency(2))
	var gotIncremental2 bool
	if err := s2.AddTask("up", noopTask(Skipped)); err != nil {
		t.Fatal(err)
	}
	if err := s2.AddTask("down", func(ctx context.Context, tc TaskContext) (Result, error) {
		gotIncremental2 = tc.IncrementalAllowed
		return Result{Status: Success}, nil
	}); err != nil {
		t.Fatal(err)
	}
	mustAddDeps(t, s2, "down", "up")
	if err := s2.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !gotIncremental2 {
		t.Error("expected IncrementalAllowed=true after a Skipped upstream")
	}
}

func TestDuplicateTaskNameIsInternalError(t *testing.T) {
	s := New()
	if err := s.AddTask("a", noopTask(Success)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddTask("a", noopTask(Success)); err == nil {
		t.Fatal("expected error on duplicate task name")
	}
}

func mustAddDeps(t *testing.T, s *Scheduler, name string, deps ...string) {
	t.Helper()
	if err := s.AddDependencies(name, deps); err != nil {
		t.Fatalf("AddDependencies(%s, %v): %v", name, deps, err)
	}
}

func TestInterleaverFlushesTaskOutput(t *testing.T) {
	var out concurrentBuffer
	il := NewInterleaver(&out)
	s := New(WithConcurrency(2))
	s.SetOutput(il)

	if err := s.AddTask("slow", func(ctx context.Context, tc TaskContext) (Result, error) {
		fmt.Fprint(tc.Writer, "slow-output")
		return Result{Status: Success}, nil
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.String() != "slow-output" {
		t.Errorf("flushed output = %q, want %q", out.String(), "slow-output")
	}
}

type concurrentBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *concurrentBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *concurrentBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

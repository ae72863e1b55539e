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

// Package scheduler implements the parallel DAG task executor: a
// single-threaded coordinator that owns up to W concurrent child-process
// workers, propagates failures as Blocked status to transitive
// dependents, computes critical-path priority over the dependent graph,
// and streams per-task output without interleaving.
package scheduler

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/monorailhq/monorail/internal/diagnostics"
	"github.com/monorailhq/monorail/internal/monorailerr"
)

// Scheduler is a DAG executor over registered task nodes. All state
// mutation (the queue, node statuses, dependency sets) happens on the
// single coordinator goroutine inside Execute; it is not safe to call
// AddTask/AddDependencies concurrently with Execute or with each other.
type Scheduler struct {
	nodes       map[string]*node
	order       []string // registration order, for stable iteration
	concurrency int
	log         *slog.Logger
	interleaver *Interleaver
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithConcurrency overrides the default concurrency (runtime.NumCPU()).
func WithConcurrency(w int) Option {
	return func(s *Scheduler) {
		if w > 0 {
			s.concurrency = w
		}
	}
}

// WithLogger attaches a logger; nil falls back to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// New constructs a Scheduler with default concurrency runtime.NumCPU().
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		nodes:       make(map[string]*node),
		concurrency: runtime.NumCPU(),
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetOutput attaches the Interleaver tasks stream their output through.
func (s *Scheduler) SetOutput(il *Interleaver) {
	s.interleaver = il
}

// AddTask registers a new task node. Returns an Internal error if name is
// already registered — a duplicate task name is a programming error.
func (s *Scheduler) AddTask(name string, run TaskFunc) error {
	if _, exists := s.nodes[name]; exists {
		return monorailerr.Internalf("duplicate task name %q", name)
	}
	s.nodes[name] = &node{
		name:               name,
		run:                run,
		deps:               make(map[string]struct{}),
		allDeps:            make(map[string]struct{}),
		dependents:         make(map[string]struct{}),
		status:             Ready,
		incrementalAllowed: true,
	}
	s.order = append(s.order, name)
	return nil
}

// AddDependencies wires name to depend on each of deps, maintaining the
// inverse (dependents) edge on each dependency. Both name and every
// dependency must already be registered.
func (s *Scheduler) AddDependencies(name string, deps []string) error {
	n, ok := s.nodes[name]
	if !ok {
		return monorailerr.Internalf("add dependencies: unknown task %q", name)
	}
	for _, dep := range deps {
		dn, ok := s.nodes[dep]
		if !ok {
			return monorailerr.Internalf("add dependencies: %q depends on unknown task %q", name, dep)
		}
		n.deps[dep] = struct{}{}
		n.allDeps[dep] = struct{}{}
		dn.dependents[name] = struct{}{}
	}
	return nil
}

// Status returns the terminal status of a task after Execute returns, or
// its current status mid-run.
func (s *Scheduler) Status(name string) (Status, bool) {
	n, ok := s.nodes[name]
	if !ok {
		return "", false
	}
	return n.status, true
}

// Errors returns the diagnostics attached to a task.
func (s *Scheduler) Errors(name string) []diagnostics.Diagnostic {
	n, ok := s.nodes[name]
	if !ok {
		return nil
	}
	return n.errors
}

type completion struct {
	name   string
	result Result
	err    error
}

// Execute runs the precondition check, computes critical-path priority,
// then dispatches tasks up to the configured concurrency until every node
// reaches a terminal status. It returns an error if the graph has a cycle,
// or if any task finished with Failure status.
func (s *Scheduler) Execute(ctx context.Context) error {
	if err := s.checkCycles(); err != nil {
		return err
	}
	s.computeCriticalPaths()

	sem := semaphore.NewWeighted(int64(s.concurrency))
	resultCh := make(chan completion, len(s.nodes))
	var wg sync.WaitGroup

	anyFailure := false

	for {
		s.dispatchReady(ctx, sem, resultCh, &wg)
		if !s.hasOutstandingWork() {
			break
		}
		// Nothing left to do but wait for the next task to finish before
		// re-evaluating which nodes are now ready.
		c := <-resultCh
		s.applyCompletion(c)
		if c.result.Status == Failure {
			anyFailure = true
		}
	}

	wg.Wait()
	close(resultCh)
	// Drain any completions that arrived between the last dispatch check
	// and wg.Wait (should not happen given the loop above, but keeps the
	// channel from leaking a goroutine if it does).
	for c := range resultCh {
		s.applyCompletion(c)
		if c.result.Status == Failure {
			anyFailure = true
		}
	}

	if anyFailure {
		return monorailerr.BuildDiagnosticf("one or more tasks failed")
	}
	return nil
}

// hasOutstandingWork reports whether any node is still Ready or Executing.
func (s *Scheduler) hasOutstandingWork() bool {
	for _, n := range s.nodes {
		if n.status == Ready || n.status == Executing {
			return true
		}
	}
	return false
}

// dispatchReady starts every node whose deps set is empty and whose
// status is Ready, in descending critical-path-length order, acquiring
// the concurrency semaphore per task (acquisition itself may block inside
// the dispatched goroutine without blocking the coordinator). It returns
// the number of tasks newly dispatched.
func (s *Scheduler) dispatchReady(ctx context.Context, sem *semaphore.Weighted, resultCh chan<- completion, wg *sync.WaitGroup) int {
	var ready []*node
	for _, name := range s.order {
		n := s.nodes[name]
		if n.status == Ready && len(n.deps) == 0 && !n.dispatched {
			ready = append(ready, n)
		}
	}
	sort.SliceStable(ready, func(i, j int) bool { return ready[i].cpl > ready[j].cpl })

	for _, n := range ready {
		n.dispatched = true
		n.status = Executing
		if s.interleaver != nil {
			n.writer = s.interleaver.NewWriter()
		} else {
			n.writer = &TaskWriter{}
		}

		wg.Add(1)
		go func(n *node) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				resultCh <- completion{name: n.name, result: Result{Status: Failure}, err: err}
				return
			}
			defer sem.Release(1)

			tc := TaskContext{Writer: n.writer, IncrementalAllowed: n.incrementalAllowed}
			result, err := n.run(ctx, tc)
			if s.interleaver != nil {
				if ferr := s.interleaver.Flush(n.writer); ferr != nil {
					s.log.Warn("flush task output", "task", n.name, "error", ferr)
				}
			}
			resultCh <- completion{name: n.name, result: result, err: err}
		}(n)
	}
	return len(ready)
}

// applyCompletion records a finished task's terminal status and
// propagates its effect to dependents per §4.7:
//   - Success / SuccessWithWarnings: remove from each dependent's deps;
//     clear each dependent's incrementalAllowed flag.
//   - Skipped: remove from each dependent's deps; incrementalAllowed is
//     left untouched (the asymmetry is intentional).
//   - Failure: mark every transitive dependent Blocked.
func (s *Scheduler) applyCompletion(c completion) {
	n, ok := s.nodes[c.name]
	if !ok {
		return
	}

	status := c.result.Status
	if c.err != nil && status != Failure {
		s.log.Error("task run returned error", "task", c.name, "error", c.err)
		status = Failure
	}
	n.status = status
	n.errors = c.result.Diagnostics

	switch status {
	case Success, SuccessWithWarnings:
		for dep := range n.dependents {
			dn := s.nodes[dep]
			delete(dn.deps, c.name)
			dn.incrementalAllowed = false
		}
	case Skipped:
		for dep := range n.dependents {
			dn := s.nodes[dep]
			delete(dn.deps, c.name)
		}
	case Failure:
		s.blockDependents(n)
	}
}

// blockDependents recursively marks every transitive dependent of n as
// Blocked, skipping nodes that are already terminal.
func (s *Scheduler) blockDependents(n *node) {
	for dep := range n.dependents {
		dn := s.nodes[dep]
		if dn.status.Terminal() {
			continue
		}
		dn.status = Blocked
		s.blockDependents(dn)
	}
}

// checkCycles performs a recursive descent from every node's dependents,
// matching the precondition check described in §4.7 (the walk direction
// is dependents, not dependencies, mirroring the critical-path computation
// below it).
func (s *Scheduler) checkCycles() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(s.nodes))

	var visit func(name string, stack []string) error
	visit = func(name string, stack []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return monorailerr.Internalf("dependency cycle detected: %v -> %s", append(stack, name), name)
		}
		state[name] = visiting
		n := s.nodes[name]
		dependents := make([]string, 0, len(n.dependents))
		for d := range n.dependents {
			dependents = append(dependents, d)
		}
		sort.Strings(dependents)
		for _, d := range dependents {
			if err := visit(d, append(stack, name)); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for _, name := range s.order {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}

// computeCriticalPaths assigns cpl = 1 + max(cpl of dependents) to every
// node, with a leaf-dependent (no dependents) treated as cpl 0 — matching
// the source spec's documented `Math.max(...[]) = -Infinity` quirk by
// special-casing the empty case rather than propagating -Infinity.
func (s *Scheduler) computeCriticalPaths() {
	memo := make(map[string]int, len(s.nodes))

	var compute func(name string) int
	compute = func(name string) int {
		if v, ok := memo[name]; ok {
			return v
		}
		n := s.nodes[name]
		if len(n.dependents) == 0 {
			memo[name] = 0
			n.cpl = 0
			return 0
		}
		max := -1
		for d := range n.dependents {
			if v := compute(d); v > max {
				max = v
			}
		}
		cpl := 1 + max
		memo[name] = cpl
		n.cpl = cpl
		return cpl
	}

	for _, name := range s.order {
		compute(name)
	}
}

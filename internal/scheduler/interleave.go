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
	"bytes"
	"io"
	"sync"

	"github.com/monorailhq/monorail/internal/monorailerr"
)

// TaskWriter is a per-task buffered writer. A task may write to it freely
// while running; its content reaches the console only when the
// Interleaver flushes it, in task-finish order rather than task-start
// order, so concurrent tasks' output is never interleaved line-by-line.
type TaskWriter struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

// Write implements io.Writer. It returns an Internal error if the writer
// has already been flushed and closed — a programming error, since the
// scheduler only flushes after a task's TaskFunc has returned.
func (w *TaskWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, monorailerr.Internalf("write to closed task writer")
	}
	return w.buf.Write(p)
}

// Bytes returns a copy of everything written so far. Safe to call while
// the task is still running.
func (w *TaskWriter) Bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]byte, w.buf.Len())
	copy(out, w.buf.Bytes())
	return out
}

func (w *TaskWriter) close() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return w.buf.Bytes()
}

// Interleaver serializes per-task output to a single console stream in
// finish order, while each task's writer independently captures its full
// live stream for the final report.
type Interleaver struct {
	out io.Writer
	mu  sync.Mutex
}

// NewInterleaver constructs an Interleaver writing flushed task output to out.
func NewInterleaver(out io.Writer) *Interleaver {
	return &Interleaver{out: out}
}

// NewWriter allocates a fresh per-task writer. The scheduler is the sole
// owner of writer registration: callers should not construct TaskWriter
// directly.
func (il *Interleaver) NewWriter() *TaskWriter {
	return &TaskWriter{}
}

// Flush closes w and writes its buffered content to the console stream.
// Called by the scheduler exactly once per task, at task termination.
func (il *Interleaver) Flush(w *TaskWriter) error {
	data := w.close()
	il.mu.Lock()
	defer il.mu.Unlock()
	_, err := il.out.Write(data)
	return err
}

package testhelpers

import (
	"bytes"
	"io"
	"sync/atomic"
	"testing"
)

// Writer forwards log lines to t.Log so they only show up for failing or verbose tests.
type Writer struct {
	t    *testing.T
	done atomic.Bool
}

// NewWriter returns a Writer bound to t.
func NewWriter(t *testing.T) io.Writer {
	w := &Writer{t: t}
	t.Cleanup(func() { w.done.Store(true) })
	return w
}

// Write logs p without its trailing newline. It panics once the test has finished because t.Log would race, which
// almost always means a server goroutine outlived its test.
func (w *Writer) Write(p []byte) (int, error) {
	if w.done.Load() {
		panic("testhelpers: log written after the test finished, is the server shut down in t.Cleanup?")
	}
	if line := bytes.TrimRight(p, "\n"); len(line) > 0 {
		w.t.Log(string(line))
	}
	return len(p), nil
}

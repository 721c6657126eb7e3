package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// multiWriter fans a single log line out to one or more buffered sinks.
// Writes are serialized; Flush pushes buffered output through, Close
// flushes and marks the writer unusable.
type multiWriter struct {
	mu     sync.Mutex
	sinks  []*bufio.Writer
	closed bool
}

func newMultiWriter(writers []io.Writer, bufSize int) *multiWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	sinks := make([]*bufio.Writer, 0, len(writers))
	for _, w := range writers {
		if w == nil {
			continue
		}
		sinks = append(sinks, bufio.NewWriterSize(w, bufSize))
	}
	return &multiWriter{sinks: sinks}
}

// Write copies the line to every sink. A failed sink does not stop the
// others; the first error is returned.
func (w *multiWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, errors.New("logger: writer closed")
	}
	var firstErr error
	for _, sink := range w.sinks {
		if _, err := sink.Write(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return len(p), firstErr
}

// Flush drains buffered output to the underlying sinks.
func (w *multiWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// Close flushes and prevents further writes.
func (w *multiWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.flushLocked()
}

func (w *multiWriter) flushLocked() error {
	var errs []error
	for _, sink := range w.sinks {
		if err := sink.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package logger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// DefaultBufferSize batches small JSON records into fewer write syscalls
	DefaultBufferSize = 32 * 1024

	// DefaultFlushInterval bounds how long a record may sit in the buffer
	DefaultFlushInterval = 5 * time.Second

	logDirPermissions  = 0o750
	logFilePermissions = 0o640
)

// BufferedFileWriter is a mutex-guarded buffered append-only log file with
// periodic background flushing.
type BufferedFileWriter struct {
	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	stop    chan struct{}
	stopped chan struct{}
	closed  bool
}

// NewBufferedFileWriter opens (or creates) path for appending, creating parent directories.
func NewBufferedFileWriter(path string) (*BufferedFileWriter, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, logDirPermissions); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	w := &BufferedFileWriter{
		file:    file,
		writer:  bufio.NewWriterSize(file, DefaultBufferSize),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go w.flushLoop(DefaultFlushInterval)
	return w, nil
}

func (w *BufferedFileWriter) flushLoop(interval time.Duration) {
	defer close(w.stopped)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = w.Flush()
		case <-w.stop:
			return
		}
	}
}

// Write implements io.Writer
func (w *BufferedFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, os.ErrClosed
	}
	return w.writer.Write(p)
}

// Flush pushes buffered bytes to the OS
func (w *BufferedFileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.writer.Flush()
}

// Close stops the flush loop, then flushes, syncs and closes the file
func (w *BufferedFileWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.stop)
	flushErr := w.writer.Flush()
	syncErr := w.file.Sync()
	closeErr := w.file.Close()
	w.mu.Unlock()

	<-w.stopped

	switch {
	case flushErr != nil:
		return flushErr
	case syncErr != nil:
		return syncErr
	default:
		return closeErr
	}
}

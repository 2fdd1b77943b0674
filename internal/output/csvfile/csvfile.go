// Package csvfile writes normalized records as a flat CSV table.
package csvfile

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/crimson-sun/mailsift/internal/model"
	"github.com/crimson-sun/mailsift/internal/output"
)

const defaultBufSize = 64 * 1024 // 64KB

// Option configures a CSV Output.
type Option func(*Output)

// WithMaxSize sets the file size (bytes) at which rotation triggers.
// 0 (default) disables rotation. Every rotated file starts with a header row.
func WithMaxSize(bytes int64) Option {
	return func(o *Output) { o.maxSize = bytes }
}

// WithAppend appends to an existing file instead of truncating it. The
// header row is only written when the file is empty.
func WithAppend() Option {
	return func(o *Output) { o.append = true }
}

// countingWriter tracks bytes that reach the file.
type countingWriter struct {
	w *bufio.Writer
	n *int64
}

func (c countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	*c.n += int64(n)
	return n, err
}

// Output writes CSV rows to a file with buffered I/O and optional
// size-based rotation.
type Output struct {
	mu      sync.Mutex
	buf     *bufio.Writer
	w       *csv.Writer
	f       *os.File
	path    string
	layout  output.Layout
	maxSize int64 // 0 = no rotation
	written int64
	bufSize int
	append  bool
}

// New creates a CSV output at path laid out by layout.
func New(path string, layout output.Layout, opts ...Option) (*Output, error) {
	o := &Output{
		path:    path,
		layout:  layout,
		bufSize: defaultBufSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.openFile(o.append); err != nil {
		return nil, err
	}
	return o, nil
}

// Write appends rec as one row.
func (o *Output) Write(_ context.Context, rec model.NormalizedRecord) error {
	row, err := o.layout.Row(rec)
	if err != nil {
		return fmt.Errorf("csv output: encode: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.maxSize > 0 && o.written > 0 && o.written >= o.maxSize {
		if err := o.rotate(); err != nil {
			return fmt.Errorf("csv output: rotate: %w", err)
		}
	}
	if o.written == 0 {
		if err := o.w.Write(o.layout.Columns()); err != nil {
			return fmt.Errorf("csv output: write header: %w", err)
		}
	}
	if err := o.w.Write(row); err != nil {
		return fmt.Errorf("csv output: write: %w", err)
	}
	// Flush the csv layer so written reflects the row size.
	o.w.Flush()
	if err := o.w.Error(); err != nil {
		return fmt.Errorf("csv output: write: %w", err)
	}
	return nil
}

// Close flushes the buffer and closes the file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.w.Flush()
	if err := o.w.Error(); err != nil {
		o.f.Close()
		return fmt.Errorf("csv output: flush: %w", err)
	}
	if err := o.buf.Flush(); err != nil {
		o.f.Close()
		return fmt.Errorf("csv output: flush: %w", err)
	}
	return o.f.Close()
}

// openFile opens the output file and wraps it in buffered writers.
func (o *Output) openFile(appendMode bool) error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(o.path, flags, 0644)
	if err != nil {
		return fmt.Errorf("csv output: open %s: %w", o.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("csv output: stat %s: %w", o.path, err)
	}
	o.f = f
	o.buf = bufio.NewWriterSize(f, o.bufSize)
	o.written = info.Size()
	o.w = csv.NewWriter(countingWriter{w: o.buf, n: &o.written})
	return nil
}

// rotate flushes, closes the current file, renames it to {path}.1
// (shifting existing rotated files), and opens a new file.
func (o *Output) rotate() error {
	o.w.Flush()
	if err := o.buf.Flush(); err != nil {
		return err
	}
	if err := o.f.Close(); err != nil {
		return err
	}

	// Shift existing rotated files: .2 → .3, .1 → .2, current → .1
	for i := 9; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", o.path, i)
		to := fmt.Sprintf("%s.%d", o.path, i+1)
		os.Rename(from, to) // ignore errors — file may not exist
	}
	if err := os.Rename(o.path, o.path+".1"); err != nil {
		return err
	}

	return o.openFile(false)
}

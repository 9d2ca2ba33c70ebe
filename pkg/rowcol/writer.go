package rowcol

import (
	"encoding/binary"
	"math"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
	"github.com/ajitpratap0/fixedseg/pkg/metrics"
	"github.com/ajitpratap0/fixedseg/pkg/mmap"
)

// State is the lifecycle state of a Writer
type State int32

const (
	// StateCreated is held only while the file is being allocated
	StateCreated State = iota
	// StateWritable accepts cell writes
	StateWritable
	// StateFinalized is terminal, after SaveAndClose or Abort
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateWritable:
		return "writable"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// File describes a finalized segment file
type File struct {
	Path   string `json:"path"`
	Layout Layout `json:"layout"`
}

// Open opens the segment for reading
func (f *File) Open(opts ...Option) (*Reader, error) {
	return Open(f.Path, f.Layout, opts...)
}

// Writer owns one segment file from allocation to finalize. The file is
// allocated at its final size by Create and never grows.
type Writer struct {
	mu      sync.RWMutex
	path    string
	layout  Layout
	backend Backend
	file    *os.File
	data    []byte // shared mapping, nil for the file backend and empty layouts
	state   State
	logger  *zap.Logger
}

// NewWriter creates a writer for a rows × cols file with the given column
// widths
func NewWriter(path string, rows, cols int, widths []int, opts ...Option) (*Writer, error) {
	layout, err := NewLayout(rows, cols, widths)
	if err != nil {
		return nil, err
	}
	return Create(path, layout, opts...)
}

// Create creates or truncates path and allocates layout.TotalSize() zero
// bytes. The returned writer is writable.
func Create(path string, layout Layout, opts ...Option) (*Writer, error) {
	if !layout.valid() {
		return nil, errors.New(errors.ErrorTypeLayout, "layout has no columns")
	}
	o := buildOptions(opts)
	if o.backend != BackendMmap && o.backend != BackendFile {
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown writer backend %q", o.backend)
	}

	w := &Writer{
		path:    path,
		layout:  layout,
		backend: o.backend,
		state:   StateCreated,
		logger:  o.logger.With(zap.String("segment", path), zap.String("backend", string(o.backend))),
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644) //nolint:gosec // G304: path is controlled by caller
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create segment file")
	}
	size := layout.TotalSize()
	if err := file.Truncate(size); err != nil {
		file.Close()
		os.Remove(path)
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to allocate segment file").
			WithDetail("size", size)
	}
	if o.backend == BackendMmap && size > 0 {
		data, err := mmap.Map(file, size)
		if err != nil {
			file.Close()
			os.Remove(path)
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to map segment file")
		}
		w.data = data
	}
	w.file = file
	w.state = StateWritable

	metrics.OpenWriters.Inc()
	metrics.BytesAllocated.WithLabelValues(string(o.backend)).Add(float64(size))
	w.logger.Debug("segment allocated",
		zap.Int("rows", layout.Rows()),
		zap.Ints("widths", layout.widths),
		zap.Int64("size", size))
	return w, nil
}

// Path returns the target file path
func (w *Writer) Path() string { return w.path }

// Layout returns the file layout
func (w *Writer) Layout() Layout { return w.layout }

// Backend returns the storage backend in use
func (w *Writer) Backend() Backend { return w.backend }

// State returns the current lifecycle state
func (w *Writer) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// SetByte writes a 1-byte signed integer
func (w *Writer) SetByte(row, col int, v int8) error {
	buf := [1]byte{byte(v)}
	return w.put(row, col, buf[:])
}

// SetBool writes a boolean as one byte, 1 for true and 0 for false
func (w *Writer) SetBool(row, col int, v bool) error {
	var buf [1]byte
	if v {
		buf[0] = 1
	}
	return w.put(row, col, buf[:])
}

// SetShort writes a 2-byte signed integer
func (w *Writer) SetShort(row, col int, v int16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(v))
	return w.put(row, col, buf[:])
}

// SetChar writes a 2-byte UTF-16 code unit
func (w *Writer) SetChar(row, col int, v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return w.put(row, col, buf[:])
}

// SetInt writes a 4-byte signed integer
func (w *Writer) SetInt(row, col int, v int32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	return w.put(row, col, buf[:])
}

// SetFloat writes a 4-byte IEEE-754 float
func (w *Writer) SetFloat(row, col int, v float32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], math.Float32bits(v))
	return w.put(row, col, buf[:])
}

// SetLong writes an 8-byte signed integer
func (w *Writer) SetLong(row, col int, v int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return w.put(row, col, buf[:])
}

// SetDouble writes an 8-byte IEEE-754 float
func (w *Writer) SetDouble(row, col int, v float64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
	return w.put(row, col, buf[:])
}

// SetBytes writes a raw cell. len(v) must equal the column width.
func (w *Writer) SetBytes(row, col int, v []byte) error {
	return w.put(row, col, v)
}

// put checks state, then bounds, then width, and writes nothing unless all
// three pass
func (w *Writer) put(row, col int, value []byte) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if err := w.check(row, col, len(value)); err != nil {
		metrics.WriteErrors.WithLabelValues(string(errors.TypeOf(err))).Inc()
		return err
	}

	off := w.layout.CellOffset(row, col)
	if w.data != nil {
		copy(w.data[off:off+int64(len(value))], value)
	} else if _, err := w.file.WriteAt(value, off); err != nil {
		metrics.WriteErrors.WithLabelValues(string(errors.ErrorTypeFile)).Inc()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write cell").
			WithDetail("row", row).
			WithDetail("column", col)
	}
	metrics.CellsWritten.WithLabelValues(string(w.backend)).Inc()
	return nil
}

func (w *Writer) check(row, col, width int) error {
	if w.state != StateWritable {
		return errors.Newf(errors.ErrorTypeInvalidState, "writer is %s", w.state)
	}
	return w.layout.checkCell(row, col, width)
}

// SaveAndClose flushes every write to disk, releases the file and verifies
// its size. The writer is finalized even when flushing fails. A second call
// returns an invalid state error and leaves the file alone.
func (w *Writer) SaveAndClose() (*File, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateWritable {
		metrics.WriteErrors.WithLabelValues(string(errors.ErrorTypeInvalidState)).Inc()
		return nil, errors.Newf(errors.ErrorTypeInvalidState, "cannot finalize a %s writer", w.state)
	}
	w.state = StateFinalized
	metrics.OpenWriters.Dec()

	timer := metrics.NewTimer("finalize")
	if err := w.release(true); err != nil {
		metrics.WriteErrors.WithLabelValues(string(errors.ErrorTypeFile)).Inc()
		return nil, err
	}

	info, err := os.Stat(w.path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat finalized segment")
	}
	if info.Size() != w.layout.TotalSize() {
		return nil, errors.Newf(errors.ErrorTypeFile, "finalized segment is %d bytes, expected %d",
			info.Size(), w.layout.TotalSize())
	}

	elapsed := timer.Stop()
	metrics.FinalizeDuration.WithLabelValues(string(w.backend)).Observe(elapsed.Seconds())
	w.logger.Debug("segment finalized",
		zap.Int64("size", info.Size()),
		zap.Duration("duration", elapsed))

	return &File{Path: w.path, Layout: w.layout}, nil
}

// Abort releases the file without flushing and removes it. It fails on a
// writer that is already finalized.
func (w *Writer) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateWritable {
		return errors.Newf(errors.ErrorTypeInvalidState, "cannot abort a %s writer", w.state)
	}
	w.state = StateFinalized
	metrics.OpenWriters.Dec()

	releaseErr := w.release(false)
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to remove aborted segment")
	}
	w.logger.Warn("segment aborted")
	return releaseErr
}

// release unmaps and closes the file exactly once, continuing past errors
func (w *Writer) release(flush bool) error {
	var firstErr error
	keep := func(err error, msg string) {
		if err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, errors.ErrorTypeFile, msg)
		}
	}

	if w.data != nil {
		if flush {
			keep(mmap.Sync(w.data), "failed to flush segment mapping")
		}
		keep(mmap.Unmap(w.data), "failed to unmap segment")
		w.data = nil
	}
	if w.file != nil {
		if flush {
			keep(w.file.Sync(), "failed to sync segment file")
		}
		keep(w.file.Close(), "failed to close segment file")
		w.file = nil
	}
	return firstErr
}

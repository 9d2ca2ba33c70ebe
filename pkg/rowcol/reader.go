package rowcol

import (
	"encoding/binary"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
	"github.com/ajitpratap0/fixedseg/pkg/mmap"
)

// Reader reads a finalized segment file through a read-only mapping.
// Slices it returns are views of the mapping and are valid until Close.
type Reader struct {
	mu     sync.RWMutex
	layout Layout
	mr     *mmap.Reader
	data   []byte
	closed bool
	logger *zap.Logger
}

// Open maps path for reading. The file size must equal layout.TotalSize().
func Open(path string, layout Layout, opts ...Option) (*Reader, error) {
	if !layout.valid() {
		return nil, errors.New(errors.ErrorTypeLayout, "layout has no columns")
	}
	o := buildOptions(opts)

	mr, err := mmap.NewReader(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open segment")
	}
	if mr.Size() != layout.TotalSize() {
		mr.Close()
		return nil, errors.Newf(errors.ErrorTypeLayout, "segment is %d bytes, layout needs %d",
			mr.Size(), layout.TotalSize())
	}

	return &Reader{
		layout: layout,
		mr:     mr,
		data:   mr.ReadAll(),
		logger: o.logger.With(zap.String("segment", path)),
	}, nil
}

// Layout returns the file layout
func (r *Reader) Layout() Layout { return r.layout }

// Cell returns the raw bytes of cell (row, col)
func (r *Reader) Cell(row, col int) ([]byte, error) {
	return r.cell(row, col, -1)
}

func (r *Reader) cell(row, col, width int) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, errors.New(errors.ErrorTypeInvalidState, "reader is closed")
	}
	if err := r.layout.checkCell(row, col, width); err != nil {
		return nil, err
	}
	off := r.layout.CellOffset(row, col)
	return r.data[off : off+int64(r.layout.widths[col])], nil
}

// Byte reads a 1-byte signed integer
func (r *Reader) Byte(row, col int) (int8, error) {
	b, err := r.cell(row, col, 1)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

// Bool reads a boolean. Any non-zero byte is true.
func (r *Reader) Bool(row, col int) (bool, error) {
	b, err := r.cell(row, col, 1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// Short reads a 2-byte signed integer
func (r *Reader) Short(row, col int) (int16, error) {
	b, err := r.cell(row, col, 2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

// Char reads a 2-byte UTF-16 code unit
func (r *Reader) Char(row, col int) (uint16, error) {
	b, err := r.cell(row, col, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// Int reads a 4-byte signed integer
func (r *Reader) Int(row, col int) (int32, error) {
	b, err := r.cell(row, col, 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// Float reads a 4-byte IEEE-754 float
func (r *Reader) Float(row, col int) (float32, error) {
	b, err := r.cell(row, col, 4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

// Long reads an 8-byte signed integer
func (r *Reader) Long(row, col int) (int64, error) {
	b, err := r.cell(row, col, 8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// Double reads an 8-byte IEEE-754 float
func (r *Reader) Double(row, col int) (float64, error) {
	b, err := r.cell(row, col, 8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// Scan calls fn for every row in order with the row's cells in column order.
// The cells slice is reused between calls. Scan stops at the first error fn
// returns and returns it.
func (r *Reader) Scan(fn func(row int, cells [][]byte) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return errors.New(errors.ErrorTypeInvalidState, "reader is closed")
	}

	cells := make([][]byte, r.layout.Columns())
	rowWidth := r.layout.RowWidth()
	for row := 0; row < r.layout.Rows(); row++ {
		base := row * rowWidth
		for c := range cells {
			start := base + r.layout.offsets[c]
			cells[c] = r.data[start : start+r.layout.widths[c]]
		}
		if err := fn(row, cells); err != nil {
			return err
		}
	}
	return nil
}

// Close unmaps the file. Closing twice is a no-op.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.data = nil
	if err := r.mr.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close segment")
	}
	bytesRead, _ := r.mr.Stats()
	r.logger.Debug("segment closed", zap.Int64("bytes_read", bytesRead))
	return nil
}

package rowcol

import (
	"math"

	json "github.com/goccy/go-json"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
)

// Layout is the fixed geometry of a segment file. The zero Layout is
// invalid; build one with NewLayout.
type Layout struct {
	rows     int
	widths   []int
	offsets  []int
	rowWidth int
}

// NewLayout validates the geometry of a rows × cols file whose column c is
// widths[c] bytes wide
func NewLayout(rows, cols int, widths []int) (Layout, error) {
	if cols < 1 {
		return Layout{}, errors.Newf(errors.ErrorTypeLayout, "column count must be at least 1, got %d", cols)
	}
	if rows < 0 {
		return Layout{}, errors.Newf(errors.ErrorTypeLayout, "row count cannot be negative, got %d", rows)
	}
	if len(widths) != cols {
		return Layout{}, errors.Newf(errors.ErrorTypeLayout, "%d column widths given for %d columns", len(widths), cols)
	}

	offsets := make([]int, cols)
	rowWidth := 0
	for c, w := range widths {
		if w <= 0 {
			return Layout{}, errors.Newf(errors.ErrorTypeLayout, "column %d has non-positive width %d", c, w).
				WithDetail("column", c)
		}
		if rowWidth > math.MaxInt-w {
			return Layout{}, errors.New(errors.ErrorTypeLayout, "row width overflows")
		}
		offsets[c] = rowWidth
		rowWidth += w
	}
	if rows > 0 && rows > math.MaxInt/rowWidth {
		return Layout{}, errors.Newf(errors.ErrorTypeLayout, "%d rows of %d bytes overflow the addressable size", rows, rowWidth)
	}

	return Layout{
		rows:     rows,
		widths:   append([]int(nil), widths...),
		offsets:  offsets,
		rowWidth: rowWidth,
	}, nil
}

// Rows returns the row count
func (l Layout) Rows() int { return l.rows }

// Columns returns the column count
func (l Layout) Columns() int { return len(l.widths) }

// Widths returns a copy of the column widths
func (l Layout) Widths() []int { return append([]int(nil), l.widths...) }

// Width returns the width of column c. c must be in range.
func (l Layout) Width(c int) int { return l.widths[c] }

// RowWidth returns the sum of the column widths
func (l Layout) RowWidth() int { return l.rowWidth }

// ColumnOffset returns the byte offset of column c within a row. c must be
// in range.
func (l Layout) ColumnOffset(c int) int { return l.offsets[c] }

// CellOffset returns the byte offset of cell (r, c) within the file. It does
// not check bounds.
func (l Layout) CellOffset(r, c int) int64 {
	return int64(r)*int64(l.rowWidth) + int64(l.offsets[c])
}

// TotalSize returns the exact file size in bytes
func (l Layout) TotalSize() int64 {
	return int64(l.rows) * int64(l.rowWidth)
}

// Equal reports whether two layouts describe the same geometry
func (l Layout) Equal(other Layout) bool {
	if l.rows != other.rows || len(l.widths) != len(other.widths) {
		return false
	}
	for i := range l.widths {
		if l.widths[i] != other.widths[i] {
			return false
		}
	}
	return true
}

func (l Layout) valid() bool {
	return len(l.widths) > 0
}

// checkCell validates a cell address and, when width is not negative, the
// value width for that column
func (l Layout) checkCell(row, col, width int) error {
	if row < 0 || row >= l.rows {
		return errors.Newf(errors.ErrorTypeBounds, "row %d out of range [0, %d)", row, l.rows).
			WithDetail("row", row)
	}
	if col < 0 || col >= len(l.widths) {
		return errors.Newf(errors.ErrorTypeBounds, "column %d out of range [0, %d)", col, len(l.widths)).
			WithDetail("column", col)
	}
	if width >= 0 && width != l.widths[col] {
		return errors.Newf(errors.ErrorTypeLayout, "%d-byte value does not fit column %d of width %d",
			width, col, l.widths[col]).WithDetail("column", col)
	}
	return nil
}

type layoutWire struct {
	Rows   int   `json:"rows"`
	Widths []int `json:"columnWidths"`
}

// MarshalJSON encodes the layout as {"rows", "columnWidths"}
func (l Layout) MarshalJSON() ([]byte, error) {
	return json.Marshal(layoutWire{Rows: l.rows, Widths: l.widths})
}

// UnmarshalJSON decodes and validates a layout
func (l *Layout) UnmarshalJSON(data []byte) error {
	var wire layoutWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return errors.Wrap(err, errors.ErrorTypeLayout, "invalid layout")
	}
	parsed, err := NewLayout(wire.Rows, len(wire.Widths), wire.Widths)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

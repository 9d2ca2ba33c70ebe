// Package rowcol writes and reads fixed-width row-column segment files.
//
// A segment file holds rows × columns cells. Every cell of column c is
// exactly Widths()[c] bytes wide, so the file carries no header, no
// trailer and no per-cell framing:
//
//	offset(r, c) = r × RowWidth() + ColumnOffset(c)
//	size         = Rows() × RowWidth()
//
// Rows are stored one after another and a row stores its columns in
// order. Multi-byte values are big-endian. Floats are stored as their
// IEEE-754 bit patterns and booleans as one byte, 0 or 1.
//
// The layout is not recorded in the file. A reader must be given the same
// Layout the writer was created with.
//
// # Writing
//
//	layout, err := rowcol.NewLayout(100, 3, []int{4, 8, 2})
//	w, err := rowcol.Create("clicks.seg", layout)
//	err = w.SetInt(0, 0, 42)
//	err = w.SetLong(0, 1, 1700000000000)
//	err = w.SetShort(0, 2, 7)
//	seg, err := w.SaveAndClose()
//
// The whole file is allocated, zero-filled, before the first write. Cells
// can be written in any order and any number of times; the last write
// wins. A cell that is never written reads back as zero bytes. Null
// sentinels are the caller's business.
//
// Setters may be called from several goroutines as long as they write
// disjoint cells. SaveAndClose and Abort wait for in-flight setters.
//
// # Reading
//
//	r, err := seg.Open()
//	defer r.Close()
//	v, err := r.Int(0, 0)
package rowcol

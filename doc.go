// Package fixedseg writes and reads fixed-width columnar segment files.
//
// A segment is the lowest layer of a columnar store: a table of rows and
// columns where every column has a fixed byte width taken from its data
// type. Cells are stored row-major, big-endian, with no header and no
// padding, so the byte offset of any cell is a pure function of the layout:
//
//	offset(r, c) = r*rowWidth + columnOffset(c)
//
// The file is allocated at its final size before the first write, cells may
// be written in any order from any goroutine, and a single finalize step
// flushes and closes it.
//
// # Packages
//
//   - pkg/schema: column roles, data types, widths and null defaults
//   - pkg/rowcol: the layout, the writer (mmap or positional writes) and a reader
//   - pkg/formats: JSON lines, Avro and Arrow row sources
//   - internal/pipeline: builds a segment and its metadata sidecar from a row source
//   - pkg/compression: packs finalized segments into archives
//   - cmd/fixedseg: the command-line tool
//
// # Quick Start
//
//	s := schema.NewSchema("clicks",
//	    schema.NewDimension("country", schema.Int),
//	    schema.NewMetric("clicks", schema.Long),
//	)
//	widths, _ := s.ColumnWidths()
//
//	w, err := rowcol.NewWriter("clicks.seg", 2, len(widths), widths)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	w.SetInt(0, 0, 44)
//	w.SetLong(0, 1, 10)
//	w.SetInt(1, 0, 1)
//	w.SetLong(1, 1, 3)
//	seg, err := w.SaveAndClose()
//
// Unwritten cells read as zero bytes. Callers that need null sentinels write
// the column's default null value explicitly, which is what the build
// pipeline does for missing input fields.
package fixedseg

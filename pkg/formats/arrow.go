package formats

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
)

// ArrowSource reads rows from Arrow record batches, from an IPC stream or an
// IPC file
type ArrowSource struct {
	next    func() (arrow.Record, error)
	release func()
	schema  *arrow.Schema

	batch arrow.Record
	row   int
}

// NewArrowSource reads an Arrow IPC stream from r
func NewArrowSource(r io.Reader) (*ArrowSource, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid Arrow stream")
	}
	return &ArrowSource{
		schema:  rdr.Schema(),
		release: rdr.Release,
		next: func() (arrow.Record, error) {
			if rdr.Next() {
				return rdr.Record(), nil
			}
			if err := rdr.Err(); err != nil && err != io.EOF {
				return nil, err
			}
			return nil, io.EOF
		},
	}, nil
}

// ReadAtSeeker is the random access an Arrow IPC file needs
type ReadAtSeeker interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

// NewArrowFileSource reads an Arrow IPC file
func NewArrowFileSource(r ReadAtSeeker) (*ArrowSource, error) {
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid Arrow file")
	}
	i := 0
	return &ArrowSource{
		schema:  fr.Schema(),
		release: func() { fr.Close() },
		next: func() (arrow.Record, error) {
			if i >= fr.NumRecords() {
				return nil, io.EOF
			}
			rec, err := fr.Record(i)
			i++
			return rec, err
		},
	}, nil
}

// Schema returns the Arrow schema of the input
func (s *ArrowSource) Schema() *arrow.Schema { return s.schema }

// Next returns the next row
func (s *ArrowSource) Next() (map[string]any, error) {
	for s.batch == nil || s.row >= int(s.batch.NumRows()) {
		batch, err := s.next()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read Arrow record batch")
		}
		s.batch = batch
		s.row = 0
	}

	row := make(map[string]any, s.batch.NumCols())
	for c, field := range s.batch.Schema().Fields() {
		v, err := arrowValue(s.batch.Column(c), s.row)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "unsupported Arrow column").
				WithDetail("column", field.Name)
		}
		row[field.Name] = v
	}
	s.row++
	return row, nil
}

// Close releases the reader
func (s *ArrowSource) Close() error {
	s.batch = nil
	if s.release != nil {
		s.release()
		s.release = nil
	}
	return nil
}

func arrowValue(col arrow.Array, i int) (any, error) {
	if col.IsNull(i) {
		return nil, nil
	}

	switch c := col.(type) {
	case *array.Boolean:
		return c.Value(i), nil
	case *array.Int8:
		return c.Value(i), nil
	case *array.Int16:
		return c.Value(i), nil
	case *array.Uint16:
		return c.Value(i), nil
	case *array.Int32:
		return c.Value(i), nil
	case *array.Int64:
		return c.Value(i), nil
	case *array.Float32:
		return c.Value(i), nil
	case *array.Float64:
		return c.Value(i), nil
	case *array.String:
		return c.Value(i), nil
	case *array.Binary:
		return append([]byte(nil), c.Value(i)...), nil
	case *array.List:
		start, end := c.ValueOffsets(i)
		values := c.ListValues()
		out := make([]any, 0, end-start)
		for j := int(start); j < int(end); j++ {
			v, err := arrowValue(values, j)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	return nil, errors.Newf(errors.ErrorTypeUnsupportedType, "arrow type %s", col.DataType())
}

package formats

import (
	"bufio"
	"io"

	json "github.com/goccy/go-json"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
)

// JSONLinesSource reads one JSON object per row. Numbers are decoded as
// json.Number so LONG values keep every digit.
type JSONLinesSource struct {
	dec *json.Decoder
	row int
}

// NewJSONLinesSource reads rows from r
func NewJSONLinesSource(r io.Reader) *JSONLinesSource {
	dec := json.NewDecoder(bufio.NewReader(r))
	dec.UseNumber()
	return &JSONLinesSource{dec: dec}
}

// Next returns the next row
func (s *JSONLinesSource) Next() (map[string]any, error) {
	var row map[string]any
	if err := s.dec.Decode(&row); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid JSON row").
			WithDetail("row", s.row)
	}
	if row == nil {
		return nil, errors.New(errors.ErrorTypeData, "JSON row is null").WithDetail("row", s.row)
	}
	s.row++
	return row, nil
}

// Close is a no-op
func (s *JSONLinesSource) Close() error { return nil }

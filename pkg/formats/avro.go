package formats

import (
	"io"

	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
)

// AvroSource reads records from an Avro object container file. Nullable
// union values are unwrapped to the bare value.
type AvroSource struct {
	ocf *goavro.OCFReader
	row int
}

// NewAvroSource reads the container header from r
func NewAvroSource(r io.Reader) (*AvroSource, error) {
	ocf, err := goavro.NewOCFReader(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid Avro container")
	}
	return &AvroSource{ocf: ocf}, nil
}

// Schema returns the writer schema of the container
func (s *AvroSource) Schema() string {
	return s.ocf.Codec().Schema()
}

// Next returns the next record
func (s *AvroSource) Next() (map[string]any, error) {
	if !s.ocf.Scan() {
		if err := s.ocf.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read Avro block").
				WithDetail("row", s.row)
		}
		return nil, io.EOF
	}
	datum, err := s.ocf.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode Avro record").
			WithDetail("row", s.row)
	}
	record, ok := datum.(map[string]interface{})
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeData, "Avro datum is %T, not a record", datum).
			WithDetail("row", s.row)
	}
	for k, v := range record {
		record[k] = unwrapUnion(v)
	}
	s.row++
	return record, nil
}

// Close is a no-op
func (s *AvroSource) Close() error { return nil }

// unwrapUnion turns goavro's {"type": value} union encoding into value
func unwrapUnion(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		if len(t) == 1 {
			for name, inner := range t {
				if isAvroTypeName(name) {
					return unwrapUnion(inner)
				}
			}
		}
	case []interface{}:
		for i := range t {
			t[i] = unwrapUnion(t[i])
		}
	}
	return v
}

func isAvroTypeName(name string) bool {
	switch name {
	case "boolean", "int", "long", "float", "double", "bytes", "string", "array", "map":
		return true
	}
	return false
}

package pipeline

import (
	"github.com/ajitpratap0/fixedseg/pkg/errors"
	"github.com/ajitpratap0/fixedseg/pkg/rowcol"
	"github.com/ajitpratap0/fixedseg/pkg/schema"
)

// ReadRow decodes one row of a segment into a map keyed by field name.
// CHAR cells decode to one-rune strings.
func ReadRow(r *rowcol.Reader, s *schema.Schema, row int) (map[string]any, error) {
	out := make(map[string]any, len(s.Fields))
	for c, f := range s.Fields {
		v, err := readCell(r, f.DataType, row, c)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func readCell(r *rowcol.Reader, dt schema.DataType, row, col int) (any, error) {
	switch dt {
	case schema.Boolean:
		return r.Bool(row, col)
	case schema.Byte:
		return r.Byte(row, col)
	case schema.Char:
		v, err := r.Char(row, col)
		if err != nil {
			return nil, err
		}
		return string(rune(v)), nil
	case schema.Short:
		return r.Short(row, col)
	case schema.Int:
		return r.Int(row, col)
	case schema.Long:
		return r.Long(row, col)
	case schema.Float:
		return r.Float(row, col)
	case schema.Double:
		return r.Double(row, col)
	}
	return nil, errors.Newf(errors.ErrorTypeUnsupportedType, "%s is not a fixed-width type", dt)
}

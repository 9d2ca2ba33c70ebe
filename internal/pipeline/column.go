package pipeline

import (
	"github.com/ajitpratap0/fixedseg/pkg/errors"
	"github.com/ajitpratap0/fixedseg/pkg/rowcol"
	"github.com/ajitpratap0/fixedseg/pkg/schema"
)

// column carries what a worker needs to write one schema field
type column struct {
	name     string
	dataType schema.DataType
	// null is the coerced null default, nil when nullErr is set
	null    any
	nullErr error
}

func newColumns(s *schema.Schema) []column {
	cols := make([]column, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = column{name: f.Name, dataType: f.DataType}
		nv, err := f.DefaultNullValue()
		if err != nil {
			cols[i].nullErr = err
			continue
		}
		v, err := schema.ParseValue(f.DataType, nv.Interface())
		if err != nil {
			cols[i].nullErr = errors.Wrap(err, errors.ErrorTypeConfig, "null default does not fit column "+f.Name)
			continue
		}
		cols[i].null = v
	}
	return cols
}

// write stores row[c.name] at (r, idx) and reports whether the null default
// was used
func (c *column) write(w *rowcol.Writer, r, idx int, row map[string]any) (bool, error) {
	raw, ok := row[c.name]
	var v any
	if !ok || raw == nil {
		if c.nullErr != nil {
			return true, errors.Wrap(c.nullErr, errors.TypeOf(c.nullErr), "null value in column "+c.name)
		}
		v = c.null
	} else {
		parsed, err := schema.ParseValue(c.dataType, raw)
		if err != nil {
			return false, errors.Wrap(err, errors.TypeOf(err), "column "+c.name)
		}
		v = parsed
	}
	return !ok || raw == nil, set(w, r, idx, v)
}

// set dispatches on the Go type ParseValue produced
func set(w *rowcol.Writer, r, c int, v any) error {
	switch x := v.(type) {
	case bool:
		return w.SetBool(r, c, x)
	case int8:
		return w.SetByte(r, c, x)
	case uint16:
		return w.SetChar(r, c, x)
	case int16:
		return w.SetShort(r, c, x)
	case int32:
		return w.SetInt(r, c, x)
	case int64:
		return w.SetLong(r, c, x)
	case float32:
		return w.SetFloat(r, c, x)
	case float64:
		return w.SetDouble(r, c, x)
	}
	return errors.Newf(errors.ErrorTypeInternal, "no setter for %T", v)
}

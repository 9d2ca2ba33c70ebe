package schema

import (
	"github.com/apache/arrow-go/v18/arrow"
	json "github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
)

// ClassifyAvro maps an Avro primitive type name to a DataType. Avro booleans
// are stored as strings.
func ClassifyAvro(tag string) (DataType, error) {
	switch tag {
	case "int":
		return Int, nil
	case "long":
		return Long, nil
	case "string", "boolean":
		return String, nil
	case "float":
		return Float, nil
	case "double":
		return Double, nil
	}
	return 0, errors.Newf(errors.ErrorTypeUnsupportedType, "unsupported external type: avro %q", tag)
}

// ClassifyArrow maps an Arrow data type to a DataType
func ClassifyArrow(dt arrow.DataType) (DataType, error) {
	switch dt.ID() {
	case arrow.BOOL:
		return Boolean, nil
	case arrow.INT8:
		return Byte, nil
	case arrow.UINT16:
		return Char, nil
	case arrow.INT16:
		return Short, nil
	case arrow.INT32:
		return Int, nil
	case arrow.INT64:
		return Long, nil
	case arrow.FLOAT32:
		return Float, nil
	case arrow.FLOAT64:
		return Double, nil
	case arrow.STRING:
		return String, nil
	case arrow.BINARY:
		return Opaque, nil
	case arrow.LIST:
		elem, err := ClassifyArrow(dt.(*arrow.ListType).Elem())
		if err != nil {
			return 0, err
		}
		arr, err := ArrayOf(elem)
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrorTypeUnsupportedType, "unsupported external type: arrow "+dt.String())
		}
		return arr, nil
	}
	return 0, errors.Newf(errors.ErrorTypeUnsupportedType, "unsupported external type: arrow %s", dt)
}

type avroRecord struct {
	Type   string      `json:"type"`
	Name   string      `json:"name"`
	Fields []avroField `json:"fields"`
}

type avroField struct {
	Name string          `json:"name"`
	Doc  string          `json:"doc,omitempty"`
	Type json.RawMessage `json:"type"`
}

// FieldSpecsFromAvro builds a schema from an Avro record schema. roles assigns
// a FieldType per field name; unlisted fields become dimensions. Array fields
// become multi-valued columns delimited by ",".
func FieldSpecsFromAvro(avroSchema string, roles map[string]FieldType) (*Schema, error) {
	if _, err := goavro.NewCodec(avroSchema); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid avro schema")
	}
	var rec avroRecord
	if err := json.Unmarshal([]byte(avroSchema), &rec); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid avro schema")
	}
	if rec.Type != "record" {
		return nil, errors.Newf(errors.ErrorTypeUnsupportedType, "avro schema must be a record, got %q", rec.Type)
	}

	s := &Schema{Name: rec.Name, Fields: make([]FieldSpec, 0, len(rec.Fields))}
	for _, af := range rec.Fields {
		dt, single, err := classifyAvroType(af.Type)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeUnsupportedType, "field "+af.Name)
		}
		ft, ok := roles[af.Name]
		if !ok {
			ft = FieldTypeDimension
		}
		spec := FieldSpec{Name: af.Name, FieldType: ft, DataType: dt, SingleValue: single}
		if !single {
			spec.Delimiter = ","
		}
		s.Fields = append(s.Fields, spec)
	}
	return s, s.Validate()
}

// classifyAvroType resolves a field's type: a name, a nullable union or an
// array of either.
func classifyAvroType(raw json.RawMessage) (DataType, bool, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		dt, err := ClassifyAvro(name)
		return dt, true, err
	}

	var union []json.RawMessage
	if err := json.Unmarshal(raw, &union); err == nil {
		var branch json.RawMessage
		for _, u := range union {
			var n string
			if json.Unmarshal(u, &n) == nil && n == "null" {
				continue
			}
			if branch != nil {
				return 0, false, errors.New(errors.ErrorTypeUnsupportedType, "unsupported external type: avro union with several non-null branches")
			}
			branch = u
		}
		if branch == nil {
			return 0, false, errors.New(errors.ErrorTypeUnsupportedType, "unsupported external type: avro null")
		}
		return classifyAvroType(branch)
	}

	var complex struct {
		Type  string          `json:"type"`
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(raw, &complex); err != nil {
		return 0, false, errors.Wrap(err, errors.ErrorTypeUnsupportedType, "unsupported external type")
	}
	if complex.Type != "array" {
		dt, err := ClassifyAvro(complex.Type)
		return dt, true, err
	}
	elem, single, err := classifyAvroType(complex.Items)
	if err != nil {
		return 0, false, err
	}
	if !single {
		return 0, false, errors.New(errors.ErrorTypeUnsupportedType, "unsupported external type: nested avro array")
	}
	arr, err := ArrayOf(elem)
	if err != nil {
		return 0, false, err
	}
	return arr, false, nil
}

// AvroSchema renders s as a nullable Avro record schema for data generators.
// Only INT, LONG, FLOAT, DOUBLE, STRING and BOOLEAN columns can be rendered.
func AvroSchema(s *Schema) (string, error) {
	name := s.Name
	if name == "" {
		name = "segment"
	}
	rec := avroRecord{Type: "record", Name: name, Fields: make([]avroField, 0, len(s.Fields))}
	for _, f := range s.Fields {
		var tag string
		switch f.DataType {
		case Int:
			tag = "int"
		case Long:
			tag = "long"
		case Float:
			tag = "float"
		case Double:
			tag = "double"
		case String:
			tag = "string"
		case Boolean:
			tag = "boolean"
		default:
			return "", errors.Newf(errors.ErrorTypeUnsupportedType, "no avro type for column %s of type %s", f.Name, f.DataType)
		}
		typ, err := json.Marshal([]string{"null", tag})
		if err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode avro type")
		}
		rec.Fields = append(rec.Fields, avroField{
			Name: f.Name,
			Doc:  "data sample from load generator",
			Type: typ,
		})
	}
	out, err := json.Marshal(rec)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode avro schema")
	}
	return string(out), nil
}

// Package schema is the column type registry: per-column role, data type,
// multi-value encoding and null-default policy, plus the byte widths the
// fixed-width row-column writer is laid out from.
package schema

import (
	"math"
	"strconv"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
)

// FieldType is the business role of a column
type FieldType uint8

const (
	FieldTypeUnknown FieldType = iota
	FieldTypeDimension
	FieldTypeMetric
	FieldTypeTime
)

var fieldTypeNames = [...]string{
	FieldTypeUnknown:   "UNKNOWN",
	FieldTypeDimension: "DIMENSION",
	FieldTypeMetric:    "METRIC",
	FieldTypeTime:      "TIME",
}

func (f FieldType) String() string {
	if int(f) < len(fieldTypeNames) {
		return fieldTypeNames[f]
	}
	return "FieldType(" + strconv.Itoa(int(f)) + ")"
}

// MarshalText implements encoding.TextMarshaler
func (f FieldType) MarshalText() ([]byte, error) {
	if int(f) >= len(fieldTypeNames) {
		return nil, errors.Newf(errors.ErrorTypeUnsupportedType, "unknown field type %d", f)
	}
	return []byte(fieldTypeNames[f]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (f *FieldType) UnmarshalText(text []byte) error {
	ft, err := ParseFieldType(string(text))
	if err != nil {
		return err
	}
	*f = ft
	return nil
}

// ParseFieldType parses a role name such as "METRIC"
func ParseFieldType(name string) (FieldType, error) {
	for i, n := range fieldTypeNames {
		if n == name {
			return FieldType(i), nil
		}
	}
	return FieldTypeUnknown, errors.Newf(errors.ErrorTypeUnsupportedType, "unknown field type %q", name)
}

// DataType is the value type of a column. Every array type is declared after
// every scalar type; IsSingleValue depends on that ordering.
type DataType uint8

const (
	Boolean DataType = iota
	Byte
	Char
	Short
	Int
	Long
	Float
	Double
	String
	Opaque

	// array types, BYTE_ARRAY first
	ByteArray
	CharArray
	ShortArray
	IntArray
	LongArray
	FloatArray
	DoubleArray
	StringArray

	numDataTypes
)

type typeInfo struct {
	name   string
	width  int      // fixed byte width, 0 when not fixed-width
	scalar DataType // element type of an array, self for scalars
}

var typeTable = [numDataTypes]typeInfo{
	Boolean:     {"BOOLEAN", 1, Boolean},
	Byte:        {"BYTE", 1, Byte},
	Char:        {"CHAR", 2, Char},
	Short:       {"SHORT", 2, Short},
	Int:         {"INT", 4, Int},
	Long:        {"LONG", 8, Long},
	Float:       {"FLOAT", 4, Float},
	Double:      {"DOUBLE", 8, Double},
	String:      {"STRING", 0, String},
	Opaque:      {"OPAQUE", 0, Opaque},
	ByteArray:   {"BYTE_ARRAY", 0, Byte},
	CharArray:   {"CHAR_ARRAY", 0, Char},
	ShortArray:  {"SHORT_ARRAY", 0, Short},
	IntArray:    {"INT_ARRAY", 0, Int},
	LongArray:   {"LONG_ARRAY", 0, Long},
	FloatArray:  {"FLOAT_ARRAY", 0, Float},
	DoubleArray: {"DOUBLE_ARRAY", 0, Double},
	StringArray: {"STRING_ARRAY", 0, String},
}

func (d DataType) valid() bool { return d < numDataTypes }

func (d DataType) String() string {
	if !d.valid() {
		return "DataType(" + strconv.Itoa(int(d)) + ")"
	}
	return typeTable[d].name
}

// IsSingleValue reports whether d is a scalar type.
func (d DataType) IsSingleValue() bool {
	return d < ByteArray
}

// Scalar returns the element type of an array type, or d itself.
func (d DataType) Scalar() DataType {
	if !d.valid() {
		return d
	}
	return typeTable[d].scalar
}

// ArrayOf returns the array type whose elements are d.
func ArrayOf(d DataType) (DataType, error) {
	for t := ByteArray; t < numDataTypes; t++ {
		if typeTable[t].scalar == d {
			return t, nil
		}
	}
	return d, errors.Newf(errors.ErrorTypeUnsupportedType, "no array type for %s", d)
}

// MarshalText implements encoding.TextMarshaler
func (d DataType) MarshalText() ([]byte, error) {
	if !d.valid() {
		return nil, errors.Newf(errors.ErrorTypeUnsupportedType, "unknown data type %d", d)
	}
	return []byte(typeTable[d].name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *DataType) UnmarshalText(text []byte) error {
	dt, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*d = dt
	return nil
}

// ParseDataType parses a type name such as "LONG" or "INT_ARRAY".
// OBJECT is accepted as an alias of OPAQUE.
func ParseDataType(name string) (DataType, error) {
	if name == "OBJECT" {
		return Opaque, nil
	}
	for t := DataType(0); t < numDataTypes; t++ {
		if typeTable[t].name == name {
			return t, nil
		}
	}
	return 0, errors.Newf(errors.ErrorTypeUnsupportedType, "unknown data type %q", name)
}

// WidthOf returns the fixed byte width of a value of type d. Strings, opaque
// values and arrays have no fixed width and are rejected.
func WidthOf(d DataType) (int, error) {
	if !d.valid() || typeTable[d].width == 0 {
		return 0, errors.Newf(errors.ErrorTypeUnsupportedType, "%s is not a fixed-width type", d).
			WithDetail("data_type", d.String())
	}
	return typeTable[d].width, nil
}

// DefaultValueOf resolves the null sentinel of a column. An explicit default
// wins. Otherwise metrics default to the additive identity and every other
// role to a value no real dimension can take.
func DefaultValueOf(ft FieldType, dt DataType, explicit NullValue) (NullValue, error) {
	if explicit != nil {
		return explicit, nil
	}
	scalar := dt.Scalar()
	if ft == FieldTypeMetric {
		switch scalar {
		case Int:
			return IntValue(0), nil
		case Long:
			return LongValue(0), nil
		case Float:
			return FloatValue(0), nil
		case Double:
			return DoubleValue(0), nil
		}
	}
	switch scalar {
	case Int:
		return IntValue(math.MinInt32), nil
	case Long:
		return LongValue(math.MinInt64), nil
	case Float:
		return FloatValue(float32(math.Inf(-1))), nil
	case Double:
		return DoubleValue(math.Inf(-1)), nil
	case String:
		return StringValue("null"), nil
	}
	return nil, errors.Newf(errors.ErrorTypeUnsupportedType, "unsupported type for null resolution: %s", dt).
		WithDetail("field_type", ft.String()).
		WithDetail("data_type", dt.String())
}

package schema

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
)

// FieldSpec describes one column
type FieldSpec struct {
	Name        string
	FieldType   FieldType
	DataType    DataType
	SingleValue bool
	// Delimiter separates the values of a multi-valued column in text input.
	// The binary writer never looks at it.
	Delimiter string
	// DefaultNull overrides the resolved null sentinel when set.
	DefaultNull NullValue
}

// FieldKey is the identity of a FieldSpec. Two specs with equal keys are the
// same column; the default null value is not part of the identity.
type FieldKey struct {
	Name        string
	FieldType   FieldType
	DataType    DataType
	SingleValue bool
	Delimiter   string
}

// NewDimension returns a single-valued dimension spec
func NewDimension(name string, dt DataType) FieldSpec {
	return FieldSpec{Name: name, FieldType: FieldTypeDimension, DataType: dt, SingleValue: true}
}

// NewMetric returns a single-valued metric spec
func NewMetric(name string, dt DataType) FieldSpec {
	return FieldSpec{Name: name, FieldType: FieldTypeMetric, DataType: dt, SingleValue: true}
}

// NewTime returns a single-valued time spec
func NewTime(name string, dt DataType) FieldSpec {
	return FieldSpec{Name: name, FieldType: FieldTypeTime, DataType: dt, SingleValue: true}
}

// NewMultiValueDimension returns a multi-valued dimension spec
func NewMultiValueDimension(name string, dt DataType, delimiter string) FieldSpec {
	return FieldSpec{Name: name, FieldType: FieldTypeDimension, DataType: dt, Delimiter: delimiter}
}

// Key returns the structural identity of the spec
func (f FieldSpec) Key() FieldKey {
	return FieldKey{
		Name:        f.Name,
		FieldType:   f.FieldType,
		DataType:    f.DataType,
		SingleValue: f.SingleValue,
		Delimiter:   f.Delimiter,
	}
}

// Equal reports whether f and other describe the same column
func (f FieldSpec) Equal(other FieldSpec) bool {
	return f.Key() == other.Key()
}

// Hash returns a hash consistent with Equal
func (f FieldSpec) Hash() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(f.Name)
	single := byte(0)
	if f.SingleValue {
		single = 1
	}
	_, _ = d.Write([]byte{0, byte(f.FieldType), byte(f.DataType), single})
	_, _ = d.WriteString(f.Delimiter)
	return d.Sum64()
}

// DefaultNullValue resolves the column's null sentinel
func (f FieldSpec) DefaultNullValue() (NullValue, error) {
	return DefaultValueOf(f.FieldType, f.DataType, f.DefaultNull)
}

// Width returns the fixed byte width of the column's values
func (f FieldSpec) Width() (int, error) {
	w, err := WidthOf(f.DataType)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeUnsupportedType, "column "+f.Name+" cannot be stored fixed-width")
	}
	return w, nil
}

// Validate checks the spec for internal consistency
func (f FieldSpec) Validate() error {
	if f.Name == "" {
		return errors.New(errors.ErrorTypeConfig, "field name is required")
	}
	if int(f.FieldType) >= len(fieldTypeNames) {
		return errors.Newf(errors.ErrorTypeConfig, "field %s: unknown field type %d", f.Name, f.FieldType)
	}
	if !f.DataType.valid() {
		return errors.Newf(errors.ErrorTypeConfig, "field %s: unknown data type %d", f.Name, f.DataType)
	}
	if !f.SingleValue && f.Delimiter == "" {
		return errors.Newf(errors.ErrorTypeConfig, "field %s: multi-valued field requires a delimiter", f.Name)
	}
	if err := checkNullValue(f.DataType, f.DefaultNull); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "field "+f.Name)
	}
	return nil
}

func (f FieldSpec) String() string {
	cardinality := "single value column"
	if !f.SingleValue {
		cardinality = "multi value column"
	}
	return fmt.Sprintf("<%s: data type : %s , field type : %s, %s, delimiter : %q>",
		f.Name, f.DataType, f.FieldType, cardinality, f.Delimiter)
}

// fieldSpecWire is the on-disk shape of a FieldSpec. fieldType selects the
// variant; defaultNullValue is typed by dataType when decoded.
type fieldSpecWire struct {
	Name             string    `json:"name" yaml:"name"`
	FieldType        FieldType `json:"fieldType" yaml:"fieldType"`
	DataType         DataType  `json:"dataType" yaml:"dataType"`
	SingleValueField *bool     `json:"singleValueField,omitempty" yaml:"singleValueField,omitempty"`
	Delimiter        string    `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
	DefaultNullValue any       `json:"defaultNullValue,omitempty" yaml:"defaultNullValue,omitempty"`
}

func (f FieldSpec) toWire() fieldSpecWire {
	single := f.SingleValue
	w := fieldSpecWire{
		Name:             f.Name,
		FieldType:        f.FieldType,
		DataType:         f.DataType,
		SingleValueField: &single,
		Delimiter:        f.Delimiter,
	}
	switch v := f.DefaultNull.(type) {
	case nil:
	case FloatValue:
		w.DefaultNullValue = finiteOrString(float64(v), 32)
	case DoubleValue:
		w.DefaultNullValue = finiteOrString(float64(v), 64)
	default:
		w.DefaultNullValue = v.Interface()
	}
	return w
}

// finiteOrString keeps infinities and NaN representable in JSON.
func finiteOrString(f float64, bitSize int) any {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, bitSize)
	}
	if bitSize == 32 {
		return float32(f)
	}
	return f
}

func (f *FieldSpec) fromWire(w fieldSpecWire) error {
	single := true
	if w.SingleValueField != nil {
		single = *w.SingleValueField
	}
	def, err := ParseNullValue(w.DataType, w.DefaultNullValue)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "field "+w.Name)
	}
	*f = FieldSpec{
		Name:        w.Name,
		FieldType:   w.FieldType,
		DataType:    w.DataType,
		SingleValue: single,
		Delimiter:   w.Delimiter,
		DefaultNull: def,
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (f FieldSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.toWire())
}

// UnmarshalJSON implements json.Unmarshaler
func (f *FieldSpec) UnmarshalJSON(data []byte) error {
	var w fieldSpecWire
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return err
	}
	return f.fromWire(w)
}

// MarshalYAML implements yaml.Marshaler
func (f FieldSpec) MarshalYAML() (interface{}, error) {
	return f.toWire(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (f *FieldSpec) UnmarshalYAML(node *yaml.Node) error {
	var w fieldSpecWire
	if err := node.Decode(&w); err != nil {
		return err
	}
	return f.fromWire(w)
}

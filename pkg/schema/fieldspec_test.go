package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/linkedin/goavro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
)

func TestFieldSpecEquality(t *testing.T) {
	a := NewDimension("country", String)
	b := NewDimension("country", String)
	b.DefaultNull = StringValue("unknown")

	assert.True(t, a.Equal(b), "default null is not part of the identity")
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Equal(t, a.Key(), b.Key())

	variants := []FieldSpec{
		NewDimension("region", String),
		NewMetric("country", String),
		NewDimension("country", Long),
		NewMultiValueDimension("country", String, ","),
		{Name: "country", FieldType: FieldTypeDimension, DataType: String, SingleValue: true, Delimiter: ";"},
	}
	for _, v := range variants {
		assert.False(t, a.Equal(v), v.String())
		assert.NotEqual(t, a.Hash(), v.Hash(), v.String())
	}

	byKey := map[FieldKey]int{a.Key(): 1}
	byKey[b.Key()]++
	assert.Len(t, byKey, 1)
	assert.Equal(t, 2, byKey[a.Key()])
}

func TestFieldSpecValidate(t *testing.T) {
	assert.NoError(t, NewMetric("clicks", Long).Validate())
	assert.NoError(t, NewMultiValueDimension("tags", StringArray, ",").Validate())

	bad := []FieldSpec{
		{FieldType: FieldTypeDimension, DataType: Int, SingleValue: true},
		{Name: "tags", FieldType: FieldTypeDimension, DataType: StringArray},
		{Name: "x", FieldType: FieldTypeMetric, DataType: Int, SingleValue: true, DefaultNull: StringValue("zero")},
		{Name: "y", FieldType: FieldType(9), DataType: Int, SingleValue: true},
	}
	for _, f := range bad {
		assert.True(t, errors.IsType(f.Validate(), errors.ErrorTypeConfig), f.String())
	}

	assert.NotErrorIs(t, bad[2].Validate(), errors.ErrLayout)
	assert.Equal(t, errors.ErrorTypeConfig, errors.TypeOf(checkNullValue(Int, StringValue("zero"))))
}

func TestSchemaColumnWidths(t *testing.T) {
	s := NewSchema("events",
		NewDimension("id", Int),
		NewMetric("revenue", Double),
		NewDimension("flag", Short),
	)
	require.NoError(t, s.Validate())
	widths, err := s.ColumnWidths()
	require.NoError(t, err)
	assert.Equal(t, []int{4, 8, 2}, widths)

	s.Fields = append(s.Fields, NewDimension("name", String))
	_, err = s.ColumnWidths()
	assert.ErrorIs(t, err, errors.ErrUnsupportedType)
}

func TestSchemaValidateDuplicates(t *testing.T) {
	s := NewSchema("dup", NewDimension("a", Int), NewMetric("a", Long))
	assert.Error(t, s.Validate())

	s = NewSchema("dedup", NewDimension("a", Int), NewDimension("b", Int), NewDimension("a", Int))
	assert.Equal(t, 1, s.Dedup())
	assert.Len(t, s.Fields, 2)
	assert.NoError(t, s.Validate())
}

const schemaJSON = `{
  "schemaName": "clicks",
  "fieldSpecs": [
    {"name": "site", "fieldType": "DIMENSION", "dataType": "INT"},
    {"name": "clicks", "fieldType": "METRIC", "dataType": "LONG", "defaultNullValue": -1},
    {"name": "ts", "fieldType": "TIME", "dataType": "LONG", "defaultNullValue": -9223372036854775808},
    {"name": "tags", "fieldType": "DIMENSION", "dataType": "STRING_ARRAY", "singleValueField": false, "delimiter": ","}
  ]
}`

const schemaYAML = `schemaName: clicks
fieldSpecs:
  - name: site
    fieldType: DIMENSION
    dataType: INT
  - name: clicks
    fieldType: METRIC
    dataType: LONG
    defaultNullValue: -1
  - name: ts
    fieldType: TIME
    dataType: LONG
    defaultNullValue: -9223372036854775808
  - name: tags
    fieldType: DIMENSION
    dataType: STRING_ARRAY
    singleValueField: false
    delimiter: ","
`

func TestLoadSchema(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"schema.json": schemaJSON,
		"schema.yaml": schemaYAML,
	}
	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			s, err := LoadSchema(path)
			require.NoError(t, err)
			assert.Equal(t, "clicks", s.Name)
			require.Len(t, s.Fields, 4)

			assert.Equal(t, NewDimension("site", Int), s.Fields[0])
			assert.Equal(t, LongValue(-1), s.Fields[1].DefaultNull)
			assert.Equal(t, LongValue(-9223372036854775808), s.Fields[2].DefaultNull)
			assert.False(t, s.Fields[3].SingleValue)
			assert.Equal(t, ",", s.Fields[3].Delimiter)

			// save and reload in the other format
			other := filepath.Join(dir, "copy-"+name+".yml")
			require.NoError(t, s.Save(other))
			again, err := LoadSchema(other)
			require.NoError(t, err)
			assert.Equal(t, s, again)
		})
	}
}

func TestLoadSchemaErrors(t *testing.T) {
	_, err := LoadSchema(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))

	_, err = ParseJSON([]byte(`{"schemaName":"x","fieldSpecs":[{"name":"a","fieldType":"DIMENSION","dataType":"INT","defaultNullValue":"abc"}]}`))
	assert.Error(t, err)
}

func TestClassifyAvro(t *testing.T) {
	tests := map[string]DataType{
		"int":     Int,
		"long":    Long,
		"string":  String,
		"boolean": String,
		"float":   Float,
		"double":  Double,
	}
	for tag, want := range tests {
		got, err := ClassifyAvro(tag)
		require.NoError(t, err, tag)
		assert.Equal(t, want, got, tag)
	}
	for _, tag := range []string{"bytes", "null", "record", "fixed"} {
		_, err := ClassifyAvro(tag)
		assert.ErrorIs(t, err, errors.ErrUnsupportedType, tag)
	}
}

func TestClassifyArrow(t *testing.T) {
	tests := []struct {
		in   arrow.DataType
		want DataType
	}{
		{arrow.FixedWidthTypes.Boolean, Boolean},
		{arrow.PrimitiveTypes.Int8, Byte},
		{arrow.PrimitiveTypes.Uint16, Char},
		{arrow.PrimitiveTypes.Int16, Short},
		{arrow.PrimitiveTypes.Int32, Int},
		{arrow.PrimitiveTypes.Int64, Long},
		{arrow.PrimitiveTypes.Float32, Float},
		{arrow.PrimitiveTypes.Float64, Double},
		{arrow.BinaryTypes.String, String},
		{arrow.BinaryTypes.Binary, Opaque},
		{arrow.ListOf(arrow.PrimitiveTypes.Int64), LongArray},
	}
	for _, tt := range tests {
		got, err := ClassifyArrow(tt.in)
		require.NoError(t, err, tt.in.String())
		assert.Equal(t, tt.want, got, tt.in.String())
	}

	_, err := ClassifyArrow(arrow.FixedWidthTypes.Date32)
	assert.ErrorIs(t, err, errors.ErrUnsupportedType)
	_, err = ClassifyArrow(arrow.ListOf(arrow.FixedWidthTypes.Boolean))
	assert.ErrorIs(t, err, errors.ErrUnsupportedType)
}

func TestFieldSpecsFromAvro(t *testing.T) {
	avro := `{
	  "type": "record",
	  "name": "click",
	  "fields": [
	    {"name": "site", "type": "int"},
	    {"name": "user", "type": ["null", "string"]},
	    {"name": "clicks", "type": "long"},
	    {"name": "scores", "type": {"type": "array", "items": "double"}}
	  ]
	}`
	s, err := FieldSpecsFromAvro(avro, map[string]FieldType{"clicks": FieldTypeMetric})
	require.NoError(t, err)
	assert.Equal(t, "click", s.Name)
	require.Len(t, s.Fields, 4)
	assert.Equal(t, NewDimension("site", Int), s.Fields[0])
	assert.Equal(t, NewDimension("user", String), s.Fields[1])
	assert.Equal(t, NewMetric("clicks", Long), s.Fields[2])
	assert.Equal(t, NewMultiValueDimension("scores", DoubleArray, ","), s.Fields[3])

	_, err = FieldSpecsFromAvro(`{"type":"record","name":"r","fields":[{"name":"b","type":"bytes"}]}`, nil)
	assert.ErrorIs(t, err, errors.ErrUnsupportedType)

	_, err = FieldSpecsFromAvro(`{"type":"record"`, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestAvroSchemaExport(t *testing.T) {
	s := NewSchema("load",
		NewDimension("site", Int),
		NewMetric("clicks", Long),
		NewMetric("ctr", Float),
		NewMetric("revenue", Double),
		NewDimension("country", String),
		NewDimension("active", Boolean),
	)
	out, err := AvroSchema(s)
	require.NoError(t, err)

	codec, err := goavro.NewCodec(out)
	require.NoError(t, err)
	bin, err := codec.BinaryFromNative(nil, map[string]interface{}{
		"site":    goavro.Union("int", int32(3)),
		"clicks":  goavro.Union("long", int64(10)),
		"ctr":     nil,
		"revenue": goavro.Union("double", 1.25),
		"country": goavro.Union("string", "nl"),
		"active":  goavro.Union("boolean", true),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, bin)

	_, err = AvroSchema(NewSchema("x", NewDimension("b", Byte)))
	assert.ErrorIs(t, err, errors.ErrUnsupportedType)
}

package formats

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	json "github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
)

func TestJSONLinesSource(t *testing.T) {
	input := `{"country":"US","clicks":9007199254740993,"cost":1.5}
{"country":null,"clicks":2}

{"country":"DE","tags":["a","b"]}
`
	rows, err := ReadAll(NewJSONLinesSource(strings.NewReader(input)))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "US", rows[0]["country"])
	assert.Equal(t, json.Number("9007199254740993"), rows[0]["clicks"])
	assert.Nil(t, rows[1]["country"])
	assert.Equal(t, []interface{}{"a", "b"}, rows[2]["tags"])
	_, present := rows[2]["clicks"]
	assert.False(t, present)
}

func TestJSONLinesSourceErrors(t *testing.T) {
	src := NewJSONLinesSource(strings.NewReader("{\"a\":1}\n{broken\n"))
	_, err := src.Next()
	require.NoError(t, err)
	_, err = src.Next()
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))

	src = NewJSONLinesSource(strings.NewReader("null\n"))
	_, err = src.Next()
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))

	src = NewJSONLinesSource(strings.NewReader(""))
	_, err = src.Next()
	assert.Equal(t, io.EOF, err)
}

const clicksAvro = `{
  "type": "record",
  "name": "clicks",
  "fields": [
    {"name": "country", "type": ["null", "string"]},
    {"name": "clicks", "type": "long"},
    {"name": "cost", "type": ["null", "double"]},
    {"name": "tags", "type": {"type": "array", "items": "string"}}
  ]
}`

func writeAvro(t *testing.T, w io.Writer) {
	t.Helper()
	codec, err := goavro.NewCodec(clicksAvro)
	require.NoError(t, err)
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{W: w, Codec: codec})
	require.NoError(t, err)
	require.NoError(t, ocf.Append([]interface{}{
		map[string]interface{}{
			"country": goavro.Union("string", "US"),
			"clicks":  int64(7),
			"cost":    goavro.Union("double", 0.25),
			"tags":    []interface{}{"x"},
		},
		map[string]interface{}{
			"country": nil,
			"clicks":  int64(-1),
			"cost":    nil,
			"tags":    []interface{}{},
		},
	}))
}

func TestAvroSource(t *testing.T) {
	var buf bytes.Buffer
	writeAvro(t, &buf)

	src, err := NewAvroSource(&buf)
	require.NoError(t, err)
	assert.Contains(t, src.Schema(), "clicks")

	rows, err := ReadAll(src)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "US", rows[0]["country"])
	assert.Equal(t, int64(7), rows[0]["clicks"])
	assert.Equal(t, 0.25, rows[0]["cost"])
	assert.Equal(t, []interface{}{"x"}, rows[0]["tags"])
	assert.Nil(t, rows[1]["country"])
	assert.Nil(t, rows[1]["cost"])
}

func TestAvroSourceRejectsGarbage(t *testing.T) {
	_, err := NewAvroSource(strings.NewReader("not avro"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func buildArrowRecord(t *testing.T) arrow.Record {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "country", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "clicks", Type: arrow.PrimitiveTypes.Int64},
		{Name: "rank", Type: arrow.PrimitiveTypes.Int32},
		{Name: "ratio", Type: arrow.PrimitiveTypes.Float32},
		{Name: "flag", Type: arrow.FixedWidthTypes.Boolean},
		{Name: "scores", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)},
	}, nil)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	b.Field(0).(*array.StringBuilder).AppendValues([]string{"US", ""}, []bool{true, false})
	b.Field(1).(*array.Int64Builder).AppendValues([]int64{10, 20}, nil)
	b.Field(2).(*array.Int32Builder).AppendValues([]int32{1, 2}, nil)
	b.Field(3).(*array.Float32Builder).AppendValues([]float32{0.5, 1.5}, nil)
	b.Field(4).(*array.BooleanBuilder).AppendValues([]bool{true, false}, nil)
	lb := b.Field(5).(*array.ListBuilder)
	vb := lb.ValueBuilder().(*array.Float64Builder)
	lb.Append(true)
	vb.AppendValues([]float64{1, 2}, nil)
	lb.Append(true)

	return b.NewRecord()
}

func assertArrowRows(t *testing.T, rows []map[string]any) {
	t.Helper()
	require.Len(t, rows, 2)
	assert.Equal(t, "US", rows[0]["country"])
	assert.Nil(t, rows[1]["country"])
	assert.Equal(t, int64(20), rows[1]["clicks"])
	assert.Equal(t, int32(1), rows[0]["rank"])
	assert.Equal(t, float32(1.5), rows[1]["ratio"])
	assert.Equal(t, true, rows[0]["flag"])
	assert.Equal(t, []any{1.0, 2.0}, rows[0]["scores"])
	assert.Equal(t, []any{}, rows[1]["scores"])
}

func TestArrowStreamSource(t *testing.T) {
	rec := buildArrowRecord(t)
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(rec.Schema()))
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())

	src, err := NewArrowSource(&buf)
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, 6, len(src.Schema().Fields()))

	rows, err := ReadAll(src)
	require.NoError(t, err)
	assertArrowRows(t, rows)
}

func TestOpenArrowFile(t *testing.T) {
	rec := buildArrowRecord(t)
	defer rec.Release()

	path := filepath.Join(t.TempDir(), "clicks.arrow")
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := ipc.NewFileWriter(f, ipc.WithSchema(rec.Schema()))
	require.NoError(t, err)
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	format, err := FormatForPath(path)
	require.NoError(t, err)
	src, err := Open(format, path)
	require.NoError(t, err)
	defer src.Close()

	rows, err := ReadAll(src)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assertArrowRows(t, rows[2:])
}

func TestOpenAvroFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clicks.avro")
	f, err := os.Create(path)
	require.NoError(t, err)
	writeAvro(t, f)
	require.NoError(t, f.Close())

	src, err := Open(Avro, path)
	require.NoError(t, err)
	rows, err := ReadAll(src)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.NoError(t, src.Close())
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(JSONLines, filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))

	path := filepath.Join(t.TempDir(), "rows.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o644))
	_, err = Open("csv", path)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = FormatForPath(path)
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{
		"jsonl": JSONLines, "NDJSON": JSONLines, "json": JSONLines,
		"avro": Avro, "arrow": Arrow, "arrows": ArrowStream,
	} {
		got, err := ParseFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("parquet")
	assert.Error(t, err)
}

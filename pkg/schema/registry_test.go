package schema

import (
	"math"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
)

func TestDataTypeSingleValue(t *testing.T) {
	for dt := DataType(0); dt < numDataTypes; dt++ {
		isArray := dt >= ByteArray
		assert.Equal(t, !isArray, dt.IsSingleValue(), dt.String())
		if isArray {
			assert.True(t, dt.Scalar().IsSingleValue(), "element of %s", dt)
			back, err := ArrayOf(dt.Scalar())
			require.NoError(t, err)
			assert.Equal(t, dt, back)
		} else {
			assert.Equal(t, dt, dt.Scalar())
		}
	}
}

func TestWidthOf(t *testing.T) {
	tests := []struct {
		dt    DataType
		width int
	}{
		{Boolean, 1},
		{Byte, 1},
		{Char, 2},
		{Short, 2},
		{Int, 4},
		{Float, 4},
		{Long, 8},
		{Double, 8},
	}
	for _, tt := range tests {
		t.Run(tt.dt.String(), func(t *testing.T) {
			w, err := WidthOf(tt.dt)
			require.NoError(t, err)
			assert.Equal(t, tt.width, w)
		})
	}

	for _, dt := range []DataType{String, Opaque, IntArray, StringArray, ByteArray} {
		_, err := WidthOf(dt)
		assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupportedType), dt.String())
	}
}

func TestDefaultValueOf(t *testing.T) {
	tests := []struct {
		name     string
		ft       FieldType
		dt       DataType
		explicit NullValue
		want     NullValue
	}{
		{"metric int", FieldTypeMetric, Int, nil, IntValue(0)},
		{"metric long", FieldTypeMetric, Long, nil, LongValue(0)},
		{"metric float", FieldTypeMetric, Float, nil, FloatValue(0)},
		{"metric double", FieldTypeMetric, Double, nil, DoubleValue(0)},
		{"metric int array", FieldTypeMetric, IntArray, nil, IntValue(0)},
		{"metric string falls back to sentinel", FieldTypeMetric, String, nil, StringValue("null")},
		{"dimension int", FieldTypeDimension, Int, nil, IntValue(math.MinInt32)},
		{"dimension long", FieldTypeDimension, Long, nil, LongValue(math.MinInt64)},
		{"time long", FieldTypeTime, Long, nil, LongValue(math.MinInt64)},
		{"unknown double", FieldTypeUnknown, Double, nil, DoubleValue(math.Inf(-1))},
		{"dimension float", FieldTypeDimension, Float, nil, FloatValue(float32(math.Inf(-1)))},
		{"dimension string", FieldTypeDimension, String, nil, StringValue("null")},
		{"dimension string array", FieldTypeDimension, StringArray, nil, StringValue("null")},
		{"explicit overrides metric", FieldTypeMetric, Int, IntValue(-1), IntValue(-1)},
		{"explicit overrides dimension", FieldTypeDimension, String, StringValue("n/a"), StringValue("n/a")},
		{"explicit rescues boolean", FieldTypeDimension, Boolean, IntValue(0), IntValue(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DefaultValueOf(tt.ft, tt.dt, tt.explicit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultValueOfUnsupported(t *testing.T) {
	for _, dt := range []DataType{Boolean, Byte, Char, Short, Opaque, ByteArray, ShortArray} {
		for _, ft := range []FieldType{FieldTypeDimension, FieldTypeMetric} {
			_, err := DefaultValueOf(ft, dt, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrUnsupportedType, "%s/%s", ft, dt)
		}
	}
}

func TestParseNames(t *testing.T) {
	for dt := DataType(0); dt < numDataTypes; dt++ {
		text, err := dt.MarshalText()
		require.NoError(t, err)
		var back DataType
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, dt, back)
	}
	dt, err := ParseDataType("OBJECT")
	require.NoError(t, err)
	assert.Equal(t, Opaque, dt)

	_, err = ParseDataType("DECIMAL")
	assert.ErrorIs(t, err, errors.ErrUnsupportedType)

	ft, err := ParseFieldType("METRIC")
	require.NoError(t, err)
	assert.Equal(t, FieldTypeMetric, ft)
	_, err = ParseFieldType("measure")
	assert.Error(t, err)
}

func TestParseNullValue(t *testing.T) {
	tests := []struct {
		dt   DataType
		raw  any
		want NullValue
	}{
		{Int, float64(7), IntValue(7)},
		{Int, "12", IntValue(12)},
		{Long, int64(math.MinInt64), LongValue(math.MinInt64)},
		{Float, 1.5, FloatValue(1.5)},
		{Double, "-Inf", DoubleValue(math.Inf(-1))},
		{String, "none", StringValue("none")},
		{Boolean, true, IntValue(1)},
		{Char, "x", IntValue('x')},
		{Short, 300, IntValue(300)},
		{LongArray, 3, LongValue(3)},
	}
	for _, tt := range tests {
		got, err := ParseNullValue(tt.dt, tt.raw)
		require.NoError(t, err, "%s %v", tt.dt, tt.raw)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseNullValue(Int, 1.5)
	assert.Error(t, err)
	_, err = ParseNullValue(Byte, 200)
	assert.Error(t, err)
	_, err = ParseNullValue(String, 3)
	assert.Error(t, err)

	none, err := ParseNullValue(Int, nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		dt   DataType
		raw  any
		want any
	}{
		{Boolean, true, true},
		{Boolean, "false", false},
		{Boolean, json.Number("1"), true},
		{Byte, -128, int8(-128)},
		{Char, "A", uint16('A')},
		{Char, int64(65535), uint16(65535)},
		{Short, int16(-3), int16(-3)},
		{Int, json.Number("2147483647"), int32(math.MaxInt32)},
		{Int, float64(12), int32(12)},
		{Long, json.Number("9007199254740993"), int64(9007199254740993)},
		{Long, int32(5), int64(5)},
		{Float, 1.5, float32(1.5)},
		{Float, json.Number("0.25"), float32(0.25)},
		{Double, int64(3), 3.0},
		{Double, "2.5", 2.5},
	}
	for _, tt := range tests {
		got, err := ParseValue(tt.dt, tt.raw)
		require.NoError(t, err, "%s %v", tt.dt, tt.raw)
		assert.Equal(t, tt.want, got, "%s %v", tt.dt, tt.raw)
	}
}

func TestParseValueRejects(t *testing.T) {
	for _, tt := range []struct {
		dt  DataType
		raw any
	}{
		{Boolean, 2},
		{Boolean, "maybe"},
		{Byte, 128},
		{Char, "AB"},
		{Char, -1},
		{Short, 40000},
		{Int, json.Number("2147483648")},
		{Int, 1.5},
		{Long, "ten"},
		{Double, []any{1.0}},
	} {
		_, err := ParseValue(tt.dt, tt.raw)
		assert.True(t, errors.IsType(err, errors.ErrorTypeData), "%s %v", tt.dt, tt.raw)
	}

	_, err := ParseValue(String, "x")
	assert.ErrorIs(t, err, errors.ErrUnsupportedType)
	_, err = ParseValue(IntArray, []any{1})
	assert.ErrorIs(t, err, errors.ErrUnsupportedType)
}

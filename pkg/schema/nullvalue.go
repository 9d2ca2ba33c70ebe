package schema

import (
	"math"
	"strconv"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
)

// NullValue is the value stored in place of a missing one. It is one of
// IntValue, LongValue, FloatValue, DoubleValue or StringValue.
type NullValue interface {
	nullValue()
	// Interface returns the underlying Go value.
	Interface() any
}

type (
	IntValue    int32
	LongValue   int64
	FloatValue  float32
	DoubleValue float64
	StringValue string
)

func (IntValue) nullValue()    {}
func (LongValue) nullValue()   {}
func (FloatValue) nullValue()  {}
func (DoubleValue) nullValue() {}
func (StringValue) nullValue() {}

func (v IntValue) Interface() any    { return int32(v) }
func (v LongValue) Interface() any   { return int64(v) }
func (v FloatValue) Interface() any  { return float32(v) }
func (v DoubleValue) Interface() any { return float64(v) }
func (v StringValue) Interface() any { return string(v) }

// number is satisfied by encoding/json.Number and goccy/go-json's Number.
type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
}

// ParseNullValue converts a decoded JSON or YAML default into the variant that
// matches dt. BOOLEAN, BYTE, CHAR and SHORT defaults are carried as IntValue;
// OPAQUE defaults as StringValue.
func ParseNullValue(dt DataType, raw any) (NullValue, error) {
	if raw == nil {
		return nil, nil
	}
	switch dt.Scalar() {
	case Int:
		i, err := toInt(raw, math.MinInt32, math.MaxInt32)
		if err != nil {
			return nil, badDefault(dt, raw, err)
		}
		return IntValue(i), nil
	case Long:
		i, err := toInt(raw, math.MinInt64, math.MaxInt64)
		if err != nil {
			return nil, badDefault(dt, raw, err)
		}
		return LongValue(i), nil
	case Float:
		f, err := toFloat(raw)
		if err != nil {
			return nil, badDefault(dt, raw, err)
		}
		return FloatValue(float32(f)), nil
	case Double:
		f, err := toFloat(raw)
		if err != nil {
			return nil, badDefault(dt, raw, err)
		}
		return DoubleValue(f), nil
	case Boolean:
		if b, ok := raw.(bool); ok {
			if b {
				return IntValue(1), nil
			}
			return IntValue(0), nil
		}
		i, err := toInt(raw, 0, 1)
		if err != nil {
			return nil, badDefault(dt, raw, err)
		}
		return IntValue(i), nil
	case Byte:
		i, err := toInt(raw, math.MinInt8, math.MaxInt8)
		if err != nil {
			return nil, badDefault(dt, raw, err)
		}
		return IntValue(i), nil
	case Short:
		i, err := toInt(raw, math.MinInt16, math.MaxInt16)
		if err != nil {
			return nil, badDefault(dt, raw, err)
		}
		return IntValue(i), nil
	case Char:
		if s, ok := raw.(string); ok && len([]rune(s)) == 1 {
			r := []rune(s)[0]
			if r <= math.MaxUint16 {
				return IntValue(r), nil
			}
		}
		i, err := toInt(raw, 0, math.MaxUint16)
		if err != nil {
			return nil, badDefault(dt, raw, err)
		}
		return IntValue(i), nil
	case String, Opaque:
		if s, ok := raw.(string); ok {
			return StringValue(s), nil
		}
		return nil, badDefault(dt, raw, nil)
	}
	return nil, badDefault(dt, raw, nil)
}

// checkNullValue reports whether v is the variant ParseNullValue produces for dt.
func checkNullValue(dt DataType, v NullValue) error {
	if v == nil {
		return nil
	}
	var ok bool
	switch dt.Scalar() {
	case Int, Boolean, Byte, Char, Short:
		_, ok = v.(IntValue)
	case Long:
		_, ok = v.(LongValue)
	case Float:
		_, ok = v.(FloatValue)
	case Double:
		_, ok = v.(DoubleValue)
	case String, Opaque:
		_, ok = v.(StringValue)
	}
	if !ok {
		return errors.Newf(errors.ErrorTypeConfig, "default %v (%T) does not fit %s", v.Interface(), v, dt)
	}
	return nil
}

func badDefault(dt DataType, raw any, cause error) error {
	if cause != nil {
		return errors.Wrap(cause, errors.ErrorTypeConfig, "invalid default null value for "+dt.String()).
			WithDetail("value", raw)
	}
	return errors.Newf(errors.ErrorTypeConfig, "invalid default null value %v (%T) for %s", raw, raw, dt)
}

func toInt(raw any, lo, hi int64) (int64, error) {
	var i int64
	switch x := raw.(type) {
	case int:
		i = int64(x)
	case int8:
		i = int64(x)
	case int16:
		i = int64(x)
	case uint16:
		i = int64(x)
	case int32:
		i = int64(x)
	case uint32:
		i = int64(x)
	case int64:
		i = x
	case uint64:
		if x > math.MaxInt64 {
			return 0, errors.Newf(errors.ErrorTypeData, "%d overflows int64", x)
		}
		i = int64(x)
	case float64:
		if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, errors.Newf(errors.ErrorTypeData, "%v is not an integer", x)
		}
		i = int64(x)
	case float32:
		return toInt(float64(x), lo, hi)
	case number:
		n, err := x.Int64()
		if err != nil {
			return 0, err
		}
		i = n
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, err
		}
		i = n
	default:
		return 0, errors.Newf(errors.ErrorTypeData, "%T is not an integer", raw)
	}
	if i < lo || i > hi {
		return 0, errors.Newf(errors.ErrorTypeData, "%d out of range [%d, %d]", i, lo, hi)
	}
	return i, nil
}

func toFloat(raw any) (float64, error) {
	switch x := raw.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(x, 64)
	}
	return 0, errors.Newf(errors.ErrorTypeData, "%T is not a number", raw)
}

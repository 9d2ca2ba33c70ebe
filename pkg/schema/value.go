package schema

import (
	"math"
	"strconv"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
)

// ParseValue converts a decoded input value to the Go type stored for a
// fixed-width column of type dt: bool, int8, uint16, int16, int32, int64,
// float32 or float64. Integers must fit the column; nothing is truncated.
func ParseValue(dt DataType, raw any) (any, error) {
	switch dt {
	case Boolean:
		switch x := raw.(type) {
		case bool:
			return x, nil
		case string:
			b, err := strconv.ParseBool(x)
			if err != nil {
				return nil, badValue(dt, raw, err)
			}
			return b, nil
		}
		i, err := toInt(raw, 0, 1)
		if err != nil {
			return nil, badValue(dt, raw, err)
		}
		return i == 1, nil
	case Byte:
		i, err := toInt(raw, math.MinInt8, math.MaxInt8)
		if err != nil {
			return nil, badValue(dt, raw, err)
		}
		return int8(i), nil
	case Char:
		if s, ok := raw.(string); ok {
			if r := []rune(s); len(r) == 1 && r[0] <= math.MaxUint16 {
				return uint16(r[0]), nil
			}
		}
		i, err := toInt(raw, 0, math.MaxUint16)
		if err != nil {
			return nil, badValue(dt, raw, err)
		}
		return uint16(i), nil
	case Short:
		i, err := toInt(raw, math.MinInt16, math.MaxInt16)
		if err != nil {
			return nil, badValue(dt, raw, err)
		}
		return int16(i), nil
	case Int:
		i, err := toInt(raw, math.MinInt32, math.MaxInt32)
		if err != nil {
			return nil, badValue(dt, raw, err)
		}
		return int32(i), nil
	case Long:
		i, err := toInt(raw, math.MinInt64, math.MaxInt64)
		if err != nil {
			return nil, badValue(dt, raw, err)
		}
		return i, nil
	case Float:
		f, err := toFloat(raw)
		if err != nil {
			return nil, badValue(dt, raw, err)
		}
		return float32(f), nil
	case Double:
		f, err := toFloat(raw)
		if err != nil {
			return nil, badValue(dt, raw, err)
		}
		return f, nil
	}
	return nil, errors.Newf(errors.ErrorTypeUnsupportedType, "%s is not a fixed-width type", dt)
}

func badValue(dt DataType, raw any, cause error) error {
	return errors.Wrap(cause, errors.ErrorTypeData, "cannot store value as "+dt.String()).
		WithDetail("value", raw)
}

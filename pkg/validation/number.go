package validation

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// Number is a request quantity that accepts JSON and YAML numbers as well as
// numeric strings such as "12000". Values that cannot be read as a number
// decode to NaN, which NumericFieldWarning reports and the valuation treats
// as 0.
type Number float64

// ParseNumber converts a decoded JSON or YAML value to a Number. nil and blank
// strings are 0.
func ParseNumber(value interface{}) Number {
	switch v := value.(type) {
	case nil:
		return 0
	case bool:
		return Number(math.NaN())
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0
		}
		value = v
	}
	f, err := cast.ToFloat64E(value)
	if err != nil {
		return Number(math.NaN())
	}
	return Number(f)
}

// UnmarshalJSON implements json.Unmarshaler. It never fails on a well-formed
// JSON value.
func (n *Number) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = ParseNumber(raw)
	return nil
}

// NumberDecodeHook lets mapstructure fill Number fields from any scalar.
func NumberDecodeHook() mapstructure.DecodeHookFuncType {
	numberType := reflect.TypeOf(Number(0))
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if to != numberType {
			return data, nil
		}
		return ParseNumber(data), nil
	}
}

// Count is n as a whole count. Fractions are truncated; negative and
// non-finite values are 0.
func (n Number) Count() int {
	f := float64(n)
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

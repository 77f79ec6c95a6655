package render

import (
	"bytes"
	"math"
	"strconv"
)

// Value is a float64 that serializes NaN as JSON null, so undefined days
// survive the trip to the renderer without breaking encoding/json.
type Value float64

func (v Value) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(v)) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(v), 'g', -1, 64), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*v = Value(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*v = Value(f)
	return nil
}

// values converts a raw series, preserving NaN.
func values(src []float64) []Value {
	out := make([]Value, len(src))
	for i, f := range src {
		out[i] = Value(f)
	}
	return out
}

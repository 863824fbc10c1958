package metrics

import (
	"fmt"
	"strconv"
	"strings"
)

// Converter turns the raw string value of a response field into a sample value.
type Converter func(raw string) (float64, error)

// Float parses the raw value as a number. It is the default converter.
func Float(raw string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}

// Scale returns a converter multiplying the parsed value by factor.
func Scale(factor float64) Converter {
	return func(raw string) (float64, error) {
		v, err := Float(raw)
		if err != nil {
			return 0, err
		}
		return v * factor, nil
	}
}

// Bool maps 1/0 and true/false to 1 and 0.
func Bool(raw string) (float64, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if b {
		return 1, nil
	}
	return 0, nil
}

// Enum returns a converter mapping the known values of an enumeration. Unknown
// values are an error, so they show up as absent instead of a made up number.
func Enum(values map[string]float64) Converter {
	m := make(map[string]float64, len(values))
	for k, v := range values {
		m[k] = v
	}

	return func(raw string) (float64, error) {
		v, ok := m[strings.TrimSpace(raw)]
		if !ok {
			return 0, fmt.Errorf("unexpected value %q", raw)
		}
		return v, nil
	}
}

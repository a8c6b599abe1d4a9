package netconf

import (
	"fmt"
	"math"
)

// Params are the parameters of an atomic model, as written in a network file.
type Params map[string]any

// Float returns a numeric parameter, or def if the parameter is not set.
func (p Params) Float(key string, def float64) (float64, error) {
	v, found := p[key]
	if !found {
		return def, nil
	}

	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("parameter %s must be a number, got %T", key, v)
	}
}

// Int returns an integer parameter, or def if the parameter is not set.
func (p Params) Int(key string, def int) (int, error) {
	v, found := p[key]
	if !found {
		return def, nil
	}

	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("parameter %s must be an integer, got %v",
				key, n)
		}

		return int(n), nil
	default:
		return 0, fmt.Errorf("parameter %s must be an integer, got %T", key, v)
	}
}

// String returns a string parameter, or def if the parameter is not set.
func (p Params) String(key string, def string) (string, error) {
	v, found := p[key]
	if !found {
		return def, nil
	}

	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s must be a string, got %T", key, v)
	}

	return s, nil
}

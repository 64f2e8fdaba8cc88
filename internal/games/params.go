package games

import (
	"fmt"
	"strings"
)

// Params arrive as decoded JSON, so numbers show up as float64 and arrays
// as []any. These helpers normalize the common shapes.

func paramInt(params map[string]any, key string, def int) (int, error) {
	if params == nil {
		return def, nil
	}
	raw, ok := params[key]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number, got %T", ErrInvalidParams, key, raw)
	}
}

func paramFloat(params map[string]any, key string) (float64, bool, error) {
	if params == nil {
		return 0, false, nil
	}
	raw, ok := params[key]
	if !ok {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case int:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	case float64:
		return v, true, nil
	default:
		return 0, false, fmt.Errorf("%w: %s must be a number, got %T", ErrInvalidParams, key, raw)
	}
}

func paramString(params map[string]any, key, def string) (string, error) {
	if params == nil {
		return def, nil
	}
	raw, ok := params[key]
	if !ok {
		return def, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidParams, key, raw)
	}
	return strings.ToLower(strings.TrimSpace(s)), nil
}

func paramIntSlice(params map[string]any, key string) ([]int, error) {
	if params == nil {
		return nil, nil
	}
	raw, ok := params[key]
	if !ok {
		return nil, nil
	}
	switch v := raw.(type) {
	case []int:
		return v, nil
	case []float64:
		out := make([]int, len(v))
		for i, f := range v {
			out[i] = int(f)
		}
		return out, nil
	case []any:
		out := make([]int, len(v))
		for i, e := range v {
			switch ev := e.(type) {
			case int:
				out[i] = ev
			case float64:
				out[i] = int(ev)
			default:
				return nil, fmt.Errorf("%w: %s[%d] must be a number, got %T", ErrInvalidParams, key, i, e)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be an array, got %T", ErrInvalidParams, key, raw)
	}
}

func paramBoolSlice(params map[string]any, key string) ([]bool, error) {
	if params == nil {
		return nil, nil
	}
	raw, ok := params[key]
	if !ok {
		return nil, nil
	}
	switch v := raw.(type) {
	case []bool:
		return v, nil
	case []any:
		out := make([]bool, len(v))
		for i, e := range v {
			b, ok := e.(bool)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] must be a boolean, got %T", ErrInvalidParams, key, i, e)
			}
			out[i] = b
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be an array, got %T", ErrInvalidParams, key, raw)
	}
}

package network

import (
	"fmt"
	"strconv"

	"github.com/polisai/conduit/pkg/domain"
)

// Options carries per-type overrides from a layout document.
type Options map[string]any

// Float reads a numeric option.
func (o Options) Float(key string, def float64) (float64, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("option %q: %w", key, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("option %q: expected number, got %T", key, v)
}

// Int reads an integer option.
func (o Options) Int(key string, def int) (int, error) {
	f, err := o.Float(key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("option %q: expected integer, got %v", key, f)
	}
	return int(f), nil
}

// String reads a string option.
func (o Options) String(key, def string) (string, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("option %q: expected string, got %T", key, v)
	}
	return s, nil
}

// Strings reads a list of strings.
func (o Options) Strings(key string) ([]string, error) {
	v, ok := o[key]
	if !ok {
		return nil, nil
	}
	return toStrings(key, v)
}

// Sides reads a map from face name to string list, as used by filter pipes.
func (o Options) Sides(key string) (map[domain.Direction][]string, error) {
	v, ok := o[key]
	if !ok {
		return nil, nil
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("option %q: expected mapping, got %T", key, v)
	}
	out := make(map[domain.Direction][]string, len(raw))
	for name, list := range raw {
		dir, err := domain.ParseDirection(name)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", key, err)
		}
		ids, err := toStrings(key+"."+name, list)
		if err != nil {
			return nil, err
		}
		out[dir] = ids
	}
	return out, nil
}

func toStrings(key string, v any) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return list, nil
	case string:
		return []string{list}, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("option %q: expected string entries, got %T", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("option %q: expected list, got %T", key, v)
}

// cacheKey is stable for equal options; fmt prints map keys in sorted order.
func (o Options) cacheKey() string {
	if len(o) == 0 {
		return ""
	}
	return fmt.Sprint(map[string]any(o))
}

package pipe

import (
	"maps"
	"strconv"
)

// State is one module's persistent data for one segment. Values must survive a
// msgpack round trip, so numbers are read back through the typed accessors.
type State map[string]any

// Int returns the integer at key or def.
func (s State) Int(key string, def int) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// String returns the string at key or def.
func (s State) String(key, def string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return def
}

// Bool returns the bool at key or def.
func (s State) Bool(key string, def bool) bool {
	if v, ok := s[key].(bool); ok {
		return v
	}
	return def
}

// Strings returns the string list at key.
func (s State) Strings(key string) []string {
	switch v := s[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			if str, ok := elem.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Set stores value under key.
func (s State) Set(key string, value any) {
	s[key] = value
}

// Delete removes key.
func (s State) Delete(key string) {
	delete(s, key)
}

// Clone returns a shallow copy.
func (s State) Clone() State {
	return maps.Clone(s)
}

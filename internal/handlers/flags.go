package handlers

import "strconv"

// flagString reads a string-valued flag, tolerating a non-string
// JSON-decoded value by falling back to its string form.
func flagString(flags map[string]interface{}, key string) string {
	v, ok := flags[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// firstNonEmptyFlag returns the first of keys with a non-empty string
// value, or "" if none are set — used where several flag spellings
// (device/udid/serial) all resolve the same thing.
func firstNonEmptyFlag(flags map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v := flagString(flags, k); v != "" {
			return v
		}
	}
	return ""
}

// flagBool reads a boolean flag, tolerating JSON's native bool or a
// "true"/"false" string.
func flagBool(flags map[string]interface{}, key string) bool {
	v, ok := flags[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	default:
		return false
	}
}

// flagInt reads an integer flag, tolerating JSON's float64 decoding or a
// numeric string, falling back to def when absent or unparseable.
func flagInt(flags map[string]interface{}, key string, def int) int {
	v, ok := flags[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return def
		}
		return n
	default:
		return def
	}
}

// flagFloat reads a float64 flag, reporting whether it was present and
// parseable.
func flagFloat(flags map[string]interface{}, key string) (float64, bool) {
	v, ok := flags[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

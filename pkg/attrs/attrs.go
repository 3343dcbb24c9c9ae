// Package attrs reads values out of slog-style alternating key/value slices.
package attrs

// Lookup returns the value paired with key. Non-string keys and a trailing
// unpaired element are skipped.
func Lookup(kv []any, key string) (any, bool) {
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok && k == key {
			return kv[i+1], true
		}
	}
	return nil, false
}

// ExtractString returns the value for key when it is a string or a
// fmt.Stringer, and "" otherwise.
func ExtractString(kv []any, key string) string {
	v, ok := Lookup(kv, key)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case interface{ String() string }:
		return s.String()
	}
	return ""
}

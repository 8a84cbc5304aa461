package service

import (
	"strings"
	"unicode/utf8"
)

// sanitizeUTF8 drops invalid UTF-8 sequences from model output before it
// is persisted, preventing PostgreSQL encoding errors.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var result strings.Builder
	result.Grow(len(s))

	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[1:]
			continue
		}
		result.WriteRune(r)
		s = s[size:]
	}

	return result.String()
}

// sanitizeData applies sanitizeUTF8 to every string value in a mapping,
// descending into nested maps and slices.
func sanitizeData(data map[string]any) map[string]any {
	for key, value := range data {
		data[key] = sanitizeValue(value)
	}
	return data
}

func sanitizeValue(value any) any {
	switch v := value.(type) {
	case string:
		return sanitizeUTF8(v)
	case map[string]any:
		return sanitizeData(v)
	case []any:
		for i, item := range v {
			v[i] = sanitizeValue(item)
		}
		return v
	default:
		return value
	}
}

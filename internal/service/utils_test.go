package service

import (
	"testing"
	"unicode/utf8"
)

func TestSanitizeUTF8(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid ascii", "hello", "hello"},
		{"valid multibyte", "счёт на оплату", "счёт на оплату"},
		{"invalid byte dropped", "he\xffllo", "hello"},
		{"truncated rune dropped", "ок\xd0", "ок"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeUTF8(tt.input)
			if got != tt.want {
				t.Errorf("sanitizeUTF8(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("output is not valid UTF-8: %q", got)
			}
		})
	}
}

func TestSanitizeData(t *testing.T) {
	data := map[string]any{
		"vendor": "Ac\xffme",
		"nested": map[string]any{
			"note": "ba\xffd",
		},
		"items":  []any{"o\xffk", 42},
		"amount": 99.5,
	}

	got := sanitizeData(data)

	if got["vendor"] != "Acme" {
		t.Errorf("vendor = %q", got["vendor"])
	}
	if nested := got["nested"].(map[string]any); nested["note"] != "bad" {
		t.Errorf("nested note = %q", nested["note"])
	}
	items := got["items"].([]any)
	if items[0] != "ok" {
		t.Errorf("items[0] = %q", items[0])
	}
	if items[1] != 42 {
		t.Errorf("non-string slice element changed: %v", items[1])
	}
	if got["amount"] != 99.5 {
		t.Errorf("non-string value changed: %v", got["amount"])
	}
}

package service

import (
	"errors"
	"strings"
	"testing"
)

func TestIsLikelyScanned(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", true},
		{"whitespace only", "   \n\t  ", true},
		{"just below threshold", strings.Repeat("a", 49), true},
		{"at threshold", strings.Repeat("a", 50), false},
		{"whitespace padding does not count", "  " + strings.Repeat("a", 49) + "  \n", true},
		{"multibyte runes count as runes", strings.Repeat("п", 50), false},
		{"typical invoice text", "INVOICE #1042\nAcme Corp\n123 Main St\nTotal: $1,250.00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isLikelyScanned(tt.text); got != tt.want {
				t.Errorf("isLikelyScanned(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no fence", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fence with surrounding whitespace", "  ```json\n{\"a\": 1}\n```  ", `{"a": 1}`},
		{"unclosed fence", "```json\n{\"a\": 1}", `{"a": 1}`},
		{"backticks inside content survive", `{"note": "use ` + "`code`" + `"}`, `{"note": "use ` + "`code`" + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFence(tt.input); got != tt.want {
				t.Errorf("stripCodeFence(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncateText(t *testing.T) {
	t.Run("shorter than limit", func(t *testing.T) {
		if got := truncateText("hello", 10); got != "hello" {
			t.Errorf("got %q, want %q", got, "hello")
		}
	})

	t.Run("exactly at limit", func(t *testing.T) {
		if got := truncateText("hello", 5); got != "hello" {
			t.Errorf("got %q, want %q", got, "hello")
		}
	})

	t.Run("cuts at limit", func(t *testing.T) {
		if got := truncateText("hello world", 5); got != "hello" {
			t.Errorf("got %q, want %q", got, "hello")
		}
	})

	t.Run("does not split multibyte runes", func(t *testing.T) {
		got := truncateText("ппппп", 3)
		if got != "ппп" {
			t.Errorf("got %q, want %q", got, "ппп")
		}
	})
}

func TestDegradedResults(t *testing.T) {
	t.Run("no text", func(t *testing.T) {
		result := noTextResult()
		if result["error"] != "could not extract text from document" {
			t.Errorf("error = %v", result["error"])
		}
		if len(result) != 1 {
			t.Errorf("expected only the error key, got %v", result)
		}
	})

	t.Run("generation failure keeps a raw text preview", func(t *testing.T) {
		result := generationFailureResult("INVOICE #1042", errors.New("model unavailable"))
		if result["error"] != "model unavailable" {
			t.Errorf("error = %v", result["error"])
		}
		if result["raw_text"] != "INVOICE #1042" {
			t.Errorf("raw_text = %v", result["raw_text"])
		}
		if _, ok := result["raw_response"]; ok {
			t.Error("generation failure must not carry raw_response")
		}
	})

	t.Run("parse failure keeps the model reply", func(t *testing.T) {
		result := parseFailureResult("INVOICE #1042", "not json at all")
		if result["error"] != "could not parse structured data" {
			t.Errorf("error = %v", result["error"])
		}
		if result["raw_text"] != "INVOICE #1042" {
			t.Errorf("raw_text = %v", result["raw_text"])
		}
		if result["raw_response"] != "not json at all" {
			t.Errorf("raw_response = %v", result["raw_response"])
		}
	})

	t.Run("raw text preview is bounded", func(t *testing.T) {
		long := strings.Repeat("a", rawTextPreviewLen+200)
		result := generationFailureResult(long, errors.New("boom"))
		preview := result["raw_text"].(string)
		if len(preview) != rawTextPreviewLen {
			t.Errorf("preview length = %d, want %d", len(preview), rawTextPreviewLen)
		}
	})
}

func TestBuildStructuringPrompt(t *testing.T) {
	prompt := buildStructuringPrompt("INVOICE #1042\nTotal: $500")

	if !strings.Contains(prompt, "INVOICE #1042") {
		t.Error("prompt does not contain the raw text")
	}

	for _, field := range []string{
		"vendor_name", "vendor_address", "document_type", "document_number",
		"date", "due_date", "total_amount", "currency", "tax_amount",
		"subtotal", "line_items", "payment_method", "account_number",
	} {
		if !strings.Contains(prompt, field) {
			t.Errorf("prompt is missing field %q", field)
		}
	}

	if !strings.Contains(prompt, "JSON") {
		t.Error("prompt does not ask for JSON output")
	}
}

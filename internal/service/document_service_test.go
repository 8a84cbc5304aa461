package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestUpload_RejectsDeclaredOversizeBeforeWriting(t *testing.T) {
	dir := t.TempDir()
	svc := &DocumentService{
		maxSize:   100,
		uploadDir: dir,
		logger:    zap.NewNop(),
	}

	_, err := svc.Upload(context.Background(), uuid.New(), strings.NewReader("x"), "big.pdf", "application/pdf", 101)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatalf("failed to read upload dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Errorf("oversized upload left %d files on disk", len(entries))
	}
}

func TestUpload_RejectsUnsupportedContentType(t *testing.T) {
	svc := &DocumentService{
		maxSize:   100,
		uploadDir: t.TempDir(),
		logger:    zap.NewNop(),
	}

	_, err := svc.Upload(context.Background(), uuid.New(), strings.NewReader("x"), "notes.txt", "text/plain", 1)
	if !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}
}

func TestExportCSV(t *testing.T) {
	data := map[string]any{
		"vendor_name":  "Acme Corp",
		"total_amount": 1250.5,
		"line_items": []any{
			map[string]any{"description": "Widget", "amount": 1250.5},
		},
		"due_date": nil,
	}

	content, err := exportCSV(data)
	if err != nil {
		t.Fatalf("exportCSV returned error: %v", err)
	}

	reader := csv.NewReader(bytes.NewReader(content))
	rows, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV output: %v", err)
	}

	if len(rows) != len(data)+1 {
		t.Fatalf("expected %d rows (header + fields), got %d", len(data)+1, len(rows))
	}

	if rows[0][0] != "Field" || rows[0][1] != "Value" {
		t.Errorf("unexpected header row: %v", rows[0])
	}

	// Rows follow the header in sorted key order
	wantKeys := []string{"due_date", "line_items", "total_amount", "vendor_name"}
	for i, key := range wantKeys {
		if rows[i+1][0] != key {
			t.Errorf("row %d: expected key %q, got %q", i+1, key, rows[i+1][0])
		}
	}

	byKey := make(map[string]string)
	for _, row := range rows[1:] {
		byKey[row[0]] = row[1]
	}
	if byKey["vendor_name"] != "Acme Corp" {
		t.Errorf("vendor_name = %q", byKey["vendor_name"])
	}
	if byKey["due_date"] != "" {
		t.Errorf("nil value should stringify empty, got %q", byKey["due_date"])
	}
	if byKey["line_items"] != `[{"amount":1250.5,"description":"Widget"}]` {
		t.Errorf("line_items = %q", byKey["line_items"])
	}
}

func TestStringifyValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, ""},
		{"string passes through", "hello", "hello"},
		{"float", 42.5, "42.5"},
		{"int", 7, "7"},
		{"bool", true, "true"},
		{"map as JSON", map[string]any{"a": 1}, `{"a":1}`},
		{"slice as JSON", []any{"x", "y"}, `["x","y"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stringifyValue(tt.value); got != tt.want {
				t.Errorf("stringifyValue(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestMergeExtractedData(t *testing.T) {
	stored := map[string]any{"a": 1, "b": 2}
	update := map[string]any{"b": 3, "c": 4}

	merged := mergeExtractedData(stored, update)

	if merged["a"] != 1 || merged["b"] != 3 || merged["c"] != 4 {
		t.Errorf("unexpected merge result: %v", merged)
	}
	if len(merged) != 3 {
		t.Errorf("expected 3 keys, got %d", len(merged))
	}

	// Inputs are untouched
	if stored["b"] != 2 {
		t.Errorf("merge mutated the stored map: %v", stored)
	}
	if len(update) != 2 {
		t.Errorf("merge mutated the update map: %v", update)
	}
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"docsense/internal/models"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// A PDF whose text layer trims to fewer characters than this is treated
// as scanned and goes through the vision fallback.
const scannedTextThreshold = 50

// rawTextPreviewLen bounds how much raw text a degraded result carries.
const rawTextPreviewLen = 500

const (
	imageTextPrompt = "Extract all text from this image accurately. Return only the text, no descriptions."
	pageTextPrompt  = "Extract all text from this PDF page accurately. Return only the text, no descriptions."
	pdfTextPrompt   = "Extract all text from this PDF document accurately. Return only the text, no descriptions."
)

// ExtractionService turns an uploaded file into a structured mapping.
// Text acquisition is tiered per file type; the structuring step prompts
// the model for a fixed JSON schema. Degraded outcomes (no text, parse
// failure, model error) still return a mapping carrying an "error" key,
// so the caller always has something to persist.
type ExtractionService struct {
	llm    *LLMService
	logger *zap.Logger
}

func NewExtractionService(llm *LLMService, logger *zap.Logger) *ExtractionService {
	return &ExtractionService{
		llm:    llm,
		logger: logger,
	}
}

// ExtractStructuredData runs the full pipeline. A non-nil error means the
// file itself was unusable; everything past that point degrades into the
// returned mapping instead of failing.
func (s *ExtractionService) ExtractStructuredData(ctx context.Context, filePath string, fileType models.DocumentType) (map[string]any, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}

	var rawText string
	if fileType == models.DocumentTypeImage {
		text, err := s.extractTextFromImage(ctx, filePath)
		if err != nil {
			s.logger.Warn("Image text extraction failed", zap.String("file", filePath), zap.Error(err))
		} else {
			rawText = text
		}
	} else {
		rawText = s.extractTextFromPDF(ctx, filePath)
	}

	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		s.logger.Warn("No text extracted from document", zap.String("file", filePath))
		return noTextResult(), nil
	}

	return s.structure(ctx, rawText), nil
}

// extractTextFromImage sends the image through the vision model and
// trusts its raw output.
func (s *ExtractionService) extractTextFromImage(ctx context.Context, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	fileID, err := s.llm.UploadFile(ctx, file, filepath.Base(filePath))
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	return s.llm.GenerateWithFile(ctx, fileID, imageTextPrompt)
}

// extractTextFromPDF tries the native text layer first, then rasterizes
// pages for the vision model, then ships the raw PDF for native
// ingestion. Each tier runs only when the previous one produced nothing
// usable, and tier failures degrade to empty text rather than aborting.
func (s *ExtractionService) extractTextFromPDF(ctx context.Context, filePath string) string {
	doc, err := fitz.New(filePath)
	if err != nil {
		s.logger.Warn("Failed to open PDF, trying native ingestion", zap.String("file", filePath), zap.Error(err))
		return s.extractTextFromPDFNative(ctx, filePath)
	}
	defer doc.Close()

	var builder strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			s.logger.Warn("Failed to read text layer of page",
				zap.Int("page", i+1),
				zap.String("file", filePath),
				zap.Error(err),
			)
			continue
		}
		builder.WriteString(pageText)
		builder.WriteString("\n")
	}

	text := strings.TrimSpace(builder.String())
	if !isLikelyScanned(text) {
		s.logger.Info("PDF text layer extracted",
			zap.String("file", filePath),
			zap.Int("pages", doc.NumPage()),
			zap.Int("text_length", len(text)),
		)
		return text
	}

	s.logger.Info("PDF appears to be scanned, rasterizing pages for vision extraction",
		zap.String("file", filePath),
		zap.Int("text_length", len(text)),
	)

	if visionText := s.visionPDFPages(ctx, doc, filePath); strings.TrimSpace(visionText) != "" {
		return visionText
	}

	return s.extractTextFromPDFNative(ctx, filePath)
}

// visionPDFPages rasterizes every page and runs each image through the
// vision model. Pages that fail are skipped; the survivors are joined
// with a blank line.
func (s *ExtractionService) visionPDFPages(ctx context.Context, doc *fitz.Document, filePath string) string {
	var pages []string
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.Image(i)
		if err != nil {
			s.logger.Warn("Failed to rasterize page", zap.Int("page", i+1), zap.Error(err))
			continue
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			s.logger.Warn("Failed to encode page image", zap.Int("page", i+1), zap.Error(err))
			continue
		}

		fileID, err := s.llm.UploadFile(ctx, &buf, fmt.Sprintf("page-%d.png", i+1))
		if err != nil {
			s.logger.Warn("Failed to upload page image", zap.Int("page", i+1), zap.Error(err))
			continue
		}

		pageText, err := s.llm.GenerateWithFile(ctx, fileID, pageTextPrompt)
		if err != nil {
			s.logger.Warn("Vision extraction failed for page", zap.Int("page", i+1), zap.Error(err))
			continue
		}
		pages = append(pages, pageText)
	}

	text := strings.Join(pages, "\n\n")
	s.logger.Info("Scanned PDF extracted via vision",
		zap.String("file", filePath),
		zap.Int("pages", len(pages)),
		zap.Int("text_length", len(text)),
	)
	return text
}

// extractTextFromPDFNative uploads the raw PDF bytes for the model's own
// document ingestion. Last tier; failure means no text.
func (s *ExtractionService) extractTextFromPDFNative(ctx context.Context, filePath string) string {
	file, err := os.Open(filePath)
	if err != nil {
		s.logger.Warn("Failed to open PDF for native ingestion", zap.String("file", filePath), zap.Error(err))
		return ""
	}
	defer file.Close()

	fileID, err := s.llm.UploadFile(ctx, file, filepath.Base(filePath))
	if err != nil {
		s.logger.Warn("Failed to upload PDF for native ingestion", zap.String("file", filePath), zap.Error(err))
		return ""
	}

	text, err := s.llm.GenerateWithFile(ctx, fileID, pdfTextPrompt)
	if err != nil {
		s.logger.Warn("Native PDF ingestion failed", zap.String("file", filePath), zap.Error(err))
		return ""
	}
	return text
}

// structure prompts the model for the fixed field schema and parses the
// reply. Parse and model failures produce a degraded mapping instead of
// an error.
func (s *ExtractionService) structure(ctx context.Context, rawText string) map[string]any {
	reply, err := s.llm.Generate(ctx, buildStructuringPrompt(rawText))
	if err != nil {
		s.logger.Warn("Structuring request failed", zap.Error(err))
		return generationFailureResult(rawText, err)
	}

	cleaned := stripCodeFence(reply)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		s.logger.Warn("Failed to parse structured response", zap.Error(err))
		return parseFailureResult(rawText, reply)
	}

	s.logger.Info("Structured data extracted", zap.Int("fields", len(data)))
	return data
}

// The degraded mappings below are what gets persisted when a stage of
// the pipeline fails without the file itself being unusable. They all
// carry an "error" key so clients can tell them from real extractions.

func noTextResult() map[string]any {
	return map[string]any{"error": "could not extract text from document"}
}

func generationFailureResult(rawText string, err error) map[string]any {
	return map[string]any{
		"error":    err.Error(),
		"raw_text": truncateText(rawText, rawTextPreviewLen),
	}
}

func parseFailureResult(rawText, reply string) map[string]any {
	return map[string]any{
		"raw_text":     truncateText(rawText, rawTextPreviewLen),
		"error":        "could not parse structured data",
		"raw_response": reply,
	}
}

func buildStructuringPrompt(rawText string) string {
	return fmt.Sprintf(`Analyze the following document text and extract structured data in JSON format.

Expected fields for utility bills/receipts:
- vendor_name: Name of the vendor/company
- vendor_address: Address of the vendor
- document_type: Type of document (bill, receipt, invoice, etc.)
- document_number: Document/Invoice number
- date: Date on the document
- due_date: Due date (if applicable)
- total_amount: Total amount
- currency: Currency code (USD, EUR, etc.)
- tax_amount: Tax amount
- subtotal: Subtotal before tax
- line_items: List of line items with description and amount
- payment_method: Payment method (if mentioned)
- account_number: Account number (if applicable)

Extract as many fields as possible. If a field is not found, use null.
Return ONLY valid JSON, no additional text.

Document text:
%s`, rawText)
}

// isLikelyScanned reports whether a PDF text layer is too thin to trust.
// Strictly below the threshold: 49 characters trigger the fallback,
// 50 do not.
func isLikelyScanned(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) < scannedTextThreshold
}

// stripCodeFence unwraps a ```json or bare ``` fenced block if the model
// added one around its reply.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)

	marker := "```json"
	idx := strings.Index(s, marker)
	if idx == -1 {
		marker = "```"
		idx = strings.Index(s, marker)
	}
	if idx == -1 {
		return s
	}

	s = s[idx+len(marker):]
	if end := strings.Index(s, "```"); end != -1 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

func truncateText(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

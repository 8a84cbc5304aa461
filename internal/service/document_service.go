package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"docsense/internal/dto"
	"docsense/internal/models"
	"docsense/internal/repository"
	"docsense/internal/task"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrDocumentNotFound      = errors.New("document not found")
	ErrExtractedDataNotFound = errors.New("extracted data not found")
	ErrUnsupportedFileType   = errors.New("unsupported file type")
	ErrFileTooLarge          = errors.New("file too large")
	ErrInvalidExportFormat   = errors.New("invalid export format")
)

// allowedContentTypes maps accepted upload content types to the stored
// document type.
var allowedContentTypes = map[string]models.DocumentType{
	"image/jpeg":      models.DocumentTypeImage,
	"image/jpg":       models.DocumentTypeImage,
	"image/png":       models.DocumentTypeImage,
	"application/pdf": models.DocumentTypePDF,
}

type DocumentService struct {
	docRepo   *repository.DocumentRepository
	dataRepo  *repository.ExtractedDataRepository
	extractor *ExtractionService
	pool      *task.Pool
	uploadDir string
	maxSize   int64
	logger    *zap.Logger
}

func NewDocumentService(
	docRepo *repository.DocumentRepository,
	dataRepo *repository.ExtractedDataRepository,
	extractor *ExtractionService,
	pool *task.Pool,
	uploadDir string,
	maxSize int64,
	logger *zap.Logger,
) *DocumentService {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		logger.Warn("Failed to create upload directory", zap.Error(err))
	}

	return &DocumentService{
		docRepo:   docRepo,
		dataRepo:  dataRepo,
		extractor: extractor,
		pool:      pool,
		uploadDir: uploadDir,
		maxSize:   maxSize,
		logger:    logger,
	}
}

// Upload stores the file, creates the document record with status
// pending and hands processing to the worker pool. The HTTP response
// goes out before extraction starts. declaredSize is the size reported
// by the multipart header, checked up front so an oversized upload is
// rejected before anything is written to disk.
func (s *DocumentService) Upload(ctx context.Context, userID uuid.UUID, file io.Reader, filename, contentType string, declaredSize int64) (*dto.DocumentResponse, error) {
	fileType, ok := allowedContentTypes[contentType]
	if !ok {
		return nil, ErrUnsupportedFileType
	}
	if s.maxSize > 0 && declaredSize > s.maxSize {
		return nil, ErrFileTooLarge
	}

	fileID := uuid.New()
	storedName := fileID.String() + filepath.Ext(filename)
	filePath := filepath.Join(s.uploadDir, storedName)

	dst, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	fileSize, err := io.Copy(dst, file)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	// The multipart header size is client-supplied; re-check the bytes
	// actually written.
	if s.maxSize > 0 && fileSize > s.maxSize {
		os.Remove(filePath)
		return nil, ErrFileTooLarge
	}

	now := time.Now()
	doc := &models.Document{
		ID:        fileID,
		UserID:    userID,
		Filename:  filename,
		FilePath:  "/uploads/" + storedName,
		FileType:  fileType,
		FileSize:  fileSize,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	if err := s.pool.Submit(task.Job{
		Name: "process-document " + doc.ID.String(),
		Run: func(jobCtx context.Context) error {
			return s.process(jobCtx, doc.ID, filePath, fileType)
		},
	}); err != nil {
		s.logger.Error("Failed to submit processing job", zap.String("document_id", doc.ID.String()), zap.Error(err))
		if serr := s.docRepo.UpdateStatus(ctx, doc.ID, models.StatusFailed); serr != nil {
			s.logger.Error("Failed to mark document failed", zap.Error(serr))
		}
	}

	return documentResponse(doc), nil
}

// process runs the pipeline for one upload on its own context. Errors
// never reach the client; they surface only through the status field and
// the logs.
func (s *DocumentService) process(ctx context.Context, documentID uuid.UUID, filePath string, fileType models.DocumentType) error {
	// Status and result writes use a detached context so a job timeout
	// during extraction cannot strand the document in processing.
	dbCtx := context.WithoutCancel(ctx)

	if err := s.docRepo.UpdateStatus(dbCtx, documentID, models.StatusProcessing); err != nil {
		return fmt.Errorf("failed to mark document processing: %w", err)
	}

	result, err := s.extractor.ExtractStructuredData(ctx, filePath, fileType)
	if err != nil {
		s.markFailed(dbCtx, documentID)
		return fmt.Errorf("extraction failed for document %s: %w", documentID, err)
	}

	now := time.Now()
	data := &models.ExtractedData{
		ID:               uuid.New(),
		DocumentID:       documentID,
		Data:             sanitizeData(result),
		Coordinates:      map[string]any{},
		ConfidenceScores: map[string]any{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.dataRepo.Create(dbCtx, data); err != nil {
		s.markFailed(dbCtx, documentID)
		return fmt.Errorf("failed to save extracted data for document %s: %w", documentID, err)
	}

	if err := s.docRepo.UpdateStatus(dbCtx, documentID, models.StatusProcessed); err != nil {
		return fmt.Errorf("failed to mark document processed: %w", err)
	}

	s.logger.Info("Document processed", zap.String("document_id", documentID.String()))
	return nil
}

func (s *DocumentService) markFailed(ctx context.Context, documentID uuid.UUID) {
	if err := s.docRepo.UpdateStatus(ctx, documentID, models.StatusFailed); err != nil {
		s.logger.Error("Failed to mark document failed",
			zap.String("document_id", documentID.String()),
			zap.Error(err),
		)
	}
}

func (s *DocumentService) List(ctx context.Context, userID uuid.UUID) ([]*dto.DocumentResponse, error) {
	docs, err := s.docRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.DocumentResponse, len(docs))
	for i, doc := range docs {
		responses[i] = documentResponse(doc)
	}
	return responses, nil
}

func (s *DocumentService) Get(ctx context.Context, userID, documentID uuid.UUID) (*dto.DocumentResponse, error) {
	doc, err := s.docRepo.GetByIDAndUser(ctx, documentID, userID)
	if err != nil {
		return nil, ErrDocumentNotFound
	}
	return documentResponse(doc), nil
}

func (s *DocumentService) GetExtractedData(ctx context.Context, userID, documentID uuid.UUID) (map[string]any, error) {
	if _, err := s.docRepo.GetByIDAndUser(ctx, documentID, userID); err != nil {
		return nil, ErrDocumentNotFound
	}

	data, err := s.dataRepo.GetByDocumentID(ctx, documentID)
	if err != nil {
		return nil, ErrExtractedDataNotFound
	}
	return data.Data, nil
}

// UpdateExtractedData shallow-merges the update into the stored mapping:
// top-level keys present in the update fully replace prior values.
func (s *DocumentService) UpdateExtractedData(ctx context.Context, userID, documentID uuid.UUID, update map[string]any) (map[string]any, error) {
	if _, err := s.docRepo.GetByIDAndUser(ctx, documentID, userID); err != nil {
		return nil, ErrDocumentNotFound
	}

	data, err := s.dataRepo.GetByDocumentID(ctx, documentID)
	if err != nil {
		return nil, ErrExtractedDataNotFound
	}

	merged := mergeExtractedData(data.Data, update)
	if err := s.dataRepo.UpdateData(ctx, documentID, merged); err != nil {
		return nil, fmt.Errorf("failed to update extracted data: %w", err)
	}
	return merged, nil
}

// Delete removes the backing file and the document row; extracted data
// and chat messages cascade with the row.
func (s *DocumentService) Delete(ctx context.Context, userID, documentID uuid.UUID) error {
	doc, err := s.docRepo.GetByIDAndUser(ctx, documentID, userID)
	if err != nil {
		return ErrDocumentNotFound
	}

	filePath := filepath.Join(s.uploadDir, filepath.Base(doc.FilePath))
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove stored file", zap.String("path", filePath), zap.Error(err))
	}

	return s.docRepo.Delete(ctx, documentID)
}

// Export renders the stored mapping as pretty-printed JSON or a
// two-column Field,Value CSV.
func (s *DocumentService) Export(ctx context.Context, userID, documentID uuid.UUID, format string) ([]byte, string, string, error) {
	if format != "json" && format != "csv" {
		return nil, "", "", ErrInvalidExportFormat
	}

	data, err := s.GetExtractedData(ctx, userID, documentID)
	if err != nil {
		return nil, "", "", err
	}

	filename := fmt.Sprintf("extracted_data_%s.%s", documentID, format)

	if format == "json" {
		content, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, "", "", fmt.Errorf("failed to marshal extracted data: %w", err)
		}
		return content, filename, "application/json", nil
	}

	content, err := exportCSV(data)
	if err != nil {
		return nil, "", "", err
	}
	return content, filename, "text/csv", nil
}

// exportCSV writes a Field,Value header and one row per top-level key in
// sorted order. Nested structures are stringified as-is, not flattened.
func exportCSV(data map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Field", "Value"}); err != nil {
		return nil, err
	}
	for _, key := range keys {
		if err := writer.Write([]string{key, stringifyValue(data[key])}); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func stringifyValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// mergeExtractedData returns a new mapping with update's top-level keys
// replacing stored's.
func mergeExtractedData(stored, update map[string]any) map[string]any {
	merged := make(map[string]any, len(stored)+len(update))
	for key, value := range stored {
		merged[key] = value
	}
	for key, value := range update {
		merged[key] = value
	}
	return merged
}

func documentResponse(doc *models.Document) *dto.DocumentResponse {
	return &dto.DocumentResponse{
		ID:        doc.ID.String(),
		Filename:  doc.Filename,
		FilePath:  doc.FilePath,
		FileType:  string(doc.FileType),
		FileSize:  doc.FileSize,
		Status:    string(doc.Status),
		CreatedAt: doc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: doc.UpdatedAt.Format(time.RFC3339),
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
)

type DocumentType string

const (
	DocumentTypeImage DocumentType = "image"
	DocumentTypePDF   DocumentType = "pdf"
)

type DocumentStatus string

// Status moves forward only: pending -> processing -> processed | failed.
// A failed document stays failed until it is deleted.
const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusProcessed  DocumentStatus = "processed"
	StatusFailed     DocumentStatus = "failed"
)

type Document struct {
	ID        uuid.UUID      `db:"id"`
	UserID    uuid.UUID      `db:"user_id"`
	Filename  string         `db:"filename"`
	FilePath  string         `db:"file_path"`
	FileType  DocumentType   `db:"file_type"`
	FileSize  int64          `db:"file_size"`
	Status    DocumentStatus `db:"status"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// ExtractedData holds the structured mapping derived from one document.
// Coordinates and ConfidenceScores exist in the schema but the pipeline
// writes them as empty objects; nothing populates them yet.
type ExtractedData struct {
	ID               uuid.UUID      `db:"id"`
	DocumentID       uuid.UUID      `db:"document_id"`
	Data             map[string]any `db:"data"`
	Coordinates      map[string]any `db:"coordinates"`
	ConfidenceScores map[string]any `db:"confidence_scores"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

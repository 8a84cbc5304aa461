package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"docsense/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ExtractedDataRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewExtractedDataRepository(db *pgxpool.Pool, logger *zap.Logger) *ExtractedDataRepository {
	return &ExtractedDataRepository{
		db:     db,
		logger: logger,
	}
}

// The JSON columns are marshalled explicitly rather than handed to the
// driver as maps, so a broken value fails here instead of inside pgx.
func (r *ExtractedDataRepository) Create(ctx context.Context, data *models.ExtractedData) error {
	dataJSON, err := json.Marshal(data.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal extracted data: %w", err)
	}
	coordsJSON, err := json.Marshal(data.Coordinates)
	if err != nil {
		return fmt.Errorf("failed to marshal coordinates: %w", err)
	}
	scoresJSON, err := json.Marshal(data.ConfidenceScores)
	if err != nil {
		return fmt.Errorf("failed to marshal confidence scores: %w", err)
	}

	query := squirrel.Insert("extracted_data").
		Columns("id", "document_id", "data", "coordinates", "confidence_scores", "created_at", "updated_at").
		Values(data.ID, data.DocumentID, dataJSON, coordsJSON, scoresJSON, data.CreatedAt, data.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ExtractedDataRepository) GetByDocumentID(ctx context.Context, documentID uuid.UUID) (*models.ExtractedData, error) {
	query := squirrel.Select("id", "document_id", "data", "coordinates", "confidence_scores", "created_at", "updated_at").
		From("extracted_data").
		Where(squirrel.Eq{"document_id": documentID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var (
		data       models.ExtractedData
		dataJSON   []byte
		coordsJSON []byte
		scoresJSON []byte
	)
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&data.ID, &data.DocumentID, &dataJSON, &coordsJSON, &scoresJSON, &data.CreatedAt, &data.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(dataJSON, &data.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal extracted data: %w", err)
	}
	if len(coordsJSON) > 0 {
		if err := json.Unmarshal(coordsJSON, &data.Coordinates); err != nil {
			return nil, fmt.Errorf("failed to unmarshal coordinates: %w", err)
		}
	}
	if len(scoresJSON) > 0 {
		if err := json.Unmarshal(scoresJSON, &data.ConfidenceScores); err != nil {
			return nil, fmt.Errorf("failed to unmarshal confidence scores: %w", err)
		}
	}

	return &data, nil
}

func (r *ExtractedDataRepository) UpdateData(ctx context.Context, documentID uuid.UUID, data map[string]any) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal extracted data: %w", err)
	}

	query := squirrel.Update("extracted_data").
		Set("data", dataJSON).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"document_id": documentID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

package repository

import (
	"context"

	"docsense/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var chatColumns = []string{
	"id", "user_id", "document_id", "message", "response", "sender", "created_at",
}

type ChatRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewChatRepository(db *pgxpool.Pool, logger *zap.Logger) *ChatRepository {
	return &ChatRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ChatRepository) Create(ctx context.Context, msg *models.ChatMessage) error {
	query := squirrel.Insert("chat_messages").
		Columns(chatColumns...).
		Values(msg.ID, msg.UserID, msg.DocumentID, msg.Message, msg.Response, msg.Sender, msg.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// ListByDocument returns all messages for a document in chronological order.
func (r *ChatRepository) ListByDocument(ctx context.Context, documentID, userID uuid.UUID) ([]*models.ChatMessage, error) {
	query := squirrel.Select(chatColumns...).
		From("chat_messages").
		Where(squirrel.Eq{"document_id": documentID, "user_id": userID}).
		OrderBy("created_at ASC").
		PlaceholderFormat(squirrel.Dollar)

	return r.list(ctx, query)
}

// ListRecent returns the most recent messages, newest first.
func (r *ChatRepository) ListRecent(ctx context.Context, documentID, userID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	query := squirrel.Select(chatColumns...).
		From("chat_messages").
		Where(squirrel.Eq{"document_id": documentID, "user_id": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)

	return r.list(ctx, query)
}

func (r *ChatRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]*models.ChatMessage, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(
			&msg.ID, &msg.UserID, &msg.DocumentID, &msg.Message, &msg.Response, &msg.Sender, &msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

func (r *ChatRepository) DeleteByDocument(ctx context.Context, documentID, userID uuid.UUID) error {
	query := squirrel.Delete("chat_messages").
		Where(squirrel.Eq{"document_id": documentID, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// ChatMessage stores one half of a chat turn: the user row carries the
// question with an empty response, the ai row carries the answer with an
// empty message. History is ordered by creation time.
type ChatMessage struct {
	ID         uuid.UUID `db:"id"`
	UserID     uuid.UUID `db:"user_id"`
	DocumentID uuid.UUID `db:"document_id"`
	Message    string    `db:"message"`
	Response   string    `db:"response"`
	Sender     string    `db:"sender"`
	CreatedAt  time.Time `db:"created_at"`
}

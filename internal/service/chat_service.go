package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"docsense/internal/dto"
	"docsense/internal/models"
	"docsense/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// historyTurnWindow is how many prior question/answer pairs the chat
// prompt carries as context.
const historyTurnWindow = 5

const chatErrorReply = "I apologize, but I encountered an error processing your question. Please try again."

type ChatService struct {
	llm      *LLMService
	chatRepo *repository.ChatRepository
	dataRepo *repository.ExtractedDataRepository
	docRepo  *repository.DocumentRepository
	logger   *zap.Logger
}

func NewChatService(
	llm *LLMService,
	chatRepo *repository.ChatRepository,
	dataRepo *repository.ExtractedDataRepository,
	docRepo *repository.DocumentRepository,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		llm:      llm,
		chatRepo: chatRepo,
		dataRepo: dataRepo,
		docRepo:  docRepo,
		logger:   logger,
	}
}

// chatTurn is one reconstructed question/answer pair.
type chatTurn struct {
	Question string
	Answer   string
}

// SendMessage answers a question about one document's extracted data and
// stores the exchange as a user row and an ai row.
func (s *ChatService) SendMessage(ctx context.Context, userID, documentID uuid.UUID, message string) (*dto.ChatResponse, error) {
	if _, err := s.docRepo.GetByIDAndUser(ctx, documentID, userID); err != nil {
		return nil, ErrDocumentNotFound
	}

	data, err := s.dataRepo.GetByDocumentID(ctx, documentID)
	if err != nil {
		return nil, ErrExtractedDataNotFound
	}

	recent, err := s.chatRepo.ListRecent(ctx, documentID, userID, historyTurnWindow*2)
	if err != nil {
		s.logger.Warn("Failed to load chat history", zap.Error(err))
	}
	turns := pairTurns(reverseMessages(recent))

	answer := s.answer(ctx, message, data.Data, turns)

	now := time.Now()
	userMsg := &models.ChatMessage{
		ID:         uuid.New(),
		UserID:     userID,
		DocumentID: documentID,
		Message:    message,
		Sender:     models.SenderUser,
		CreatedAt:  now,
	}
	aiMsg := &models.ChatMessage{
		ID:         uuid.New(),
		UserID:     userID,
		DocumentID: documentID,
		Response:   sanitizeUTF8(answer),
		Sender:     models.SenderAI,
		// keep the ai row after the user row when ordering by timestamp
		CreatedAt: now.Add(time.Millisecond),
	}

	if err := s.chatRepo.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}
	if err := s.chatRepo.Create(ctx, aiMsg); err != nil {
		return nil, fmt.Errorf("failed to save ai message: %w", err)
	}

	return &dto.ChatResponse{
		Response:  answer,
		MessageID: aiMsg.ID.String(),
	}, nil
}

// answer builds a single prompt from the extracted data, the recent
// turns and the question. Model failures collapse to a fixed apology
// string rather than an error.
func (s *ChatService) answer(ctx context.Context, question string, data map[string]any, turns []chatTurn) string {
	prompt := buildChatPrompt(data, lastTurns(turns, historyTurnWindow), question)

	reply, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("Chat generation failed", zap.Error(err))
		return chatErrorReply
	}
	return reply
}

// History returns the chronological exchange for a document,
// reconstructed from the paired user/ai rows.
func (s *ChatService) History(ctx context.Context, userID, documentID uuid.UUID) ([]dto.ChatHistoryEntry, error) {
	if _, err := s.docRepo.GetByIDAndUser(ctx, documentID, userID); err != nil {
		return nil, ErrDocumentNotFound
	}

	messages, err := s.chatRepo.ListByDocument(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}

	return historyEntries(messages), nil
}

func (s *ChatService) ClearHistory(ctx context.Context, userID, documentID uuid.UUID) error {
	if _, err := s.docRepo.GetByIDAndUser(ctx, documentID, userID); err != nil {
		return ErrDocumentNotFound
	}

	return s.chatRepo.DeleteByDocument(ctx, documentID, userID)
}

func buildChatPrompt(data map[string]any, turns []chatTurn, question string) string {
	dataContext, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		dataContext = []byte("{}")
	}

	var builder strings.Builder
	builder.WriteString("You are a helpful AI assistant specialized in analyzing document data.\n")
	builder.WriteString("You have access to the following extracted data from a document:\n\n")
	builder.Write(dataContext)
	builder.WriteString("\n")

	if len(turns) > 0 {
		builder.WriteString("\nPrevious conversation:\n")
		for _, turn := range turns {
			builder.WriteString("User: " + turn.Question + "\n")
			builder.WriteString("Assistant: " + turn.Answer + "\n")
		}
	}

	builder.WriteString("\nAnswer the user's question based on this data. Be concise and accurate.\n")
	builder.WriteString("If the information is not available in the data, politely say so.\n")
	builder.WriteString("\nUser Question: " + question)

	return builder.String()
}

// pairTurns folds the two-row storage back into question/answer pairs.
// Rows must be in chronological order.
func pairTurns(messages []*models.ChatMessage) []chatTurn {
	var turns []chatTurn
	for _, msg := range messages {
		switch {
		case msg.Sender == models.SenderUser && msg.Message != "":
			turns = append(turns, chatTurn{Question: msg.Message})
		case msg.Sender == models.SenderAI && msg.Response != "":
			if n := len(turns); n > 0 && turns[n-1].Answer == "" {
				turns[n-1].Answer = msg.Response
			} else {
				turns = append(turns, chatTurn{Answer: msg.Response})
			}
		}
	}
	return turns
}

func lastTurns(turns []chatTurn, n int) []chatTurn {
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

func historyEntries(messages []*models.ChatMessage) []dto.ChatHistoryEntry {
	entries := make([]dto.ChatHistoryEntry, 0, len(messages))
	for _, msg := range messages {
		var text string
		switch {
		case msg.Sender == models.SenderUser && msg.Message != "":
			text = msg.Message
		case msg.Sender == models.SenderAI && msg.Response != "":
			text = msg.Response
		default:
			continue
		}
		entries = append(entries, dto.ChatHistoryEntry{
			ID:        msg.ID.String(),
			Text:      text,
			Sender:    msg.Sender,
			Timestamp: msg.CreatedAt.Format(time.RFC3339),
		})
	}
	return entries
}

func reverseMessages(messages []*models.ChatMessage) []*models.ChatMessage {
	out := make([]*models.ChatMessage, len(messages))
	for i, msg := range messages {
		out[len(messages)-1-i] = msg
	}
	return out
}

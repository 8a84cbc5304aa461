package handlers

import (
	"errors"

	"docsense/internal/dto"
	"docsense/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChatHandler struct {
	chatService *service.ChatService
	logger      *zap.Logger
}

func NewChatHandler(chatService *service.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// SendMessage godoc
// @Summary Ask a question about a document
// @Description Answer a question using the document's extracted data and recent conversation
// @Tags chat
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body dto.ChatRequest true "Chat request"
// @Success 200 {object} dto.ChatResponse
// @Failure 404 {object} map[string]string
// @Router /api/chat/message [post]
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}

	documentID, err := uuid.Parse(req.DocumentID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID",
		})
	}

	resp, err := h.chatService.SendMessage(c.Context(), userID, documentID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDocumentNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Document not found",
			})
		case errors.Is(err, service.ErrExtractedDataNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No extracted data available for this document",
			})
		}
		h.logger.Error("Chat message failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}

	return c.JSON(resp)
}

// History godoc
// @Summary Get chat history
// @Description Get the chronological conversation for a document
// @Tags chat
// @Produce json
// @Security Bearer
// @Param document_id path string true "Document ID"
// @Success 200 {array} dto.ChatHistoryEntry
// @Failure 404 {object} map[string]string
// @Router /api/chat/history/{document_id} [get]
func (h *ChatHandler) History(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	documentID, err := uuid.Parse(c.Params("document_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID",
		})
	}

	entries, err := h.chatService.History(c.Context(), userID, documentID)
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Document not found",
			})
		}
		h.logger.Error("Failed to load chat history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load chat history",
		})
	}

	return c.JSON(entries)
}

// ClearHistory godoc
// @Summary Clear chat history
// @Description Delete the conversation for a document
// @Tags chat
// @Produce json
// @Security Bearer
// @Param document_id path string true "Document ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/chat/history/{document_id} [delete]
func (h *ChatHandler) ClearHistory(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	documentID, err := uuid.Parse(c.Params("document_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID",
		})
	}

	if err := h.chatService.ClearHistory(c.Context(), userID, documentID); err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Document not found",
			})
		}
		h.logger.Error("Failed to clear chat history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to clear chat history",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Chat history cleared",
	})
}

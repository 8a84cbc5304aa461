package handlers

import (
	"errors"

	"docsense/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DocumentHandler struct {
	documentService *service.DocumentService
	logger          *zap.Logger
}

func NewDocumentHandler(documentService *service.DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		logger:          logger,
	}
}

// Upload godoc
// @Summary Upload a document
// @Description Upload an image or PDF for background data extraction
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Security Bearer
// @Param file formData file true "Document file (JPEG, PNG or PDF)"
// @Success 201 {object} dto.DocumentResponse
// @Failure 400 {object} map[string]string
// @Failure 413 {object} map[string]string
// @Router /api/documents/upload [post]
func (h *DocumentHandler) Upload(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file provided",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to read file",
		})
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")

	resp, err := h.documentService.Upload(c.Context(), userID, file, fileHeader.Filename, contentType, fileHeader.Size)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedFileType):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "File type not allowed. Allowed types: image/jpeg, image/png, application/pdf",
			})
		case errors.Is(err, service.ErrFileTooLarge):
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
				"error": "File exceeds the maximum allowed size",
			})
		}
		h.logger.Error("Upload failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to upload document",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// List godoc
// @Summary List documents
// @Description List the current user's documents, newest first
// @Tags documents
// @Produce json
// @Security Bearer
// @Success 200 {array} dto.DocumentResponse
// @Router /api/documents [get]
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	docs, err := h.documentService.List(c.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list documents", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list documents",
		})
	}

	return c.JSON(docs)
}

// Get godoc
// @Summary Get a document
// @Description Get one document's metadata including processing status
// @Tags documents
// @Produce json
// @Security Bearer
// @Param id path string true "Document ID"
// @Success 200 {object} dto.DocumentResponse
// @Failure 404 {object} map[string]string
// @Router /api/documents/{id} [get]
func (h *DocumentHandler) Get(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	documentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID",
		})
	}

	doc, err := h.documentService.Get(c.Context(), userID, documentID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document not found",
		})
	}

	return c.JSON(doc)
}

// GetExtractedData godoc
// @Summary Get extracted data
// @Description Get the structured data extracted from a processed document
// @Tags documents
// @Produce json
// @Security Bearer
// @Param id path string true "Document ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/documents/{id}/extracted-data [get]
func (h *DocumentHandler) GetExtractedData(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	documentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID",
		})
	}

	data, err := h.documentService.GetExtractedData(c.Context(), userID, documentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDocumentNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Document not found",
			})
		case errors.Is(err, service.ErrExtractedDataNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Extracted data not found",
			})
		}
		h.logger.Error("Failed to get extracted data", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get extracted data",
		})
	}

	return c.JSON(data)
}

// UpdateExtractedData godoc
// @Summary Update extracted data
// @Description Merge corrections into the extracted data for a document
// @Tags documents
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Document ID"
// @Param request body map[string]interface{} true "Fields to update"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/documents/{id}/extracted-data [put]
func (h *DocumentHandler) UpdateExtractedData(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	documentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID",
		})
	}

	var update map[string]any
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	merged, err := h.documentService.UpdateExtractedData(c.Context(), userID, documentID, update)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDocumentNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Document not found",
			})
		case errors.Is(err, service.ErrExtractedDataNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Extracted data not found",
			})
		}
		h.logger.Error("Failed to update extracted data", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update extracted data",
		})
	}

	return c.JSON(merged)
}

// Delete godoc
// @Summary Delete a document
// @Description Delete a document, its stored file, extracted data and chat history
// @Tags documents
// @Produce json
// @Security Bearer
// @Param id path string true "Document ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/documents/{id} [delete]
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	documentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID",
		})
	}

	if err := h.documentService.Delete(c.Context(), userID, documentID); err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Document not found",
			})
		}
		h.logger.Error("Failed to delete document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete document",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Document deleted",
	})
}

// Export godoc
// @Summary Export extracted data
// @Description Download the extracted data as a JSON or CSV file
// @Tags documents
// @Produce json
// @Security Bearer
// @Param id path string true "Document ID"
// @Param format path string true "Export format" Enums(json, csv)
// @Success 200 {file} file
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/documents/{id}/export/{format} [get]
func (h *DocumentHandler) Export(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	documentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID",
		})
	}

	content, filename, contentType, err := h.documentService.Export(c.Context(), userID, documentID, c.Params("format"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidExportFormat):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Format must be json or csv",
			})
		case errors.Is(err, service.ErrDocumentNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Document not found",
			})
		case errors.Is(err, service.ErrExtractedDataNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Extracted data not found",
			})
		}
		h.logger.Error("Export failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to export extracted data",
		})
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(content)
}

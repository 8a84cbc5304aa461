package dto

type ChatRequest struct {
	DocumentID string `json:"document_id" validate:"required"`
	Message    string `json:"message" validate:"required"`
}

type ChatResponse struct {
	Response  string `json:"response"`
	MessageID string `json:"message_id"`
}

type ChatHistoryEntry struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
}

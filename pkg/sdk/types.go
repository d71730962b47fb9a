package moneyez

import "time"

// ChatMessage is one inbound chat turn.
type ChatMessage struct {
	UserID         string
	ConversationID string
	Message        string
	// History carries previous turns for threads this service has not
	// seen yet (the agent keeps its own per-conversation memory).
	History []HistoryMessage
}

// HistoryMessage is a previous turn as the MoneyEZ backend stores it.
// Role is USER, BOT, ASSISTANT or SYSTEM.
type HistoryMessage struct {
	ConversationID string `json:"ConversationId"`
	Content        string `json:"Content"`
	Role           string `json:"Role"`
	Timestamp      string `json:"Timestamp"`
}

// DocumentInfo describes an uploaded knowledge base document.
type DocumentInfo struct {
	ID          string    `json:"document_id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	ContentType string    `json:"content_type"`
}

// DocumentSummary is one entry of the document list.
type DocumentSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	CreatedDate time.Time `json:"createdDate"`
	ContentType string    `json:"contentType"`
}

// Conversation is a chat thread registration.
type Conversation struct {
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// QAPair is one questionnaire answer used for spending model suggestions.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SpendingModel identifies a budgeting model from the MoneyEZ catalog.
type SpendingModel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Suggestion is a spending model recommendation.
type Suggestion struct {
	RecommendedModel  SpendingModel   `json:"recommendedModel"`
	AlternativeModels []SpendingModel `json:"alternativeModels"`
	Reasoning         string          `json:"reasoning"`
}

// HealthStatus represents the aggregated service health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component -> "ok"/"error"
}

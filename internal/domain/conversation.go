package domain

import "time"

// Conversation is a chat thread registered through the conversations API.
type Conversation struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

package models

import (
	"encoding/json"
	"time"
)

// ChatMessage is a single immutable line of a conversation
type ChatMessage struct {
	ID             string          `json:"id" db:"id"`
	ConversationID string          `json:"conversationId" db:"conversation_id"`
	UserID         string          `json:"userId" db:"user_id"`
	Message        string          `json:"message" db:"message"`
	IsUser         bool            `json:"isUser" db:"is_user"`
	Metadata       json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
}

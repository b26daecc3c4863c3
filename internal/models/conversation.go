package models

import (
	"time"
	"unicode/utf8"
)

// MaxTitleLength is the number of runes kept from the first message when titling a conversation
const MaxTitleLength = 50

// Conversation groups the chat messages of one user
type Conversation struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// TitleFromMessage derives a conversation title from its first message
func TitleFromMessage(message string) string {
	if utf8.RuneCountInString(message) <= MaxTitleLength {
		return message
	}
	runes := []rune(message)
	return string(runes[:MaxTitleLength]) + "..."
}

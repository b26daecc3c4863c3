package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lucra-chat/internal/models"
)

// ChatMessageRepository handles chat_history persistence. Rows are insert-only.
type ChatMessageRepository struct {
	db *PostgresDB
}

// NewChatMessageRepository creates a new chat message repository
func NewChatMessageRepository(db *PostgresDB) *ChatMessageRepository {
	return &ChatMessageRepository{db: db}
}

// Create appends a message to a conversation
func (r *ChatMessageRepository) Create(ctx context.Context, msg *models.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.CreatedAt = time.Now().UTC()

	var metadata []byte
	if len(msg.Metadata) > 0 {
		metadata = msg.Metadata
	}

	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO chat_history (id, conversation_id, user_id, message, is_user, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, msg.ID, msg.ConversationID, msg.UserID, msg.Message, msg.IsUser, metadata, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create chat message: %w", err)
	}
	return nil
}

// ListByConversation returns messages in chronological order
func (r *ChatMessageRepository) ListByConversation(ctx context.Context, conversationID string, limit int) ([]*models.ChatMessage, error) {
	if !validID(conversationID) {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}

	rows, err := r.db.Pool().Query(ctx, `
		SELECT id, conversation_id, user_id, message, is_user, metadata, created_at
		FROM chat_history
		WHERE conversation_id = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.ChatMessage, 0)
	for rows.Next() {
		var msg models.ChatMessage
		var metadata []byte
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.UserID, &msg.Message, &msg.IsUser, &metadata, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		msg.Metadata = metadata
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat messages: %w", err)
	}
	return messages, nil
}

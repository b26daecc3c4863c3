package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lucra-chat/internal/models"
)

// ConversationRepository handles chat_conversations persistence
type ConversationRepository struct {
	db *PostgresDB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *PostgresDB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create inserts a conversation
func (r *ConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO chat_conversations (id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, conv.ID, conv.UserID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// GetByID retrieves a conversation by ID
func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	if !validID(id) {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}

	var conv models.Conversation
	err := r.db.Pool().QueryRow(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM chat_conversations
		WHERE id = $1
	`, id).Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

// ListByUser returns a user's conversations, most recently active first
func (r *ConversationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Conversation, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM chat_conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	conversations := make([]*models.Conversation, 0)
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, &conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}
	return conversations, nil
}

// Touch bumps updated_at so the conversation sorts as most recent
func (r *ConversationRepository) Touch(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}

	tag, err := r.db.Pool().Exec(ctx, `UPDATE chat_conversations SET updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return nil
}

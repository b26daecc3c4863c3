package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/lucra-chat/internal/errors"
	"github.com/lucra-chat/internal/models"
	"github.com/lucra-chat/internal/storage"
)

const (
	defaultConversationTitle = "New conversation"
	conversationListLimit    = 50
	messageListLimit         = 500
)

// ConversationService manages conversations and their chat history
type ConversationService struct {
	conversations ConversationStore
	messages      ChatMessageStore
	users         *UserService
}

// NewConversationService creates a conversation service
func NewConversationService(conversations ConversationStore, messages ChatMessageStore, users *UserService) *ConversationService {
	return &ConversationService{conversations: conversations, messages: messages, users: users}
}

// Create starts a conversation for walletAddress
func (s *ConversationService) Create(ctx context.Context, walletAddress, title string) (*models.Conversation, error) {
	userID, err := s.users.EnsureUserID(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, userID, title)
}

func (s *ConversationService) create(ctx context.Context, userID, title string) (*models.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultConversationTitle
	}

	conv := &models.Conversation{UserID: userID, Title: models.TitleFromMessage(title)}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Ensure returns conversationID when it exists, otherwise a new conversation
// titled from firstMessage
func (s *ConversationService) Ensure(ctx context.Context, userID, conversationID, firstMessage string) (*models.Conversation, error) {
	if conversationID != "" {
		conv, err := s.conversations.GetByID(ctx, conversationID)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}
	return s.create(ctx, userID, firstMessage)
}

// List returns the wallet's conversations, most recently active first.
// Unknown wallets have no conversations.
func (s *ConversationService) List(ctx context.Context, walletAddress string) ([]*models.Conversation, error) {
	user, err := s.users.GetByWallet(ctx, walletAddress)
	if err != nil {
		if isNotFound(err) {
			return []*models.Conversation{}, nil
		}
		return nil, err
	}
	return s.conversations.ListByUser(ctx, user.ID, conversationListLimit)
}

// Messages returns a conversation's messages in chronological order
func (s *ConversationService) Messages(ctx context.Context, conversationID string) ([]*models.ChatMessage, error) {
	if _, err := s.get(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.messages.ListByConversation(ctx, conversationID, messageListLimit)
}

// AppendMessageInput is a message added through the API rather than the chat flow
type AppendMessageInput struct {
	ConversationID string
	WalletAddress  string
	Message        string
	IsUser         bool
	Metadata       json.RawMessage
}

// AppendMessage stores a message and bumps the conversation
func (s *ConversationService) AppendMessage(ctx context.Context, in AppendMessageInput) (*models.ChatMessage, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, invalidInput("message", "is required")
	}
	if len(in.Metadata) > 0 && !json.Valid(in.Metadata) {
		return nil, invalidInput("metadata", "must be valid JSON")
	}

	conv, err := s.get(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}
	userID, err := s.users.EnsureUserID(ctx, in.WalletAddress)
	if err != nil {
		return nil, err
	}

	return s.appendMessage(ctx, conv.ID, userID, in.Message, in.IsUser, in.Metadata)
}

func (s *ConversationService) appendMessage(ctx context.Context, conversationID, userID, message string, isUser bool, metadata json.RawMessage) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{
		ConversationID: conversationID,
		UserID:         userID,
		Message:        message,
		IsUser:         isUser,
		Metadata:       metadata,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.conversations.Touch(ctx, conversationID); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *ConversationService) get(ctx context.Context, conversationID string) (*models.Conversation, error) {
	if conversationID == "" {
		return nil, invalidInput("conversationId", "is required")
	}
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFound(apperrors.CodeConversationNotFound, "conversation", conversationID)
		}
		return nil, err
	}
	return conv, nil
}

func isNotFound(err error) bool {
	return apperrors.GetHTTPStatusCode(err) == http.StatusNotFound
}

package service

import (
	"context"
	"time"

	"github.com/lucra-chat/internal/intent"
	"github.com/lucra-chat/internal/models"
	"github.com/lucra-chat/internal/types"
)

// The interfaces below are satisfied by the storage repositories, the Redis
// cache service and the llm extractor. Optional collaborators may be nil.

// UserStore persists users
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByWallet(ctx context.Context, walletAddress string) (*models.User, error)
	UpdateWalletType(ctx context.Context, id string, walletType types.WalletType) error
	MarkVerified(ctx context.Context, id string) error
}

// ConversationStore persists conversations
type ConversationStore interface {
	Create(ctx context.Context, conv *models.Conversation) error
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Conversation, error)
	Touch(ctx context.Context, id string) error
}

// ChatMessageStore persists chat history
type ChatMessageStore interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	ListByConversation(ctx context.Context, conversationID string, limit int) ([]*models.ChatMessage, error)
}

// TransactionStore persists transaction records
type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	Update(ctx context.Context, id string, update models.TransactionUpdate) (*models.Transaction, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Transaction, error)
}

// SignatureStore records used login signatures
type SignatureStore interface {
	Exists(ctx context.Context, signature string) (bool, error)
	Create(ctx context.Context, sig *models.WalletSignature) error
}

// IntentEventStore records and aggregates classified intents
type IntentEventStore interface {
	Insert(ctx context.Context, event *models.IntentEvent) error
	CountByIntent(ctx context.Context, since time.Time) ([]*models.IntentCount, error)
}

// UserCache caches wallet address to user id lookups
type UserCache interface {
	GetUserID(ctx context.Context, walletAddress string) (string, bool, error)
	SetUserID(ctx context.Context, walletAddress, userID string) error
}

// BalanceCache caches native balances
type BalanceCache interface {
	GetBalance(ctx context.Context, chain types.ChainID, address string) (*types.ChainBalance, bool, error)
	SetBalance(ctx context.Context, balance *types.ChainBalance) error
	InvalidateBalance(ctx context.Context, chain types.ChainID, address string) error
}

// IntentExtractor is the hosted-model classifier
type IntentExtractor interface {
	ExtractIntent(ctx context.Context, text string) (*intent.Intent, error)
	Reply(ctx context.Context, text string) (string, error)
}

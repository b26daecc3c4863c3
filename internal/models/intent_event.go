package models

import (
	"time"

	"github.com/lucra-chat/internal/types"
)

// IntentEvent is one classified chat message, stored in ClickHouse
type IntentEvent struct {
	EventTime      time.Time          `json:"eventTime" ch:"event_time"`
	WalletAddress  string             `json:"walletAddress" ch:"wallet_address"`
	ConversationID string             `json:"conversationId" ch:"conversation_id"`
	Intent         string             `json:"intent" ch:"intent"`
	Source         types.IntentSource `json:"source" ch:"source"`
	Amount         float64            `json:"amount" ch:"amount"`
	Token          string             `json:"token" ch:"token"`
	RecipientCount uint16             `json:"recipientCount" ch:"recipient_count"`
}

// IntentCount is an aggregated count of intents over a time window
type IntentCount struct {
	Intent string `json:"intent" ch:"intent"`
	Source string `json:"source" ch:"source"`
	Count  uint64 `json:"count" ch:"count"`
}

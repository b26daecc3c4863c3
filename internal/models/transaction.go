package models

import (
	"time"

	"github.com/lucra-chat/internal/intent"
	"github.com/lucra-chat/internal/types"
)

// Transaction is a wallet action recognized from chat. It starts pending and
// is updated once the wallet layer broadcasts it.
type Transaction struct {
	ID             string                  `json:"id" db:"id"`
	UserID         string                  `json:"userId" db:"user_id"`
	ConversationID *string                 `json:"conversationId,omitempty" db:"conversation_id"`
	Intent         intent.Kind             `json:"intent" db:"intent"`
	Amount         *intent.Amount          `json:"amount" db:"amount"`
	Token          string                  `json:"token" db:"token"`
	Recipients     []string                `json:"recipients" db:"recipients"`
	SplitType      *intent.SplitType       `json:"splitType,omitempty" db:"split_type"`
	Note           *string                 `json:"note,omitempty" db:"note"`
	TxHash         *string                 `json:"txHash,omitempty" db:"tx_hash"`
	Status         types.TransactionStatus `json:"status" db:"status"`
	CreatedAt      time.Time               `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time               `json:"updatedAt" db:"updated_at"`
}

// NewPendingTransaction builds a pending transaction from a parsed intent
func NewPendingTransaction(userID string, conversationID *string, in *intent.Intent) *Transaction {
	tx := &Transaction{
		UserID:         userID,
		ConversationID: conversationID,
		Intent:         in.Kind,
		Token:          in.Token,
		Recipients:     append([]string{}, in.Recipients...),
		SplitType:      in.SplitType,
		Note:           in.Note,
		Status:         types.TxStatusPending,
	}
	if in.Amount != nil {
		tx.Amount = intent.NewAmount(in.Amount.Decimal)
	}
	return tx
}

// TransactionUpdate holds the mutable fields of a transaction
type TransactionUpdate struct {
	TxHash *string
	Status types.TransactionStatus
}

// Package models provides data models for the Lucra chat backend.
package models

import (
	"time"

	"github.com/lucra-chat/internal/types"
)

// User represents a wallet owner. Rows are created lazily the first time an
// address interacts with the backend.
type User struct {
	ID            string           `json:"id" db:"id"`
	WalletAddress string           `json:"walletAddress" db:"wallet_address"`
	WalletType    types.WalletType `json:"walletType" db:"wallet_type"`
	IsVerified    bool             `json:"isVerified" db:"is_verified"`
	CreatedAt     time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time        `json:"updatedAt" db:"updated_at"`
}

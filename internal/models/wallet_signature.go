package models

import "time"

// WalletSignature records a signed login message so it cannot be replayed
type WalletSignature struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"userId" db:"user_id"`
	WalletAddress string    `json:"walletAddress" db:"wallet_address"`
	Message       string    `json:"message" db:"message"`
	Signature     string    `json:"signature" db:"signature"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

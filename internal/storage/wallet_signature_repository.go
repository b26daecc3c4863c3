package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lucra-chat/internal/models"
)

// ErrSignatureUsed is returned when a login signature was already recorded
var ErrSignatureUsed = errors.New("signature already used")

// WalletSignatureRepository stores verified login signatures to block replays
type WalletSignatureRepository struct {
	db *PostgresDB
}

// NewWalletSignatureRepository creates a new wallet signature repository
func NewWalletSignatureRepository(db *PostgresDB) *WalletSignatureRepository {
	return &WalletSignatureRepository{db: db}
}

// Exists reports whether a signature has been used before
func (r *WalletSignatureRepository) Exists(ctx context.Context, signature string) (bool, error) {
	var exists bool
	err := r.db.Pool().QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM wallet_signatures WHERE signature = $1)`, signature,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check signature: %w", err)
	}
	return exists, nil
}

// Create records a signature. A concurrent duplicate yields ErrSignatureUsed.
func (r *WalletSignatureRepository) Create(ctx context.Context, sig *models.WalletSignature) error {
	if sig.ID == "" {
		sig.ID = uuid.New().String()
	}
	sig.CreatedAt = time.Now().UTC()

	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO wallet_signatures (id, user_id, wallet_address, message, signature, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sig.ID, sig.UserID, sig.WalletAddress, sig.Message, sig.Signature, sig.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrSignatureUsed
		}
		return fmt.Errorf("failed to store signature: %w", err)
	}
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lucra-chat/internal/models"
	"github.com/lucra-chat/internal/types"
	"github.com/lucra-chat/internal/wallet"
)

const userColumns = `id, wallet_address, wallet_type, is_verified, created_at, updated_at`

// UserRepository handles user data persistence
type UserRepository struct {
	db *PostgresDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *PostgresDB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user. EVM addresses are stored lower-cased.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.WalletType == "" {
		user.WalletType = types.WalletUnknown
	}
	if !user.WalletType.IsValid() {
		return fmt.Errorf("invalid wallet type: %s", user.WalletType)
	}

	user.WalletAddress = wallet.NormalizeAddress(user.WalletAddress)
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, wallet_address, wallet_type, is_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		user.ID,
		user.WalletAddress,
		user.WalletType,
		user.IsVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

// GetByWallet retrieves the oldest user row for a wallet address.
// Duplicate rows from concurrent lazy creation are ignored.
func (r *UserRepository) GetByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE wallet_address = $1
		ORDER BY created_at ASC
		LIMIT 1
	`
	return r.scanOne(ctx, query, wallet.NormalizeAddress(walletAddress))
}

// UpdateWalletType sets the wallet type of a user
func (r *UserRepository) UpdateWalletType(ctx context.Context, id string, walletType types.WalletType) error {
	if !walletType.IsValid() {
		return fmt.Errorf("invalid wallet type: %s", walletType)
	}
	return r.exec(ctx, id, `UPDATE users SET wallet_type = $2, updated_at = NOW() WHERE id = $1`, walletType)
}

// MarkVerified flags a user as having proven wallet ownership
func (r *UserRepository) MarkVerified(ctx context.Context, id string) error {
	return r.exec(ctx, id, `UPDATE users SET is_verified = TRUE, updated_at = NOW() WHERE id = $1`)
}

func (r *UserRepository) exec(ctx context.Context, id, query string, args ...interface{}) error {
	if !validID(id) {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	tag, err := r.db.Pool().Exec(ctx, query, append([]interface{}{id}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *UserRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := r.db.Pool().QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.WalletAddress,
		&user.WalletType,
		&user.IsVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

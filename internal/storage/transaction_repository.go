package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/lucra-chat/internal/intent"
	"github.com/lucra-chat/internal/models"
	"github.com/lucra-chat/internal/types"
)

// amount is read as text so it round-trips through shopspring/decimal without precision loss
const transactionColumns = `id, user_id, conversation_id, intent, amount::text, token, recipients,
	split_type, note, tx_hash, status, created_at, updated_at`

// TransactionRepository handles wallet transaction records
type TransactionRepository struct {
	db *PostgresDB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *PostgresDB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a transaction record
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.Status == "" {
		tx.Status = types.TxStatusPending
	}
	if tx.Recipients == nil {
		tx.Recipients = []string{}
	}
	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO transactions (
			id, user_id, conversation_id, intent, amount, token, recipients,
			split_type, note, tx_hash, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5::text::numeric, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		tx.ID,
		tx.UserID,
		tx.ConversationID,
		tx.Intent,
		amountText(tx.Amount),
		tx.Token,
		tx.Recipients,
		tx.SplitType,
		tx.Note,
		tx.TxHash,
		tx.Status,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	if !validID(id) {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}

	row := r.db.Pool().QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// Update sets the status and, when given, the hash of a transaction
func (r *TransactionRepository) Update(ctx context.Context, id string, update models.TransactionUpdate) (*models.Transaction, error) {
	if !validID(id) {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if !update.Status.IsValid() {
		return nil, fmt.Errorf("invalid transaction status: %s", update.Status)
	}

	row := r.db.Pool().QueryRow(ctx, `
		UPDATE transactions
		SET status = $2, tx_hash = COALESCE($3, tx_hash), updated_at = NOW()
		WHERE id = $1
		RETURNING `+transactionColumns,
		id, update.Status, update.TxHash,
	)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return tx, nil
}

// ListByUser returns a user's transactions, newest first
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]*models.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var (
		tx        models.Transaction
		amount    *string
		splitType *string
	)
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.ConversationID,
		&tx.Intent,
		&amount,
		&tx.Token,
		&tx.Recipients,
		&splitType,
		&tx.Note,
		&tx.TxHash,
		&tx.Status,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if amount != nil {
		d, err := decimal.NewFromString(*amount)
		if err != nil {
			return nil, fmt.Errorf("invalid stored amount %q: %w", *amount, err)
		}
		tx.Amount = intent.NewAmount(d)
	}
	if splitType != nil {
		st := intent.SplitType(*splitType)
		tx.SplitType = &st
	}
	return &tx, nil
}

func amountText(a *intent.Amount) *string {
	if a == nil {
		return nil
	}
	s := a.String()
	return &s
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/lucra-chat/internal/adapter"
	apperrors "github.com/lucra-chat/internal/errors"
	"github.com/lucra-chat/internal/intent"
	"github.com/lucra-chat/internal/logging"
	"github.com/lucra-chat/internal/models"
	"github.com/lucra-chat/internal/storage"
	"github.com/lucra-chat/internal/types"
)

const transactionListLimit = 100

// TransactionService records wallet actions recognized from chat
type TransactionService struct {
	transactions TransactionStore
	users        *UserService
	chain        adapter.ChainAdapter
	balances     BalanceCache
}

// NewTransactionService creates a transaction service. chain and balances may be nil.
func NewTransactionService(transactions TransactionStore, users *UserService, chain adapter.ChainAdapter, balances BalanceCache) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		users:        users,
		chain:        chain,
		balances:     balances,
	}
}

// StoreTransactionInput is a transaction submitted by the client
type StoreTransactionInput struct {
	WalletAddress  string
	ConversationID string
	Intent         *intent.Intent
}

// Store creates a pending transaction from a send or split intent
func (s *TransactionService) Store(ctx context.Context, in StoreTransactionInput) (*models.Transaction, error) {
	if in.Intent == nil {
		return nil, invalidInput("intent", "is required")
	}
	in.Intent.Normalize()
	if !in.Intent.Kind.IsTransactional() {
		return nil, invalidInput("intent", "must be send or split")
	}

	userID, err := s.users.EnsureUserID(ctx, in.WalletAddress)
	if err != nil {
		return nil, err
	}

	var conversationID *string
	if id := strings.TrimSpace(in.ConversationID); id != "" {
		conversationID = &id
	}
	return s.create(ctx, userID, conversationID, in.Intent)
}

func (s *TransactionService) create(ctx context.Context, userID string, conversationID *string, in *intent.Intent) (*models.Transaction, error) {
	tx := models.NewPendingTransaction(userID, conversationID, in)
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// UpdateTransactionInput carries the hash and status reported by the wallet layer
type UpdateTransactionInput struct {
	TxHash *string
	Status types.TransactionStatus
}

// Update records the hash and status of a transaction.
//
// A hash without a status marks the transaction submitted. When a chain
// adapter is configured the receipt decides between submitted, confirmed
// and failed.
func (s *TransactionService) Update(ctx context.Context, id string, in UpdateTransactionInput) (*models.Transaction, error) {
	if id == "" {
		return nil, invalidInput("id", "is required")
	}

	var txHash *string
	if in.TxHash != nil {
		hash := strings.ToLower(strings.TrimSpace(*in.TxHash))
		if hash != "" {
			txHash = &hash
		}
	}

	status := in.Status
	if status == "" && txHash != nil {
		status = types.TxStatusSubmitted
	}
	if !status.IsValid() {
		return nil, invalidInput("status", "must be one of pending, submitted, confirmed, failed")
	}

	if txHash != nil && s.chain != nil {
		chainStatus, err := s.chain.GetTransactionStatus(ctx, *txHash)
		switch {
		case errors.Is(err, adapter.ErrInvalidTxHash):
			return nil, invalidInput("txHash", "is not a valid transaction hash")
		case err != nil:
			logging.FromContext(ctx).WithError(err).WithField("txHash", *txHash).
				Warn("receipt lookup failed, keeping reported status")
		case chainStatus != types.TxStatusSubmitted:
			status = chainStatus
		}
	}

	tx, err := s.transactions.Update(ctx, id, models.TransactionUpdate{TxHash: txHash, Status: status})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFound(apperrors.CodeTransactionNotFound, "transaction", id)
		}
		return nil, err
	}

	if tx.Status == types.TxStatusConfirmed {
		s.invalidateBalance(ctx, tx.UserID)
	}
	return tx, nil
}

// List returns the wallet's transactions, newest first
func (s *TransactionService) List(ctx context.Context, walletAddress string) ([]*models.Transaction, error) {
	user, err := s.users.GetByWallet(ctx, walletAddress)
	if err != nil {
		if isNotFound(err) {
			return []*models.Transaction{}, nil
		}
		return nil, err
	}
	return s.transactions.ListByUser(ctx, user.ID, transactionListLimit)
}

func (s *TransactionService) invalidateBalance(ctx context.Context, userID string) {
	if s.balances == nil || s.chain == nil {
		return
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).WithError(err).Warn("balance invalidation skipped")
		return
	}
	if err := s.balances.InvalidateBalance(ctx, s.chain.GetChainID(), user.WalletAddress); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("balance cache invalidation failed")
	}
}

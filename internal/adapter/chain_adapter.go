// Package adapter reads balances and transaction receipts from EVM chains.
package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/lucra-chat/internal/types"
)

// ChainAdapter defines the read-only chain operations the backend needs
type ChainAdapter interface {
	// GetBalance retrieves the native balance of an address
	GetBalance(ctx context.Context, address string) (*types.ChainBalance, error)

	// GetTransactionStatus maps a transaction receipt onto a record status.
	// A hash without a receipt yet is reported as submitted.
	GetTransactionStatus(ctx context.Context, txHash string) (types.TransactionStatus, error)

	// ValidateAddress checks if address format is valid for this chain
	ValidateAddress(address string) bool

	// GetChainID returns the chain identifier
	GetChainID() types.ChainID
}

var (
	// ErrInvalidAddress indicates the address format is invalid
	ErrInvalidAddress = errors.New("invalid address format")

	// ErrInvalidTxHash indicates the transaction hash format is invalid
	ErrInvalidTxHash = errors.New("invalid transaction hash")
)

// AdapterError wraps errors with additional context
type AdapterError struct {
	Chain   types.ChainID
	Op      string // Operation that failed (e.g., "GetBalance")
	Err     error
	Details map[string]interface{}
}

func (e *AdapterError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("chain adapter error [%s:%s]: %v (details: %+v)", e.Chain, e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("chain adapter error [%s:%s]: %v", e.Chain, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError creates a new AdapterError
func NewAdapterError(chain types.ChainID, op string, err error, details map[string]interface{}) *AdapterError {
	return &AdapterError{
		Chain:   chain,
		Op:      op,
		Err:     err,
		Details: details,
	}
}

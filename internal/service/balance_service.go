package service

import (
	"context"
	"errors"

	"github.com/lucra-chat/internal/adapter"
	apperrors "github.com/lucra-chat/internal/errors"
	"github.com/lucra-chat/internal/logging"
	"github.com/lucra-chat/internal/types"
)

// BalanceService serves native balances through the chain adapter and cache
type BalanceService struct {
	chain adapter.ChainAdapter
	cache BalanceCache
}

// NewBalanceService creates a balance service. Both arguments may be nil.
func NewBalanceService(chain adapter.ChainAdapter, cache BalanceCache) *BalanceService {
	return &BalanceService{chain: chain, cache: cache}
}

// GetBalance returns the native balance of address on the configured chain
func (s *BalanceService) GetBalance(ctx context.Context, address string) (*types.ChainBalance, error) {
	if s.chain == nil {
		return nil, unavailable("chain RPC")
	}
	if !s.chain.ValidateAddress(address) {
		return nil, &types.ServiceError{
			Code:    apperrors.CodeInvalidAddress,
			Message: "invalid address format",
			Details: map[string]interface{}{"address": address},
		}
	}

	chainID := s.chain.GetChainID()
	log := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"chain":   chainID,
		"address": address,
	})

	if s.cache != nil {
		balance, found, err := s.cache.GetBalance(ctx, chainID, address)
		if err != nil {
			log.WithError(err).Warn("balance cache read failed")
		} else if found {
			return balance, nil
		}
	}

	balance, err := s.chain.GetBalance(ctx, address)
	if err != nil {
		if errors.Is(err, adapter.ErrInvalidAddress) {
			return nil, &types.ServiceError{Code: apperrors.CodeInvalidAddress, Message: "invalid address format"}
		}
		return nil, apperrors.NewUpstreamError("chain RPC", err)
	}

	if s.cache != nil {
		if err := s.cache.SetBalance(ctx, balance); err != nil {
			log.WithError(err).Warn("balance cache write failed")
		}
	}
	return balance, nil
}

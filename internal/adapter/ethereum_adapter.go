package adapter

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/lucra-chat/internal/types"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ethBackend is the subset of ethclient.Client used here
type ethBackend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	Close()
}

// EthereumAdapter implements ChainAdapter for EVM chains over JSON-RPC
type EthereumAdapter struct {
	chainID types.ChainID
	client  ethBackend
}

// NewEthereumAdapter dials rpcURL
func NewEthereumAdapter(ctx context.Context, chainID types.ChainID, rpcURL string) (*EthereumAdapter, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("RPC URL is required for %s", chainID)
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s RPC: %w", chainID, err)
	}

	return &EthereumAdapter{chainID: chainID, client: client}, nil
}

func newEthereumAdapterWithBackend(chainID types.ChainID, backend ethBackend) *EthereumAdapter {
	return &EthereumAdapter{chainID: chainID, client: backend}
}

// GetBalance retrieves the latest native balance
func (a *EthereumAdapter) GetBalance(ctx context.Context, address string) (*types.ChainBalance, error) {
	if !a.ValidateAddress(address) {
		return nil, NewAdapterError(a.chainID, "GetBalance", ErrInvalidAddress, map[string]interface{}{
			"address": address,
		})
	}

	wei, err := a.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, NewAdapterError(a.chainID, "GetBalance", err, map[string]interface{}{
			"address": address,
		})
	}

	return &types.ChainBalance{
		Chain:         a.chainID,
		Address:       address,
		NativeBalance: wei.String(),
		Formatted:     FormatEther(wei),
		Symbol:        nativeSymbol(a.chainID),
	}, nil
}

// GetTransactionStatus looks up the receipt for txHash
func (a *EthereumAdapter) GetTransactionStatus(ctx context.Context, txHash string) (types.TransactionStatus, error) {
	if !txHashPattern.MatchString(txHash) {
		return "", NewAdapterError(a.chainID, "GetTransactionStatus", ErrInvalidTxHash, map[string]interface{}{
			"txHash": txHash,
		})
	}

	receipt, err := a.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return types.TxStatusSubmitted, nil
		}
		return "", NewAdapterError(a.chainID, "GetTransactionStatus", err, map[string]interface{}{
			"txHash": txHash,
		})
	}

	if receipt.Status == ethtypes.ReceiptStatusSuccessful {
		return types.TxStatusConfirmed, nil
	}
	return types.TxStatusFailed, nil
}

// ValidateAddress checks for a 0x-prefixed 20-byte hex address
func (a *EthereumAdapter) ValidateAddress(address string) bool {
	return len(address) == 42 && common.IsHexAddress(address)
}

// GetChainID returns the chain identifier
func (a *EthereumAdapter) GetChainID() types.ChainID {
	return a.chainID
}

// Close closes the RPC connection
func (a *EthereumAdapter) Close() {
	if a.client != nil {
		a.client.Close()
	}
}

// FormatEther renders a wei amount in ether units without trailing zeros
func FormatEther(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, -18).String()
}

func nativeSymbol(chainID types.ChainID) string {
	switch chainID {
	case types.ChainSepolia:
		return "SepoliaETH"
	default:
		return "ETH"
	}
}

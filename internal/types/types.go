// Package types provides common type definitions for the Lucra chat backend.
package types

// WalletType identifies the wallet family a user connected with
type WalletType string

const (
	// WalletEVM represents Ethereum-compatible wallets (MetaMask, Coinbase Wallet, ...)
	WalletEVM WalletType = "evm"
	// WalletSolana represents Solana wallets (Phantom, ...)
	WalletSolana WalletType = "solana"
	// WalletUnknown is used until the client tells us which wallet it is
	WalletUnknown WalletType = "unknown"
)

// IsValid reports whether the wallet type is one of the known values
func (w WalletType) IsValid() bool {
	switch w {
	case WalletEVM, WalletSolana, WalletUnknown:
		return true
	}
	return false
}

// TransactionStatus represents the lifecycle of a recorded wallet transaction
type TransactionStatus string

const (
	// TxStatusPending is the initial status when an intent is recognized
	TxStatusPending TransactionStatus = "pending"
	// TxStatusSubmitted means the wallet broadcast the transaction
	TxStatusSubmitted TransactionStatus = "submitted"
	// TxStatusConfirmed means the transaction was mined successfully
	TxStatusConfirmed TransactionStatus = "confirmed"
	// TxStatusFailed means the transaction was rejected or reverted
	TxStatusFailed TransactionStatus = "failed"
)

// IsValid reports whether the status is one of the known values
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TxStatusPending, TxStatusSubmitted, TxStatusConfirmed, TxStatusFailed:
		return true
	}
	return false
}

// IntentSource records which parser produced an intent
type IntentSource string

const (
	// SourceLLM means the hosted model classified the message
	SourceLLM IntentSource = "llm"
	// SourceFallback means the rule-based parser classified the message
	SourceFallback IntentSource = "fallback"
)

// ChainID represents supported blockchain networks
type ChainID string

const (
	// ChainEthereum represents the Ethereum mainnet
	ChainEthereum ChainID = "ethereum"
	// ChainBase represents the Base network
	ChainBase ChainID = "base"
	// ChainSepolia represents the Sepolia testnet
	ChainSepolia ChainID = "sepolia"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// ChainBalance represents the native balance of an address on a single chain
type ChainBalance struct {
	Chain         ChainID `json:"chain"`
	Address       string  `json:"address"`
	NativeBalance string  `json:"nativeBalance"` // wei
	Formatted     string  `json:"formatted"`     // ether units
	Symbol        string  `json:"symbol"`
}

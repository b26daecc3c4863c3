// Package wallet verifies signed wallet login messages and issues session tokens.
package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"

	"github.com/lucra-chat/internal/types"
)

var (
	// ErrInvalidSignature means the signature does not belong to the address
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrMessageExpired means the login timestamp is outside the accepted window
	ErrMessageExpired = errors.New("login message expired")
	// ErrUnsupportedWallet means the address is neither EVM nor Solana
	ErrUnsupportedWallet = errors.New("unsupported wallet address")
)

// DetectWalletType guesses the wallet family from the address format
func DetectWalletType(address string) types.WalletType {
	if strings.HasPrefix(address, "0x") {
		if len(address) == 42 && common.IsHexAddress(address) {
			return types.WalletEVM
		}
		return types.WalletUnknown
	}
	if pub, err := base58.Decode(address); err == nil && len(pub) == ed25519.PublicKeySize {
		return types.WalletSolana
	}
	return types.WalletUnknown
}

// NormalizeAddress lower-cases EVM addresses. Solana addresses are
// case-sensitive base58 and are kept as given.
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if DetectWalletType(address) == types.WalletSolana {
		return address
	}
	return strings.ToLower(address)
}

// LoginMessage builds the exact text a wallet signs to log in
func LoginMessage(address string, timestamp int64) string {
	data, _ := json.Marshal(struct {
		Address   string `json:"address"`
		Timestamp int64  `json:"timestamp"`
	}{address, timestamp})
	return string(data)
}

// CheckTimestamp accepts unix-second timestamps up to maxAge in the past and maxSkew in the future
func CheckTimestamp(timestamp int64, now time.Time, maxAge, maxSkew time.Duration) error {
	signedAt := time.Unix(timestamp, 0)
	if now.Sub(signedAt) > maxAge {
		return fmt.Errorf("%w: signed %s ago", ErrMessageExpired, now.Sub(signedAt).Truncate(time.Second))
	}
	if signedAt.Sub(now) > maxSkew {
		return fmt.Errorf("%w: timestamp is in the future", ErrMessageExpired)
	}
	return nil
}

// VerifySignature checks that signature over message was produced by address
// and returns the signature in canonical form, the key used for replay checks.
// EVM signatures are EIP-191 personal_sign (hex, canonical as lower-case 0x hex
// with V = 27/28); Solana signatures are ed25519 over the raw message (base58
// or hex, canonical as base58).
func VerifySignature(address, message, signature string) (string, error) {
	switch DetectWalletType(address) {
	case types.WalletEVM:
		return verifyEVM(address, message, signature)
	case types.WalletSolana:
		return verifySolana(address, message, signature)
	default:
		return "", ErrUnsupportedWallet
	}
}

// personalHash is keccak256("\x19Ethereum Signed Message:\n" + len(message) + message)
func personalHash(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256Hash([]byte(prefixed)).Bytes()
}

func verifyEVM(address, message, signature string) (string, error) {
	if !strings.HasPrefix(signature, "0x") && !strings.HasPrefix(signature, "0X") {
		signature = "0x" + signature
	}
	sig, err := hexutil.Decode("0x" + signature[2:])
	if err != nil {
		return "", fmt.Errorf("%w: not hex", ErrInvalidSignature)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}

	v := sig[crypto.RecoveryIDOffset]
	if v >= 27 {
		v -= 27
	}
	r := new(big.Int).SetBytes(sig[:32])
	sv := new(big.Int).SetBytes(sig[32:64])
	// High-s twins recover the same key; only the low-s form is accepted.
	if !crypto.ValidateSignatureValues(v, r, sv, true) {
		return "", fmt.Errorf("%w: malformed signature values", ErrInvalidSignature)
	}
	sig[crypto.RecoveryIDOffset] = v

	pub, err := crypto.SigToPub(personalHash(message), sig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !strings.EqualFold(crypto.PubkeyToAddress(*pub).Hex(), address) {
		return "", ErrInvalidSignature
	}

	sig[crypto.RecoveryIDOffset] = v + 27
	return hexutil.Encode(sig), nil
}

func verifySolana(address, message, signature string) (string, error) {
	pub, err := base58.Decode(address)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return "", ErrUnsupportedWallet
	}

	sig, err := base58.Decode(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		hexSig, hexErr := hexutil.Decode("0x" + strings.TrimPrefix(strings.TrimPrefix(signature, "0x"), "0X"))
		if hexErr != nil {
			return "", fmt.Errorf("%w: not base58 or hex", ErrInvalidSignature)
		}
		sig = hexSig
	}
	if len(sig) != ed25519.SignatureSize {
		return "", fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}

	if !ed25519.Verify(ed25519.PublicKey(pub), []byte(message), sig) {
		return "", ErrInvalidSignature
	}
	return base58.Encode(sig), nil
}

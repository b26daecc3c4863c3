package service

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/lucra-chat/internal/errors"
	"github.com/lucra-chat/internal/logging"
	"github.com/lucra-chat/internal/models"
	"github.com/lucra-chat/internal/storage"
	"github.com/lucra-chat/internal/types"
	"github.com/lucra-chat/internal/wallet"
)

// WalletService verifies wallet ownership and issues session tokens
type WalletService struct {
	signatures SignatureStore
	users      *UserService
	tokens     *wallet.TokenIssuer
	maxAge     time.Duration
	maxSkew    time.Duration
	now        func() time.Time
}

// NewWalletService creates a wallet service
func NewWalletService(signatures SignatureStore, users *UserService, tokens *wallet.TokenIssuer, maxAge, maxSkew time.Duration) *WalletService {
	return &WalletService{
		signatures: signatures,
		users:      users,
		tokens:     tokens,
		maxAge:     maxAge,
		maxSkew:    maxSkew,
		now:        time.Now,
	}
}

// VerifyInput is a signed login message
type VerifyInput struct {
	Address    string
	Timestamp  int64
	Signature  string
	WalletType types.WalletType
}

// VerifyResult is returned after a successful verification
type VerifyResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Verify checks the signed login message, records the signature and
// returns a session token for the wallet.
//
// The signed text uses the address exactly as the wallet presented it;
// storage uses the normalized form.
func (s *WalletService) Verify(ctx context.Context, in VerifyInput) (*VerifyResult, error) {
	address := strings.TrimSpace(in.Address)
	signature := strings.TrimSpace(in.Signature)
	if address == "" {
		return nil, invalidInput("address", "is required")
	}
	if signature == "" {
		return nil, invalidInput("signature", "is required")
	}

	if err := wallet.CheckTimestamp(in.Timestamp, s.now(), s.maxAge, s.maxSkew); err != nil {
		return nil, signatureError(err.Error())
	}

	message := wallet.LoginMessage(address, in.Timestamp)
	canonical, err := wallet.VerifySignature(address, message, signature)
	if err != nil {
		if errors.Is(err, wallet.ErrUnsupportedWallet) {
			return nil, &types.ServiceError{Code: apperrors.CodeInvalidAddress, Message: err.Error()}
		}
		return nil, signatureError("signature does not match address")
	}

	used, err := s.signatures.Exists(ctx, canonical)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, signatureReused()
	}

	walletType := in.WalletType
	if walletType == "" || walletType == types.WalletUnknown {
		walletType = wallet.DetectWalletType(address)
	}
	user, err := s.users.EnsureUser(ctx, address, walletType)
	if err != nil {
		return nil, err
	}

	err = s.signatures.Create(ctx, &models.WalletSignature{
		UserID:        user.ID,
		WalletAddress: user.WalletAddress,
		Message:       message,
		Signature:     canonical,
	})
	if err != nil {
		if errors.Is(err, storage.ErrSignatureUsed) {
			return nil, signatureReused()
		}
		return nil, err
	}

	if err := s.users.MarkVerified(ctx, user); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user.WalletAddress, string(user.WalletType))
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"wallet":     user.WalletAddress,
		"walletType": user.WalletType,
	}).Info("wallet verified")

	return &VerifyResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func signatureError(message string) error {
	return &types.ServiceError{Code: apperrors.CodeInvalidSignature, Message: message}
}

func signatureReused() error {
	return &types.ServiceError{Code: apperrors.CodeSignatureReused, Message: "signature has already been used"}
}

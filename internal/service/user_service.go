package service

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/lucra-chat/internal/errors"
	"github.com/lucra-chat/internal/logging"
	"github.com/lucra-chat/internal/models"
	"github.com/lucra-chat/internal/storage"
	"github.com/lucra-chat/internal/types"
	"github.com/lucra-chat/internal/wallet"
)

// UserService resolves wallet addresses to user rows, creating them lazily
type UserService struct {
	users UserStore
	cache UserCache
}

// NewUserService creates a user service. cache may be nil.
func NewUserService(users UserStore, cache UserCache) *UserService {
	return &UserService{users: users, cache: cache}
}

// EnsureUser returns the user for walletAddress, creating it when absent.
// A known walletType different from the stored one is saved.
//
// The lookup and insert are not atomic: two concurrent first requests for one
// address can both insert. Lookups return the oldest row, so the duplicate
// is never read back.
func (s *UserService) EnsureUser(ctx context.Context, walletAddress string, walletType types.WalletType) (*models.User, error) {
	address, err := normalizeWallet(walletAddress)
	if err != nil {
		return nil, err
	}
	if walletType == "" || !walletType.IsValid() {
		walletType = wallet.DetectWalletType(address)
	}

	user, err := s.users.GetByWallet(ctx, address)
	switch {
	case err == nil:
		if walletType != types.WalletUnknown && user.WalletType != walletType {
			if err := s.users.UpdateWalletType(ctx, user.ID, walletType); err != nil {
				return nil, fmt.Errorf("failed to update wallet type: %w", err)
			}
			user.WalletType = walletType
		}
	case errors.Is(err, storage.ErrNotFound):
		user = &models.User{WalletAddress: address, WalletType: walletType}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		logging.FromContext(ctx).WithField("wallet", address).Info("created user")
	default:
		return nil, err
	}

	s.cacheUserID(ctx, address, user.ID)
	return user, nil
}

// EnsureUserID is EnsureUser for callers that only need the id; it consults the cache first
func (s *UserService) EnsureUserID(ctx context.Context, walletAddress string) (string, error) {
	address, err := normalizeWallet(walletAddress)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		id, found, err := s.cache.GetUserID(ctx, address)
		if err != nil {
			logging.FromContext(ctx).WithError(err).Warn("user cache read failed")
		} else if found {
			return id, nil
		}
	}

	user, err := s.EnsureUser(ctx, address, "")
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// GetByWallet returns an existing user without creating one
func (s *UserService) GetByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	address, err := normalizeWallet(walletAddress)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByWallet(ctx, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFound(apperrors.CodeUserNotFound, "user", address)
		}
		return nil, err
	}
	return user, nil
}

// GetByID returns a user by primary key
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFound(apperrors.CodeUserNotFound, "user", id)
		}
		return nil, err
	}
	return user, nil
}

// MarkVerified flags the user as having proven wallet ownership
func (s *UserService) MarkVerified(ctx context.Context, user *models.User) error {
	if user.IsVerified {
		return nil
	}
	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return err
	}
	user.IsVerified = true
	return nil
}

func (s *UserService) cacheUserID(ctx context.Context, address, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetUserID(ctx, address, id); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("user cache write failed")
	}
}

func normalizeWallet(walletAddress string) (string, error) {
	address := wallet.NormalizeAddress(walletAddress)
	if address == "" {
		return "", invalidInput("walletAddress", "is required")
	}
	if len(address) > 128 {
		return "", invalidInput("walletAddress", "is too long")
	}
	return address, nil
}

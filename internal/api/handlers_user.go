package api

import (
	"net/http"

	"github.com/lucra-chat/internal/service"
	"github.com/lucra-chat/internal/types"
)

// handleEnsureUser handles POST /api/users - returns the wallet's user, creating it on first use
func (s *Server) handleEnsureUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string           `json:"walletAddress"`
		WalletType    types.WalletType `json:"walletType"`
	}
	if err := parseJSONBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	walletAddress, err := resolveWallet(r, req.WalletAddress)
	if err != nil {
		respondError(w, r, err)
		return
	}

	user, err := s.services.Users.EnsureUser(r.Context(), walletAddress, req.WalletType)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "user", user)
}

// handleVerifyWallet handles POST /api/wallet/verify
func (s *Server) handleVerifyWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address    string           `json:"address"`
		Timestamp  int64            `json:"timestamp"`
		Signature  string           `json:"signature"`
		WalletType types.WalletType `json:"walletType"`
	}
	if err := parseJSONBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.services.Wallet.Verify(r.Context(), service.VerifyInput{
		Address:    req.Address,
		Timestamp:  req.Timestamp,
		Signature:  req.Signature,
		WalletType: req.WalletType,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"token":     res.Token,
		"expiresAt": res.ExpiresAt,
		"user":      res.User,
	})
}

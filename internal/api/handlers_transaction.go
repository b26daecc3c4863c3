package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lucra-chat/internal/intent"
	"github.com/lucra-chat/internal/service"
	"github.com/lucra-chat/internal/types"
)

// handleStoreTransaction handles POST /api/transactions
func (s *Server) handleStoreTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress  string         `json:"walletAddress"`
		ConversationID string         `json:"conversationId"`
		Intent         *intent.Intent `json:"intent"`
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

	tx, err := s.services.Transactions.Store(r.Context(), service.StoreTransactionInput{
		WalletAddress:  walletAddress,
		ConversationID: req.ConversationID,
		Intent:         req.Intent,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "transaction", tx)
}

// handleUpdateTransaction handles PUT /api/transactions/{id}
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TxHash *string                 `json:"txHash"`
		Status types.TransactionStatus `json:"status"`
	}
	if err := parseJSONBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	tx, err := s.services.Transactions.Update(r.Context(), mux.Vars(r)["id"], service.UpdateTransactionInput{
		TxHash: req.TxHash,
		Status: req.Status,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "transaction", tx)
}

// handleListTransactions handles GET /api/transactions?walletAddress=
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	walletAddress, err := resolveWallet(r, r.URL.Query().Get("walletAddress"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	transactions, err := s.services.Transactions.List(r.Context(), walletAddress)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "transactions", transactions)
}

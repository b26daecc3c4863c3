package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lucra-chat/internal/service"
)

// handleCreateConversation handles POST /api/conversations
func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string `json:"walletAddress"`
		Title         string `json:"title"`
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

	conv, err := s.services.Conversations.Create(r.Context(), walletAddress, req.Title)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "conversation", conv)
}

// handleListConversations handles GET /api/conversations?walletAddress=
func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	walletAddress, err := resolveWallet(r, r.URL.Query().Get("walletAddress"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	conversations, err := s.services.Conversations.List(r.Context(), walletAddress)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "conversations", conversations)
}

// handleListMessages handles GET /api/conversations/{id}/messages
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.services.Conversations.Messages(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "messages", messages)
}

// handleAppendMessage handles POST /api/conversations/{id}/messages
func (s *Server) handleAppendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string          `json:"walletAddress"`
		Message       string          `json:"message"`
		IsUser        bool            `json:"isUser"`
		Metadata      json.RawMessage `json:"metadata"`
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

	metadata := req.Metadata
	if string(metadata) == "null" {
		metadata = nil
	}

	msg, err := s.services.Conversations.AppendMessage(r.Context(), service.AppendMessageInput{
		ConversationID: mux.Vars(r)["id"],
		WalletAddress:  walletAddress,
		Message:        req.Message,
		IsUser:         req.IsUser,
		Metadata:       metadata,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "message", msg)
}

package api

import (
	"encoding/json"
	"io"
	"net/http"

	apperrors "github.com/lucra-chat/internal/errors"
	"github.com/lucra-chat/internal/service"
)

// Response headers carrying chat metadata alongside the plain-text reply
const (
	headerIntentData     = "X-Intent-Data"
	headerIntentSource   = "X-Intent-Source"
	headerConversationID = "X-Conversation-Id"
)

// handleChat handles POST /api/chat. The reply is sent as plain text; the
// parsed intent travels in X-Intent-Data.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req service.ChatRequest
	// Chat transcripts carry client-side fields (ids, timestamps), so unknown fields are allowed
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, r, apperrors.NewInvalidParameterError("body", "must be a valid JSON object"))
		return
	}

	walletAddress, err := resolveWallet(r, req.WalletAddress)
	if err != nil {
		respondError(w, r, err)
		return
	}
	req.WalletAddress = walletAddress

	resp, err := s.services.Chat.HandleMessage(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set(headerIntentData, resp.Intent.JSON())
	w.Header().Set(headerIntentSource, string(resp.Source))
	if resp.ConversationID != "" {
		w.Header().Set(headerConversationID, resp.ConversationID)
	}
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, resp.Reply)
}

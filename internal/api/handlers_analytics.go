package api

import (
	"net/http"
	"strconv"

	apperrors "github.com/lucra-chat/internal/errors"
)

const defaultAnalyticsDays = 7

// handleIntentAnalytics handles GET /api/analytics/intents?days=N
func (s *Server) handleIntentAnalytics(w http.ResponseWriter, r *http.Request) {
	days := defaultAnalyticsDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, r, apperrors.NewInvalidParameterError("days", "must be an integer"))
			return
		}
		days = parsed
	}

	counts, err := s.services.Analytics.IntentCounts(r.Context(), days)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "counts", counts)
}

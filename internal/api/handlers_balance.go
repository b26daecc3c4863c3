package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// handleGetBalance handles GET /api/balance/{address}
func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	balance, err := s.services.Balance.GetBalance(r.Context(), address)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "balance", balance)
}

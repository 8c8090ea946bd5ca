package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"kedaipos-backend/internal/domain"
	"kedaipos-backend/internal/ports"
	"kedaipos-backend/internal/repository"

	"github.com/go-chi/chi/v5"
)

// SyncHandler receives order mutations from offline terminals.
type SyncHandler struct {
	Orders repository.OrderRepository
}

func (h SyncHandler) RegisterRoutes(r chi.Router) {
	r.Post("/sync/orders", h.applyOrder)
}

// applyOrder applies one terminal-originated order mutation. The call
// is idempotent on localId: replays acknowledge the original order. A
// rejected mutation answers 400 so the terminal parks it as a conflict
// instead of retrying forever.
func (h SyncHandler) applyOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LocalID string              `json:"localId"`
		Order   ports.OrderMutation `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	res, err := h.Orders.ApplyOrderMutation(r.Context(), req.LocalID, req.Order)
	if err != nil {
		var rejected *domain.SyncRejectedError
		if errors.As(err, &rejected) {
			writeError(w, http.StatusBadRequest, rejected.Reason)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

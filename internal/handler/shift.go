package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"kedaipos-backend/internal/domain"
	"kedaipos-backend/internal/repository"
	"kedaipos-backend/internal/server/authctx"
	"kedaipos-backend/internal/service"

	"github.com/go-chi/chi/v5"
)

type ShiftHandler struct {
	Service service.ShiftService
}

func (h ShiftHandler) RegisterRoutes(r chi.Router) {
	r.Post("/shifts", h.open)
	r.Get("/shifts/current", h.current)
	r.Get("/shifts/{id}", h.get)
	r.Post("/shifts/{id}/close", h.close)
}

func (h ShiftHandler) open(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartingCash int64 `json:"startingCash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	shift, err := h.Service.Open(r.Context(), user.ID, user.Email, req.StartingCash)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftResponse(*shift, nil))
}

func (h ShiftHandler) current(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	shift, err := h.Service.Current(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftResponse(*shift, nil))
}

func (h ShiftHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	shift, orders, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftResponse(*shift, orders))
}

func (h ShiftHandler) close(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		EndingCash int64  `json:"endingCash"`
		Notes      string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	shift, err := h.Service.Close(r.Context(), id, req.EndingCash, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftResponse(*shift, nil))
}

func toShiftResponse(s domain.Shift, orders []repository.ShiftOrder) map[string]any {
	resp := map[string]any{
		"id":           s.ID,
		"userId":       s.UserID,
		"operatorName": s.OperatorName,
		"status":       s.Status,
		"startingCash": s.StartingCash,
		"endingCash":   s.EndingCash,
		"expectedCash": s.ExpectedCash,
		"discrepancy":  s.Discrepancy,
		"notes":        s.Notes,
		"openedAt":     s.OpenedAt,
		"closedAt":     s.ClosedAt,
	}
	if orders != nil {
		list := make([]map[string]any, 0, len(orders))
		for _, o := range orders {
			list = append(list, map[string]any{
				"id":            o.ID,
				"number":        o.Number,
				"status":        o.Status,
				"total":         o.Total,
				"paymentMethod": o.PaymentMethod,
			})
		}
		resp["orders"] = list
	}
	return resp
}

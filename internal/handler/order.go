package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"kedaipos-backend/internal/domain"
	"kedaipos-backend/internal/ports"
	"kedaipos-backend/internal/repository"
	"kedaipos-backend/internal/server/authctx"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type OrderHandler struct {
	Repo     repository.OrderRepository
	Shifts   repository.ShiftRepository
	Currency string
}

func (h OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.list)
	r.Get("/orders/{id}", h.get)
	r.Post("/orders", h.create)
	r.Put("/orders/{id}/status", h.updateStatus)
}

func (h OrderHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	orders, err := h.Repo.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o, h.Currency))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h OrderHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	o, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(*o, h.Currency))
}

// create takes an online order straight to the ledger. It rides the
// same idempotent mutation path the offline synchronizer uses, with a
// freshly generated localId.
func (h OrderHandler) create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subtotal      int64  `json:"subtotal"`
		Tax           int64  `json:"tax"`
		Discount      int64  `json:"discount"`
		Total         int64  `json:"total"`
		PaymentMethod string `json:"paymentMethod"`
		Notes         string `json:"notes"`
		Items         []struct {
			MenuID *int64 `json:"menuId"`
			Name   string `json:"name"`
			Price  int64  `json:"price"`
			Qty    int    `json:"qty"`
			Note   string `json:"note"`
		} `json:"items"`
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

	m := ports.OrderMutation{
		Number:        repository.NewOrderNumber(time.Now()),
		UserID:        &user.ID,
		OperatorName:  user.Email,
		Subtotal:      req.Subtotal,
		Tax:           req.Tax,
		Discount:      req.Discount,
		Total:         req.Total,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		Status:        domain.OrderPending,
		Notes:         req.Notes,
	}
	for _, it := range req.Items {
		m.Items = append(m.Items, ports.OrderMutationItem{
			MenuID: it.MenuID,
			Name:   it.Name,
			Price:  it.Price,
			Qty:    it.Qty,
			Note:   it.Note,
		})
	}

	// Attach the order to the cashier's open shift, if any.
	if shift, err := h.Shifts.CurrentOpen(r.Context(), user.ID); err == nil {
		m.ShiftID = &shift.ID
	} else if !errors.Is(err, domain.ErrShiftNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	res, err := h.Repo.ApplyOrderMutation(r.Context(), uuid.NewString(), m)
	if err != nil {
		var rejected *domain.SyncRejectedError
		if errors.As(err, &rejected) {
			writeError(w, http.StatusUnprocessableEntity, rejected.Reason)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h OrderHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	o, err := h.Repo.UpdateStatus(r.Context(), id, domain.OrderStatus(req.Status))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(*o, h.Currency))
}

func toOrderResponse(o domain.Order, currency string) map[string]any {
	items := make([]map[string]any, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]any{
			"id":     it.ID,
			"menuId": it.MenuID,
			"name":   it.Name,
			"price":  it.Price.Amount,
			"qty":    it.Qty,
			"note":   it.Note,
		})
	}
	return map[string]any{
		"id":            o.ID,
		"localId":       o.LocalID,
		"number":        o.Number,
		"shiftId":       o.ShiftID,
		"operatorName":  o.OperatorName,
		"subtotal":      o.Subtotal.Amount,
		"tax":           o.Tax.Amount,
		"discount":      o.Discount.Amount,
		"total":         o.Total.Amount,
		"currency":      currency,
		"paymentMethod": o.PaymentMethod,
		"status":        o.Status,
		"notes":         o.Notes,
		"items":         items,
		"createdAt":     o.CreatedAt,
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"kedaipos-backend/internal/domain"
	"kedaipos-backend/internal/repository"

	"github.com/go-chi/chi/v5"
)

type MenuHandler struct {
	Repo     repository.MenuRepository
	Currency string
}

func (h MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menus", h.list)
	r.Get("/menus/{id}", h.get)
	r.Post("/menus", h.save)
	r.Delete("/menus/{id}", h.delete)
}

func (h MenuHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.Repo.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toMenuResponses(items, h.Currency))
}

func (h MenuHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	m, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "menu not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toMenuResponse(*m, h.Currency))
}

func (h MenuHandler) save(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		CategoryID int64  `json:"categoryId"`
		Price      int64  `json:"price"`
		Image      string `json:"image"`
		Available  *bool  `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Price < 0 {
		writeError(w, http.StatusBadRequest, "price must not be negative")
		return
	}
	available := true
	if req.Available != nil {
		available = *req.Available
	}
	m, err := h.Repo.Save(r.Context(), domain.Menu{
		ID:         req.ID,
		Name:       req.Name,
		CategoryID: req.CategoryID,
		Price:      domain.Money{Amount: req.Price},
		Image:      req.Image,
		Available:  available,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "menu not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toMenuResponse(*m, h.Currency))
}

func (h MenuHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func toMenuResponses(items []domain.Menu, currency string) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, m := range items {
		out = append(out, toMenuResponse(m, currency))
	}
	return out
}

func toMenuResponse(m domain.Menu, currency string) map[string]any {
	return map[string]any{
		"id":         m.ID,
		"name":       m.Name,
		"category":   m.Category,
		"categoryId": m.CategoryID,
		"price":      m.Price.Amount,
		"currency":   currency,
		"image":      m.Image,
		"available":  m.Available,
		"version":    m.Version,
	}
}

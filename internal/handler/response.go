package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"kedaipos-backend/internal/domain"
	"kedaipos-backend/internal/repository"
)

type apiError struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
}

type apiResponse struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	Data    any       `json:"data"`
	Error   *apiError `json:"error,omitempty"`
}

func writeRawJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	writeRawJSON(w, status, apiResponse{
		Status: "ok",
		Data:   payload,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeErrorData(w, status, message, nil)
}

func writeErrorData(w http.ResponseWriter, status int, message string, data any) {
	if status < 400 {
		status = http.StatusInternalServerError
	}
	writeRawJSON(w, status, apiResponse{
		Status:  "error",
		Message: message,
		Data:    data,
		Error: &apiError{
			Code:   status,
			Status: http.StatusText(status),
		},
	})
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
// Unresolved orders carry the full blocking list so the operator sees
// everything at once.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		validation *domain.ValidationError
		closed     *domain.AlreadyClosedError
		unresolved *domain.UnresolvedOrdersError
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.Is(err, domain.ErrShiftNotFound), errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &closed):
		writeError(w, http.StatusConflict, closed.Error())
	case errors.As(err, &unresolved):
		blocking := make([]map[string]any, 0, len(unresolved.Orders))
		for _, o := range unresolved.Orders {
			blocking = append(blocking, map[string]any{
				"orderNumber": o.OrderNumber,
				"status":      o.Status,
			})
		}
		writeErrorData(w, http.StatusConflict, unresolved.Error(), map[string]any{
			"unresolvedOrders": blocking,
		})
	case errors.Is(err, repository.ErrOpenShiftExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

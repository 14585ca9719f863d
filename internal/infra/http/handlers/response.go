package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type ErrorResponse struct {
	Success bool                 `json:"success"`
	Error   string               `json:"error"`
	Message string               `json:"message"`
	Fields  []usecase.FieldError `json:"fields,omitempty"`
}

type DataResponse struct {
	Success bool        `json:"success"`
	Count   *int        `json:"count,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, DataResponse{Success: true, Data: data})
}

// writeError maps use case error kinds to status codes.
func writeError(w http.ResponseWriter, err error) {
	var (
		validation *usecase.ValidationError
		notFound   *usecase.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "VALIDATION_ERROR",
			Message: validation.Error(),
			Fields:  validation.Fields,
		})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "NOT_FOUND", Message: notFound.Error()})
	case usecase.IsStoreError(err):
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "STORE_ERROR", Message: "failed to access lead store"})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "INTERNAL_ERROR", Message: "unexpected error"})
	}
}

func writeInvalidJSON(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "INVALID_JSON", Message: "Invalid JSON: " + err.Error()})
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

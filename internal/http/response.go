package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"learnpath-backend-go/internal/services"
)

type ErrorResponse struct {
	Message string                `json:"message"`
	Issues  []services.FieldIssue `json:"issues,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Message: message})
}

func WriteValidationError(w http.ResponseWriter, message string, issues []services.FieldIssue) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{Message: message, Issues: issues})
}

// WriteServiceError maps a service error onto its HTTP status; anything
// unrecognized is a 500 with a generic body.
func WriteServiceError(w http.ResponseWriter, err error) {
	if verr, ok := services.AsValidationError(err); ok {
		WriteValidationError(w, verr.Message, verr.Issues)
		return
	}
	var serr services.ServiceError
	if errors.As(err, &serr) {
		WriteError(w, serr.Status, serr.Message)
		return
	}
	WriteError(w, http.StatusInternalServerError, "Internal server error")
}

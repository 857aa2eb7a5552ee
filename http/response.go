package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sagarc03/shelf"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError maps err to a status code and client-safe message. Storage and
// unexpected failures are logged and reported as an opaque 500.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *shelf.ValidationError

	switch {
	case errors.As(err, &verr):
		WriteError(w, http.StatusBadRequest, verr.Msg)
	case errors.Is(err, shelf.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, ErrBodyTooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
	case errors.Is(err, shelf.ErrUnauthorized):
		writeUnauthorized(w)
	case errors.Is(err, shelf.ErrForbidden):
		WriteError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, shelf.ErrNotFound):
		WriteError(w, http.StatusNotFound, "Item not found")
	case errors.Is(err, shelf.ErrConflict):
		WriteError(w, http.StatusConflict, "Item already exists")
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful can be written
		slog.Debug("request canceled", "request_id", middleware.GetReqID(r.Context()))
	default:
		slog.Error("request error",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	WriteError(w, http.StatusUnauthorized, "Unauthorized")
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}

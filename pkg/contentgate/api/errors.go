package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mediakit/contentgate/pkg/contentgate"
)

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, contentgate.ErrContentNotFound),
		errors.Is(err, contentgate.ErrVersionNotFound),
		errors.Is(err, contentgate.ErrGrantNotFound),
		errors.Is(err, contentgate.ErrPricingNotFound),
		errors.Is(err, contentgate.ErrPurchaseRequestNotFound),
		errors.Is(err, contentgate.ErrOrderNotFound),
		errors.Is(err, contentgate.ErrShareNotFound):
		return http.StatusNotFound
	case errors.Is(err, contentgate.ErrShareExpired):
		return http.StatusGone
	case errors.Is(err, contentgate.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, contentgate.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, contentgate.ErrInvalidTransition),
		errors.Is(err, contentgate.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// renderError logs the error and writes the mapped status code.
func renderError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "operation", operation, "path", r.URL.Path, "error", err)
	} else {
		slog.Info("Request rejected", "operation", operation, "path", r.URL.Path, "status", status, "error", err)
	}
	http.Error(w, err.Error(), status)
}

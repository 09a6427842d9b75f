// Package api holds the JSON response helpers shared by every HTTP handler.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sebuszqo/TaxManager/internal/apperrors"
	"github.com/sebuszqo/TaxManager/internal/logger"
	"go.uber.org/zap"
)

type JSONResponder func(w http.ResponseWriter, status int, payload interface{})

type ErrorResponder func(w http.ResponseWriter, status int, message string, errors ...map[string][]string)

func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("JSON encoding error", zap.Error(err))
	}
}

func RespondError(w http.ResponseWriter, status int, message string, errors ...map[string][]string) {
	payload := map[string]interface{}{
		"status":  "error",
		"message": message,
		"code":    status,
	}

	if len(errors) > 0 && len(errors[0]) > 0 {
		payload["errors"] = errors[0]
	}

	RespondJSON(w, status, payload)
}

// RespondServiceError maps the shared error taxonomy onto HTTP statuses.
// Anything unrecognised is logged and reported as internalMsg with a 500.
func RespondServiceError(ctx context.Context, respondError ErrorResponder, w http.ResponseWriter, err error, internalMsg string) {
	switch {
	case apperrors.IsValidationError(err):
		respondError(w, http.StatusUnprocessableEntity, "The given data was invalid.", apperrors.FieldErrors(err))
	case errors.Is(err, apperrors.ErrForbidden):
		respondError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, apperrors.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found")
	default:
		logger.FromContext(ctx).Error(internalMsg, zap.Error(err))
		respondError(w, http.StatusInternalServerError, internalMsg)
	}
}

// NotFound is the fallback for unmatched paths.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	RespondError(w, http.StatusNotFound, "Path not found")
}

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rosterhq/huddle/pkg/apperrors"
	"github.com/rosterhq/huddle/pkg/validator"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"code":   string(apperrors.CodeValidation),
			"fields": errs,
		},
	})
}

// respondError maps the service error taxonomy onto HTTP statuses. Unknown
// errors are logged and hidden behind a 500.
func respondError(w http.ResponseWriter, err error) {
	var ae *apperrors.AppError
	if errors.As(err, &ae) {
		status := http.StatusInternalServerError
		switch ae.Code {
		case apperrors.CodeValidation:
			status = http.StatusBadRequest
		case apperrors.CodeNotFound:
			status = http.StatusNotFound
		case apperrors.CodePermissionDenied:
			status = http.StatusForbidden
		case apperrors.CodeConflict:
			status = http.StatusConflict
		case apperrors.CodeUnavailable:
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, string(ae.Code), ae.Message)
		return
	}

	slog.Error("unhandled request error", "err", err)
	writeError(w, http.StatusInternalServerError, string(apperrors.CodeInternal), "Something went wrong")
}

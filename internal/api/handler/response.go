package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"repayment-engine/internal/api/handler/dto"
	"repayment-engine/internal/pkg/apperrors"
)

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// respondError maps domain errors to HTTP statuses. Errors reported by the
// lending API keep their code and message.
func respondError(w http.ResponseWriter, err error) {
	status, detail := http.StatusInternalServerError, dto.ErrorDetail{Message: "An unexpected error occurred."}
	var validationError *apperrors.ValidationError
	var appErr *apperrors.AppError

	switch {
	case errors.As(err, &validationError):
		status = http.StatusBadRequest
		detail = dto.ErrorDetail{Code: "VALIDATION_ERROR", Message: validationError.Message, Field: validationError.Field}
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation):
		status = http.StatusBadRequest
		detail.Message = err.Error()
	case errors.Is(err, apperrors.ErrAPI) && errors.As(err, &appErr):
		status = http.StatusBadGateway
		detail = dto.ErrorDetail{Code: appErr.Code, Message: appErr.Message}
	case errors.Is(err, apperrors.ErrTransport):
		status = http.StatusBadGateway
		detail = dto.ErrorDetail{Code: "TRANSPORT_ERROR", Message: "Lending API is unavailable."}
	case errors.Is(err, apperrors.ErrPersistenceDisabled):
		status = http.StatusServiceUnavailable
		detail = dto.ErrorDetail{Code: "PERSISTENCE_DISABLED", Message: "Persistence is disabled."}
	case errors.Is(err, apperrors.ErrNotFound):
		status, detail.Message = http.StatusNotFound, "Resource not found."
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, detail.Message = http.StatusUnauthorized, "Unauthorized"
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	respondJSON(w, status, dto.ErrorResponse{Error: detail})
}

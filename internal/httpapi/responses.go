package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"skillswap/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: message}})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteDomainError(w http.ResponseWriter, err error) {
	var (
		verr  *domain.ValidationError
		opErr *domain.InvalidOperationError
	)
	switch {
	case errors.As(err, &verr):
		WriteJSON(w, http.StatusBadRequest, errorEnvelope{Error: apiError{
			Code:    "validation_error",
			Message: "invalid request",
			Fields:  verr.Fields,
		}})
	case errors.Is(err, domain.ErrValidation):
		WriteError(w, http.StatusBadRequest, "validation_error", "invalid request")
	case errors.Is(err, domain.ErrEmailTaken):
		WriteError(w, http.StatusConflict, "email_taken", "email already taken")
	case errors.Is(err, domain.ErrDuplicateSwap):
		WriteError(w, http.StatusConflict, "duplicate_swap", "an open request for this skill pair already exists")
	case errors.Is(err, domain.ErrConflict):
		WriteError(w, http.StatusConflict, "conflict", "conflict")
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, domain.ErrUserBanned):
		WriteError(w, http.StatusForbidden, "user_banned", "account is banned")
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", "forbidden")
	case errors.As(err, &opErr):
		WriteError(w, http.StatusUnprocessableEntity, "invalid_operation", opErr.Reason)
	case errors.Is(err, domain.ErrInvalidOperation):
		WriteError(w, http.StatusUnprocessableEntity, "invalid_operation", "invalid operation")
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "not found")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeBadJSON(w http.ResponseWriter) {
	WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
}

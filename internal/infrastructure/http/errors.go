package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"fxconvert/internal/application"
	"fxconvert/internal/domain"
)

// errorBody is the JSON envelope for every non-2xx response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{application.ErrBadRequest, http.StatusBadRequest, "bad_request"},
	{domain.ErrUnknownCurrency, http.StatusBadRequest, "unknown_currency"},
	{domain.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{domain.ErrUnknownSetting, http.StatusBadRequest, "unknown_setting"},
	{domain.ErrInvalidSetting, http.StatusBadRequest, "invalid_setting"},
	{domain.ErrInvalidImport, http.StatusBadRequest, "invalid_import"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrDuplicateFavorite, http.StatusConflict, "duplicate_favorite"},
	{application.ErrConflict, http.StatusConflict, "conflict"},
	{domain.ErrFavoritesFull, http.StatusUnprocessableEntity, "favorites_full"},
	{domain.ErrAllProvidersExhausted, http.StatusServiceUnavailable, "providers_exhausted"},
	{domain.ErrProviderFailure, http.StatusBadGateway, "provider_failure"},
	{domain.ErrPersistence, http.StatusInternalServerError, "persistence"},
}

func statusFor(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Code: code, Message: msg})
}

// fail maps err to its status; internal errors hide their text.
func fail(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if code == "internal" {
		msg = http.StatusText(http.StatusInternalServerError)
	}
	writeError(w, status, code, msg)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, "bad_request", msg)
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"archie-core-merchant-onboarding/internal/domain"

	"github.com/rs/zerolog"
)

type errorBody struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	Action string `json:"action,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy onto HTTP statuses
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var (
		validationErr *domain.ValidationError
		tokenErr      *domain.TokenRefreshError
		connErr       *domain.ConnectionError
		persistErr    *domain.PersistenceError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: validationErr.Message, Field: validationErr.Field})
	case errors.As(err, &tokenErr):
		writeJSON(w, http.StatusConflict, errorBody{
			Error:  "Your store connection has expired. Please reconnect your store.",
			Action: "reconnect",
		})
	case errors.As(err, &connErr):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: connErr.Message})
	case errors.As(err, &persistErr):
		logger.Error().Err(err).Msg("Store unavailable")
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Service temporarily unavailable, please try again"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
	default:
		logger.Error().Err(err).Msg("Unhandled error")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return domain.NewValidationError("body", "Request body is not valid JSON")
	}
	return nil
}

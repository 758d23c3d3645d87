package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/procurement-service/internal/apperror"
)

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("handler: failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := apperror.KindOf(err)
	status, ok := map[apperror.Kind]int{
		apperror.KindNotFound:   http.StatusNotFound,
		apperror.KindConflict:   http.StatusConflict,
		apperror.KindValidation: http.StatusUnprocessableEntity,
	}[kind]
	if !ok {
		log.Error().Err(err).Msg("handler: internal error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: errorDetail{Code: string(apperror.KindInternal), Message: "internal server error"},
		})
		return
	}
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: string(kind), Message: err.Error()}})
}

// pathID parses a UUID URL parameter. A malformed value is a
// validation error, same as any other bad input.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.FromString(raw)
	if err != nil {
		return uuid.Nil, apperror.Validationf("invalid %s '%s'", name, raw)
	}
	return id, nil
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperror.Validationf("invalid request body")
	}
	return nil
}

func errInvalidQueryParam(name, raw string) error {
	return apperror.Validationf("invalid %s '%s'", name, raw)
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

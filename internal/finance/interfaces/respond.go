package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	financeErrors "github.com/sebuszqo/FinanceTracker/internal/finance/errors"
	"github.com/sebuszqo/FinanceTracker/internal/logger"
)

type (
	RespondJSONFunc  func(w http.ResponseWriter, status int, payload interface{})
	RespondErrorFunc func(w http.ResponseWriter, status int, message string, errors ...[]string)
)

func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func RespondError(w http.ResponseWriter, status int, message string, errors ...[]string) {
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

// responder is shared by every handler: response writers plus error translation.
type responder struct {
	respondJSON  RespondJSONFunc
	respondError RespondErrorFunc
	log          zerolog.Logger
}

func newResponder(respondJSON RespondJSONFunc, respondError RespondErrorFunc, log zerolog.Logger) responder {
	if respondJSON == nil {
		log.Fatal().Msg("RespondJSON function must not be nil")
	}
	if respondError == nil {
		log.Fatal().Msg("RespondError function must not be nil")
	}
	return responder{respondJSON: respondJSON, respondError: respondError, log: log}
}

func (h responder) success(w http.ResponseWriter, status int, message string, data interface{}) {
	h.respondJSON(w, status, map[string]interface{}{
		"status":  "success",
		"message": message,
		"data":    data,
	})
}

// serviceError maps domain errors to status codes. Anything unknown is logged and reported as 500
// with the fallback message so storage details do not leak.
func (h responder) serviceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var validationErrors *financeErrors.ValidationErrors
	switch {
	case errors.Is(err, financeErrors.ErrFileTooLarge):
		h.respondError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &validationErrors):
		messages := make([]string, len(validationErrors.Errors))
		for i, vErr := range validationErrors.Errors {
			messages[i] = vErr.Error()
		}
		h.respondError(w, http.StatusBadRequest, "Validation errors occurred", messages)
	case financeErrors.IsValidationError(err):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case financeErrors.IsNotFoundError(err):
		h.respondError(w, http.StatusNotFound, err.Error())
	case financeErrors.IsDuplicateError(err):
		h.respondError(w, http.StatusConflict, err.Error())
	default:
		reqLog := logger.FromContextOr(r.Context(), h.log)
		reqLog.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg(fallback)
		h.respondError(w, http.StatusInternalServerError, fallback)
	}
}

func (h responder) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}
	return userID, true
}

func (h responder) pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func (h responder) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// parseDateRange reads start_date and end_date (YYYY-MM-DD). Missing bounds stay zero.
// The end date is inclusive of the whole day.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	var from, to time.Time
	if s := r.URL.Query().Get("start_date"); s != "" {
		parsed, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return from, to, financeErrors.NewValidationError("Invalid start_date format. Use YYYY-MM-DD")
		}
		from = parsed
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		parsed, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return from, to, financeErrors.NewValidationError("Invalid end_date format. Use YYYY-MM-DD")
		}
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, financeErrors.NewValidationError("end_date must not be before start_date")
	}
	return from, to, nil
}

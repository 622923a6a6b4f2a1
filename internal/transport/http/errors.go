package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"anime-quiz-service/internal/domain"
)

type errorPayload struct {
	Message string `json:"message"`
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidSessionID),
		errors.Is(err, domain.ErrChoiceNotFound):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAnswerConflict), errors.Is(err, domain.ErrSessionFinished),
		errors.Is(err, domain.ErrInvalidAnswers), errors.Is(err, domain.ErrSessionNotFinished):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUpstreamInvalid):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError hides internal failures behind a generic message.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorPayload{Message: msg})
}

package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"anime-quiz-service/internal/app"
	"anime-quiz-service/internal/auth"
	"anime-quiz-service/internal/domain"
	"go.uber.org/zap"
)

// APIHandler serves the JSON game API.
type APIHandler struct {
	service    *app.GameService
	sweeper    *app.Sweeper
	cronSecret string
	logger     *zap.Logger
}

func NewAPIHandler(service *app.GameService, sweeper *app.Sweeper, cronSecret string, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{service: service, sweeper: sweeper, cronSecret: cronSecret, logger: logger}
}

// Register mounts the API routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/games", h.createGame)
	mux.HandleFunc("GET /api/games/{id}", h.getGame)
	mux.HandleFunc("GET /api/games/{id}/round-data", h.getRoundData)
	mux.HandleFunc("PUT /api/games/{id}/answers", h.submitAnswers)
	mux.HandleFunc("DELETE /api/games/{id}", h.deleteGame)
	mux.HandleFunc("GET /api/games/{id}/results", h.results)
	mux.HandleFunc("POST /api/cron", h.cron)
}

type createGameRequest struct {
	Amount int `json:"amount"`
}

type createGameResponse struct {
	ID string `json:"id"`
}

type submitAnswersRequest struct {
	Answers    []domain.Answer `json:"answers"`
	IsFinished bool            `json:"isFinished"`
}

type cronResponse struct {
	Deleted int64 `json:"deleted"`
}

func (h *APIHandler) createGame(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	if caller.ID == "" {
		writeError(w, domain.ErrUnauthorized)
		return
	}
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid json"})
		return
	}
	id, err := h.service.CreateGame(r.Context(), caller.ID, caller.Name, req.Amount)
	if err != nil {
		h.logFailure("create game", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createGameResponse{ID: id})
}

func (h *APIHandler) getGame(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetGame(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *APIHandler) getRoundData(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.GetRoundData(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logFailure("round data", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *APIHandler) submitAnswers(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	if caller.ID == "" {
		writeError(w, domain.ErrUnauthorized)
		return
	}
	var req submitAnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid json"})
		return
	}
	if err := h.service.SubmitAnswers(r.Context(), caller.ID, r.PathValue("id"), req.Answers, req.IsFinished); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) deleteGame(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	if err := h.service.DeleteGame(r.Context(), caller.ID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// results sends visitors of unknown, malformed or unfinished games home
// instead of failing.
func (h *APIHandler) results(w http.ResponseWriter, r *http.Request) {
	card, err := h.service.Results(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrSessionNotFinished) ||
			errors.Is(err, domain.ErrInvalidSessionID) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		domain.ShareCard
		PreviewQuery string `json:"previewQuery"`
	}{card, card.Query().Encode()})
}

// cron runs one sweep. A wrong or missing secret answers 404 so the endpoint
// is indistinguishable from an unknown route.
func (h *APIHandler) cron(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if h.cronSecret == "" || h.sweeper == nil ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) != 1 {
		http.NotFound(w, r)
		return
	}
	n, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cronResponse{Deleted: n})
}

func (h *APIHandler) logFailure(op string, err error) {
	if statusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", zap.Error(err))
	}
}

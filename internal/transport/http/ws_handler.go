package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"anime-quiz-service/internal/app"
	"anime-quiz-service/internal/auth"
	"anime-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// WSHandler plays a game round by round over a WebSocket.
type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSHandler(service *app.GameService, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type pickPayload struct {
	ItemID string `json:"itemId"`
}

type answerResult struct {
	Index      int         `json:"index"`
	Picked     domain.Item `json:"picked"`
	Correct    domain.Item `json:"correct"`
	WasCorrect bool        `json:"wasCorrect"`
}

type finishedPayload struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS resumes the caller's game at its first unanswered round. The
// controller only advances once the store acknowledged an answer, so a failed
// pick is reported and may be sent again.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	if caller.ID == "" {
		writeError(w, domain.ErrUnauthorized)
		return
	}
	gameID := r.URL.Query().Get("gameId")
	if gameID == "" {
		http.Error(w, "missing gameId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	ctx := r.Context()
	log := h.logger.With(zap.String("session", gameID), zap.String("owner", caller.ID))

	c, err := h.service.NewController(ctx, caller.ID, gameID)
	if err != nil {
		h.send(conn, "error", errorPayload{Message: err.Error()})
		return
	}
	if !h.present(conn, c) {
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("ws read ended", zap.Error(err))
			}
			return
		}
		switch inbound.Type {
		case "pick":
			var payload pickPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.ItemID == "" {
				h.send(conn, "error", errorPayload{Message: "invalid pick payload"})
				continue
			}
			index := c.Index()
			answer, err := c.Pick(ctx, payload.ItemID)
			if err != nil {
				if !errors.Is(err, domain.ErrChoiceNotFound) {
					log.Warn("pick not recorded", zap.Int("round", index), zap.Error(err))
				}
				h.send(conn, "error", errorPayload{Message: err.Error()})
				continue
			}
			if !h.send(conn, "answerResult", answerResult{
				Index:      index,
				Picked:     answer.Picked,
				Correct:    answer.Expected(),
				WasCorrect: answer.WasCorrect(),
			}) {
				return
			}
			if !h.present(conn, c) {
				return
			}
		case "exit":
			if err := c.Exit(ctx); err != nil {
				h.send(conn, "error", errorPayload{Message: err.Error()})
				continue
			}
			log.Info("game abandoned", zap.Int("answered", c.Index()))
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "exited"), time.Now().Add(writeWait))
			return
		default:
			h.send(conn, "error", errorPayload{Message: "unsupported message type"})
		}
	}
}

// present sends the current round, or the final score once the game is over.
// It reports whether the connection should stay open.
func (h *WSHandler) present(conn *websocket.Conn, c *app.Controller) bool {
	if c.State() == app.StateFinished {
		h.send(conn, "finished", finishedPayload{Score: c.Score(), Total: c.Total()})
		return false
	}
	round, err := c.Round()
	if err != nil {
		h.send(conn, "error", errorPayload{Message: err.Error()})
		return false
	}
	return h.send(conn, "round", round)
}

func (h *WSHandler) send(conn *websocket.Conn, typ string, payload any) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(outboundMessage[any]{Type: typ, Payload: payload}); err != nil {
		h.logger.Debug("ws write error", zap.Error(err))
		return false
	}
	return true
}

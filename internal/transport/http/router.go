package http

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"anime-quiz-service/internal/auth"
	"go.uber.org/zap"
)

// RouterDeps are the pieces NewRouter mounts. Metrics may be nil.
type RouterDeps struct {
	API     *APIHandler
	WS      *WSHandler
	Auth    *auth.Authenticator
	Metrics http.Handler
	Logger  *zap.Logger
}

// NewRouter builds the service mux with identity and request logging applied.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}
	deps.API.Register(mux)
	mux.HandleFunc("GET /ws/play", deps.WS.ServeWS)

	var h http.Handler = mux
	h = deps.Auth.Middleware(h)
	return loggingMiddleware(deps.Logger, h)
}

func loggingMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		logger.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades through the wrapper.
func (w *statusResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

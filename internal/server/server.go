package server

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// New creates a configured HTTP server with all routes registered.
func New(hub *Hub, addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      NewHandler(hub),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewHandler returns the routed handler of the server, wrapped in the
// logging and CORS middleware.
func NewHandler(hub *Hub) http.Handler {
	mux := http.NewServeMux()
	h := &Handlers{
		Hub:       hub,
		StartTime: time.Now(),
	}

	// REST API routes.
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /api/rooms", h.ListRooms)
	mux.HandleFunc("POST /api/rooms/{room}/messages", h.SendMessage)
	mux.HandleFunc("GET /api/rooms/{room}/messages/latest", h.LatestMessages)
	mux.HandleFunc("GET /api/rooms/{room}/messages", h.GetMessages)

	// Submessage routes.
	mux.HandleFunc("POST /api/rooms/{room}/messages/{id}/submessages", h.AddSubmessage)
	mux.HandleFunc("GET /api/rooms/{room}/messages/{id}/submessages", h.GetSubmessages)
	mux.HandleFunc("GET /api/rooms/{room}/messages/{id}/widget", h.GetWidget)

	mux.HandleFunc("GET /api/rooms/{room}/participants", h.ListParticipants)
	mux.HandleFunc("GET /api/rooms/{room}/synopsis", h.Synopsis)

	// WebSocket route.
	mux.HandleFunc("GET /ws/{room}", h.HandleWS)

	return loggingMiddleware(corsMiddleware(mux))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack passes WebSocket upgrades through to the underlying connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Microsecond),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Package server exposes expression evaluation over HTTP.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/petal-labs/fractions/bus"
	"github.com/petal-labs/fractions/history"
	"github.com/petal-labs/fractions/runtime"
	"github.com/petal-labs/fractions/sse"
)

// ServerConfig configures a Server instance.
type ServerConfig struct {
	Runtime    *runtime.Runtime
	Bus        bus.EventBus
	EventStore bus.EventStore
	History    history.Store
	CORSOrigin string
	MaxBody    int64
	// MaxBatch caps the number of expressions per batch request (default 1000).
	MaxBatch int
	// SSEOptions are passed to the session event stream handler.
	SSEOptions []sse.Option
	Logger     *slog.Logger
}

// Server is the fractions HTTP API server.
type Server struct {
	runtime    *runtime.Runtime
	bus        bus.EventBus
	eventStore bus.EventStore
	history    history.Store
	events     http.Handler
	corsOrigin string
	maxBody    int64
	maxBatch   int
	logger     *slog.Logger
}

// NewServer creates a new Server with the given configuration.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	corsOrigin := cfg.CORSOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	maxBody := cfg.MaxBody
	if maxBody <= 0 {
		maxBody = 1 << 20 // 1 MB default
	}
	maxBatch := cfg.MaxBatch
	if maxBatch <= 0 {
		maxBatch = 1000
	}
	rt := cfg.Runtime
	if rt == nil {
		rt = runtime.NewRuntime(runtime.Options{EventBus: cfg.Bus})
	}

	s := &Server{
		runtime:    rt,
		bus:        cfg.Bus,
		eventStore: cfg.EventStore,
		history:    cfg.History,
		corsOrigin: corsOrigin,
		maxBody:    maxBody,
		maxBatch:   maxBatch,
		logger:     logger,
	}
	if cfg.Bus != nil {
		s.events = sse.NewSSEHandler(cfg.EventStore, cfg.Bus, cfg.SSEOptions...)
	}
	return s
}

// Handler returns an http.Handler with all routes and middleware wired.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	var handler http.Handler = mux
	handler = s.corsMiddleware(handler)
	handler = s.maxBodyMiddleware(handler)

	return handler
}

// RegisterRoutes mounts the API routes onto an existing mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/operators", s.handleListOperators)
	mux.HandleFunc("POST /api/evaluate", s.handleEvaluate)
	mux.HandleFunc("POST /api/evaluate/batch", s.handleEvaluateBatch)
	mux.HandleFunc("GET /api/history", s.handleListHistory)
	mux.HandleFunc("DELETE /api/history", s.handleClearHistory)
	mux.HandleFunc("GET /api/sessions/{session_id}/events", s.handleSessionEvents)
	mux.HandleFunc("DELETE /api/sessions/{session_id}", s.handleCloseSession)
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) maxBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		next.ServeHTTP(w, r)
	})
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// apiError is the standard error envelope.
type apiError struct {
	Error apiErrorBody `json:"error"`
}

type apiErrorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string, details ...string) {
	body := apiError{
		Error: apiErrorBody{
			Code:    code,
			Message: message,
		},
	}
	if len(details) > 0 {
		body.Error.Details = details
	}
	writeJSON(w, status, body)
}

package shell

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zombor/ndc-scanner/internal/capture"
)

// Controller is the part of capture.Controller the shell drives
type Controller interface {
	StartCapture() bool
	Reset()
	Snapshot() capture.Snapshot
	Subscribe() (<-chan capture.Snapshot, func(), error)
}

// Server exposes the capture controller to a presentation layer over HTTP
type Server struct {
	controller Controller
	mux        *http.ServeMux
	upgrader   websocket.Upgrader
}

// NewServer creates a new Server with default mux
func NewServer(controller Controller) *Server {
	return NewServerWithMux(controller, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(controller Controller, mux *http.ServeMux) *Server {
	s := &Server{
		controller: controller,
		mux:        mux,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			// CORS is wide open for the API, so the socket is too
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.registerRoutes()
	return s
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/session/updates", s.handleUpdates)
	s.mux.HandleFunc("GET /api/session", s.handleGetSession)
	s.mux.HandleFunc("DELETE /api/session", s.handleReset)
	s.mux.HandleFunc("POST /api/capture", s.handleCapture)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s.corsMiddleware(s.mux))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.corsMiddleware(s.mux).ServeHTTP(w, r)
}

package shell

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zombor/ndc-scanner/internal/capture"
)

const writeWait = 10 * time.Second

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes v with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes an error message as JSON
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{
		"error": message,
	})
}

// handleCapture triggers a capture attempt
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	if !s.controller.StartCapture() {
		writeError(w, http.StatusConflict, "A capture is already in progress")
		return
	}
	writeJSON(w, http.StatusAccepted, s.controller.Snapshot())
}

// handleGetSession returns the current session snapshot
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

// handleReset dismisses the current result; it blocks while an attempt is in flight
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.controller.Reset()
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpdates streams every session snapshot over a websocket. Only one stream may be
// open at a time.
func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	updates, unsubscribe, err := s.controller.Subscribe()
	if err != nil {
		if errors.Is(err, capture.ErrAlreadySubscribed) {
			writeError(w, http.StatusConflict, "Another client is already following this session")
			return
		}
		slog.Error("Error subscribing to session", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Session is not available")
		return
	}
	defer unsubscribe()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		slog.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// The client never sends anything meaningful; reading detects when it goes away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "controller closed"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				slog.Warn("Error writing session update", "error", err)
				return
			}
		case <-closed:
			return
		}
	}
}

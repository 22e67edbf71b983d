package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"
)

// Server exposes the engine as named request/response calls over plain HTTP
// and over a WebSocket.
type Server struct {
	dispatcher *Dispatcher
	token      string
	logger     logr.Logger
	upgrader   websocket.Upgrader
}

func New(engine Engine, token string, callTimeout time.Duration, logger logr.Logger) *Server {
	return &Server{
		dispatcher: NewDispatcher(engine, callTimeout),
		token:      token,
		logger:     logger.WithName("server"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "commands": Commands()})
	})
	mux.HandleFunc("/invoke/{command}", s.handleInvoke)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// handleInvoke answers GET or POST /invoke/<command>. kill_process takes the
// pid from ?pid= or from a JSON body {"pid": "..."}.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if !checkAuth(r, s.token) {
		writeJSON(w, http.StatusUnauthorized, Response{Error: "unauthorized"})
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}

	req := Request{Command: r.PathValue("command"), PID: r.URL.Query().Get("pid")}
	if r.Method == http.MethodPost && r.ContentLength != 0 {
		var body struct {
			PID string `json:"pid"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, Response{Command: req.Command, Error: "invalid body"})
			return
		}
		if body.PID != "" {
			req.PID = body.PID
		}
	}

	result, err := s.dispatcher.Call(r.Context(), req)
	if err != nil {
		writeJSON(w, statusFor(err), Response{Command: req.Command, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, Response{Command: req.Command, Result: result})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, ErrBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !checkAuth(r, s.token) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error(err, "ws upgrade")
		return
	}
	defer conn.Close()
	s.logger.V(1).Info("ws client connected", "remote", r.RemoteAddr)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.V(1).Info("ws read", "error", err)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			if err := conn.WriteJSON(Response{Error: "invalid message"}); err != nil {
				return
			}
			continue
		}

		resp := Response{ID: req.ID, Command: req.Command}
		if result, err := s.dispatcher.Call(r.Context(), req); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Result = result
		}
		if err := conn.WriteJSON(resp); err != nil {
			s.logger.V(1).Info("ws write", "error", err)
			return
		}
	}
}

func checkAuth(r *http.Request, token string) bool {
	if token == "" {
		return true
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if strings.TrimPrefix(auth, "Bearer ") == token {
			return true
		}
	}
	// WebSocket clients in browsers cannot set headers.
	return r.URL.Query().Get("token") == token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

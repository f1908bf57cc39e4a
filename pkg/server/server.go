package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/k-fujimoto/careerchat/pkg/model"
	"github.com/k-fujimoto/careerchat/pkg/usecase/turn"
	"github.com/k-fujimoto/careerchat/pkg/utils/logging"
)

// Server exposes the chat surface a browser attaches to: session info,
// the transcript, message submission, and an SSE event stream.
type Server struct {
	orchestrator *turn.Orchestrator
	hub          *Hub
	session      *model.Session
}

func New(orchestrator *turn.Orchestrator, hub *Hub, session *model.Session) *Server {
	return &Server{
		orchestrator: orchestrator,
		hub:          hub,
		session:      session,
	}
}

// Router builds the HTTP routes
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Get("/session", s.getSession)
		api.Get("/messages", s.getMessages)
		api.Post("/messages", s.postMessage)
		api.Post("/notice/dismiss", s.dismissNotice)
		api.Get("/events", s.streamEvents)
	})

	return r
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"userId": string(s.session.UserID()),
		"ready":  s.session.Ready(),
	})
}

func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.hub.Messages())
}

type postMessageRequest struct {
	Text string `json:"text"`
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.orchestrator.Submit(r.Context(), req.Text); err != nil {
		if errors.Is(err, turn.ErrBusy) {
			respondError(w, http.StatusConflict, "a turn is already in flight")
			return
		}
		// The user-facing outcome is already on the notification surface
		logging.From(r.Context()).Warn("turn ended with error", "error", err)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  string(s.orchestrator.State()),
	})
}

func (s *Server) dismissNotice(w http.ResponseWriter, r *http.Request) {
	s.hub.Clear()
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Default().Warn("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Package web provides the HTTP status page and control API for the
// wol-switch daemon.
package web

import (
	"context"
	"encoding/json"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sweeney/wol-switch/internal/status"
	"github.com/sweeney/wol-switch/internal/wakeswitch"
)

// Controller is the part of the switch the API drives.
type Controller interface {
	Activate(src wakeswitch.Source) wakeswitch.Event
	Deactivate(src wakeswitch.Source) wakeswitch.Event
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	ctl        Controller
}

// New creates a Server that reads state from tracker and drives ctl.
func New(addr string, tracker *status.Tracker, ctl Controller) *Server {
	s := &Server{tracker: tracker, ctl: ctl}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Routes returns the HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.handleIndex)
	r.Get("/index.html", s.handleIndex)
	r.Get("/index.json", s.handleJSON)
	r.Post("/api/wake", s.handleWake)
	r.Post("/api/clear", s.handleClear)
	return r
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleWake(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.ctl.Activate(wakeswitch.SourceHTTP))
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.ctl.Deactivate(wakeswitch.SourceHTTP))
}

// EventJSON is the API response for wake and clear.
type EventJSON struct {
	ID        string `json:"id"`
	Event     string `json:"event"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
	Attempts  int    `json:"attempts"`
	Failures  int    `json:"failures"`
	Switch    string `json:"switch"`
}

// respond redirects HTML form posts back to the status page and answers
// everything else with the event as JSON.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, e wakeswitch.Event) {
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "application/x-www-form-urlencoded" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(EventJSON{
		ID:        e.ID,
		Event:     string(e.Type),
		Source:    string(e.Source),
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
		Attempts:  e.Attempts,
		Failures:  e.Failures,
		Switch:    status.SwitchState(s.tracker.Snapshot().On),
	})
}

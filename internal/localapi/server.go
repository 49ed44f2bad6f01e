// Package localapi serves the operator console surface on localhost: task
// registry proxy, live view projections, artifact listing, and a websocket
// hub re-broadcasting view updates.
package localapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"taskdeck/internal/files"
	"taskdeck/internal/historydb"
	"taskdeck/internal/registry"
	"taskdeck/internal/taskview"
)

type TaskRegistry interface {
	ListTasks(ctx context.Context) ([]registry.Task, error)
	GetTask(ctx context.Context, taskID string) (registry.Task, error)
	CreateTask(ctx context.Context, description string) (registry.Task, error)
	CancelTask(ctx context.Context, taskID string) error
	SendMessage(ctx context.Context, taskID, message string) error
}

type ArtifactLister interface {
	List(ctx context.Context, taskID string) ([]files.Artifact, error)
}

// ViewSource is the read side of one attached stream.
type ViewSource interface {
	Snapshot() taskview.TaskView
	SendCommand(ctx context.Context, content string) bool
}

// StreamSession owns at most one attached stream at a time.
type StreamSession interface {
	Attach(taskID string) ViewSource
	Detach()
	Current() (ViewSource, string, bool)
}

type History interface {
	Recent(limit int) ([]historydb.Entry, error)
}

type Deps struct {
	Registry TaskRegistry
	Files    ArtifactLister
	Streams  StreamSession
	History  History
}

type Server struct {
	deps Deps
	mux  *http.ServeMux
	hub  *WSHub
}

func NewServer(deps Deps) *Server {
	s := &Server{deps: deps, mux: http.NewServeMux(), hub: NewWSHub()}
	s.registerTaskRoutes()
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/ws", s.hub.HandleWS)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Hub exposes the broadcast side so the stream wiring can publish updates.
func (s *Server) Hub() *WSHub {
	return s.hub
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, taskID, attached := currentSession(s.deps.Streams)
	respondOK(w, map[string]any{
		"status":   "ok",
		"attached": attached,
		"task_id":  taskID,
	})
}

func currentSession(streams StreamSession) (ViewSource, string, bool) {
	if streams == nil {
		return nil, "", false
	}
	return streams.Current()
}

func respondOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": data})
}

func respondAccepted(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "data": data})
}

func respondError(w http.ResponseWriter, code int, errCode string, msg string) {
	writeJSON(w, code, map[string]any{"ok": false, "error": map[string]any{"code": errCode, "message": msg}})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func trimTaskPath(path string) (taskID, rest string, ok bool) {
	p := strings.TrimPrefix(path, "/api/tasks/")
	if p == path || p == "" {
		return "", "", false
	}
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i], p[i:], p[:i] != ""
	}
	return p, "", true
}

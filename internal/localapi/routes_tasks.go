package localapi

import (
	"encoding/json"
	"net/http"
	"strings"
)

func (s *Server) registerTaskRoutes() {
	s.mux.HandleFunc("/api/tasks", s.handleTasks)
	s.mux.HandleFunc("/api/tasks/", s.handleTaskActions)
	s.mux.HandleFunc("/api/history", s.handleHistory)
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if s.deps.Registry == nil {
		respondError(w, http.StatusServiceUnavailable, "REGISTRY_UNAVAILABLE", "task registry is not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		tasks, err := s.deps.Registry.ListTasks(r.Context())
		if err != nil {
			respondError(w, http.StatusBadGateway, "REGISTRY_ERROR", err.Error())
			return
		}
		respondOK(w, map[string]any{"tasks": tasks})
	case http.MethodPost:
		var body struct {
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "BAD_BODY", err.Error())
			return
		}
		if strings.TrimSpace(body.Description) == "" {
			respondError(w, http.StatusBadRequest, "BAD_BODY", "description is required")
			return
		}
		task, err := s.deps.Registry.CreateTask(r.Context(), body.Description)
		if err != nil {
			respondError(w, http.StatusBadGateway, "REGISTRY_ERROR", err.Error())
			return
		}
		respondOK(w, task)
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use GET or POST")
	}
}

func (s *Server) handleTaskActions(w http.ResponseWriter, r *http.Request) {
	taskID, rest, ok := trimTaskPath(r.URL.Path)
	if !ok {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "task id is required")
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodGet:
		s.handleGetTask(w, r, taskID)
	case rest == "/view" && r.Method == http.MethodGet:
		s.handleTaskView(w, r, taskID)
	case rest == "/files" && r.Method == http.MethodGet:
		s.handleTaskFiles(w, r, taskID)
	case rest == "/message" && r.Method == http.MethodPost:
		s.handleTaskMessage(w, r, taskID)
	case rest == "/cancel" && r.Method == http.MethodPost:
		s.handleTaskCancel(w, r, taskID)
	case rest == "/watch" && r.Method == http.MethodPost:
		s.handleTaskWatch(w, r, taskID)
	case rest == "/watch" && r.Method == http.MethodDelete:
		s.handleTaskUnwatch(w, r, taskID)
	default:
		respondError(w, http.StatusNotFound, "NOT_FOUND", "unsupported task action")
	}
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request, taskID string) {
	if s.deps.Registry == nil {
		respondError(w, http.StatusServiceUnavailable, "REGISTRY_UNAVAILABLE", "task registry is not configured")
		return
	}
	task, err := s.deps.Registry.GetTask(r.Context(), taskID)
	if err != nil {
		respondError(w, http.StatusBadGateway, "REGISTRY_ERROR", err.Error())
		return
	}
	respondOK(w, task)
}

// handleTaskView serves the projections of the attached stream. Requesting a
// task that is not attached attaches it, tearing down any previous stream.
func (s *Server) handleTaskView(w http.ResponseWriter, _ *http.Request, taskID string) {
	if s.deps.Streams == nil {
		respondError(w, http.StatusServiceUnavailable, "STREAM_UNAVAILABLE", "stream session is not configured")
		return
	}
	source := s.deps.Streams.Attach(taskID)
	respondOK(w, ViewPayload(source.Snapshot()))
}

func (s *Server) handleTaskFiles(w http.ResponseWriter, r *http.Request, taskID string) {
	if s.deps.Files == nil {
		respondError(w, http.StatusServiceUnavailable, "FILES_UNAVAILABLE", "file listing is not configured")
		return
	}
	artifacts, err := s.deps.Files.List(r.Context(), taskID)
	if err != nil {
		respondError(w, http.StatusBadGateway, "FILES_ERROR", err.Error())
		return
	}
	respondOK(w, map[string]any{"files": artifacts})
}

// handleTaskMessage prefers the attached stream's outbound channel and falls
// back to the registry's REST endpoint. A message dropped because the stream
// is not open is still a 202; delivery is at-most-once.
func (s *Server) handleTaskMessage(w http.ResponseWriter, r *http.Request, taskID string) {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_BODY", err.Error())
		return
	}
	if strings.TrimSpace(body.Content) == "" {
		respondError(w, http.StatusBadRequest, "BAD_BODY", "content is required")
		return
	}

	if source, attachedID, ok := currentSession(s.deps.Streams); ok && attachedID == taskID {
		delivered := source.SendCommand(r.Context(), body.Content)
		respondAccepted(w, map[string]any{"delivered": delivered, "via": "stream"})
		return
	}
	if s.deps.Registry != nil {
		if err := s.deps.Registry.SendMessage(r.Context(), taskID, body.Content); err != nil {
			respondError(w, http.StatusBadGateway, "REGISTRY_ERROR", err.Error())
			return
		}
		respondAccepted(w, map[string]any{"delivered": true, "via": "registry"})
		return
	}
	respondAccepted(w, map[string]any{"delivered": false, "via": "none"})
}

func (s *Server) handleTaskCancel(w http.ResponseWriter, r *http.Request, taskID string) {
	if s.deps.Registry == nil {
		respondError(w, http.StatusServiceUnavailable, "REGISTRY_UNAVAILABLE", "task registry is not configured")
		return
	}
	if err := s.deps.Registry.CancelTask(r.Context(), taskID); err != nil {
		respondError(w, http.StatusBadGateway, "REGISTRY_ERROR", err.Error())
		return
	}
	respondOK(w, map[string]any{"status": "cancelled"})
}

func (s *Server) handleTaskWatch(w http.ResponseWriter, _ *http.Request, taskID string) {
	if s.deps.Streams == nil {
		respondError(w, http.StatusServiceUnavailable, "STREAM_UNAVAILABLE", "stream session is not configured")
		return
	}
	s.deps.Streams.Attach(taskID)
	respondOK(w, map[string]any{"task_id": taskID, "attached": true})
}

func (s *Server) handleTaskUnwatch(w http.ResponseWriter, _ *http.Request, taskID string) {
	if s.deps.Streams == nil {
		respondError(w, http.StatusServiceUnavailable, "STREAM_UNAVAILABLE", "stream session is not configured")
		return
	}
	if _, attachedID, ok := s.deps.Streams.Current(); !ok || attachedID != taskID {
		respondError(w, http.StatusNotFound, "NOT_ATTACHED", "task is not attached")
		return
	}
	s.deps.Streams.Detach()
	respondOK(w, map[string]any{"task_id": taskID, "attached": false})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		respondError(w, http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "history store is not configured")
		return
	}
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use GET")
		return
	}
	entries, err := s.deps.History.Recent(50)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "HISTORY_ERROR", err.Error())
		return
	}
	respondOK(w, map[string]any{"tasks": entries})
}

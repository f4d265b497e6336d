package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"weibo-insight-go/internal/cache"
	"weibo-insight-go/internal/config"
	"weibo-insight-go/internal/store"
	"weibo-insight-go/internal/task"
)

type Server struct {
	manager  *task.Manager
	pipeline *task.Pipeline
	mux      *http.ServeMux
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewServer wires the HTTP surface over a task manager. The pipeline is
// only needed for the topic-crawl trigger; tests pass nil and a stub
// runner instead.
func NewServer(manager *task.Manager, pipeline *task.Pipeline) *Server {
	s := &Server{
		manager:  manager,
		pipeline: pipeline,
		mux:      http.NewServeMux(),
		cache:    cache.NewFromConfig(config.AppConfig),
		cacheTTL: cache.DefaultTTL(config.AppConfig),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("POST /api/tasks", s.handleStartTask)
	s.mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	s.mux.HandleFunc("GET /api/tasks/{id}", s.handleGetTask)
	s.mux.HandleFunc("POST /api/tasks/{id}/stop", s.handleStopTask)
	s.mux.HandleFunc("POST /api/topics/crawl", s.handleTopicCrawl)
	s.mux.HandleFunc("GET /api/tasks/{id}/tree", s.handleTree)
	s.mux.HandleFunc("GET /api/tasks/{id}/rank", s.handleRank)
	s.mux.HandleFunc("GET /api/tasks/{id}/rank.xlsx", s.handleRankXlsx)
	s.mux.HandleFunc("GET /api/tasks/{id}/trend", s.handleTrend)
	s.mux.HandleFunc("GET /api/tasks/{id}/wordcloud", s.handleWordcloud)
	s.mux.HandleFunc("GET /api/tasks/{id}/reposts", s.handleReposts)
	s.mux.HandleFunc("GET /logs", s.handleLogs)
	s.mux.HandleFunc("GET /api/logs", s.handleLogs)
	s.mux.HandleFunc("GET /api/fragments", s.handleFragments)
	s.mux.HandleFunc("GET /ws/logs", s.handleWSLogs)
	s.mux.HandleFunc("GET /ws/status", s.handleWSStatus)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type startTaskRequest struct {
	WeiboID     string `json:"weibo_id"`
	TopicTaskID string `json:"tag_task_id,omitempty"`
}

func (s *Server) handleStartTask(w http.ResponseWriter, r *http.Request) {
	var req startTaskRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.WeiboID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "weibo_id is required"})
		return
	}
	taskID, err := s.manager.Start(req.WeiboID, req.TopicTaskID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	st, _ := s.manager.Get(taskID)
	writeJSON(w, http.StatusAccepted, st)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tasks": s.manager.List()})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	st, ok := s.manager.Get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown task"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleStopTask(w http.ResponseWriter, r *http.Request) {
	stopped := s.manager.Stop(r.PathValue("id"))
	writeJSON(w, http.StatusAccepted, map[string]any{"stopped": stopped})
}

func (s *Server) handleTopicCrawl(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "crawler not configured"})
		return
	}
	// The crawl outlives the triggering request.
	go func() {
		_ = s.pipeline.RunTopicCrawl(context.Background(), s.manager)
	}()
	writeJSON(w, http.StatusAccepted, map[string]any{"started": true})
}

func (s *Server) handleReposts(w http.ResponseWriter, r *http.Request) {
	records, err := store.FindReposts(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reposts": records})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

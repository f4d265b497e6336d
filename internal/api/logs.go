package api

import (
	"net/http"
	"strconv"
	"strings"

	"weibo-insight-go/internal/logger"
)

// handleLogs serves retained log history; a task_id query narrows it to
// one task's records.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(r.URL.Query().Get("task_id"))
	writeJSON(w, http.StatusOK, map[string]any{"logs": logger.RecentForTask(taskID, limitParam(r, 100))})
}

// handleFragments exposes the ring of page fragments the parsers refused,
// so template drift can be inspected without digging through logs.
func (s *Server) handleFragments(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(r.URL.Query().Get("task_id"))
	writeJSON(w, http.StatusOK, map[string]any{"fragments": logger.FragmentsForTask(taskID, limitParam(r, 50))})
}

func limitParam(r *http.Request, def int) int {
	limit := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 2000 {
		limit = 2000
	}
	return limit
}

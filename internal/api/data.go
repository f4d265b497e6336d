package api

import (
	"encoding/json"
	"net/http"

	"weibo-insight-go/internal/cache"
	"weibo-insight-go/internal/store"
	"weibo-insight-go/internal/task"
)

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	s.serveDoc(w, r, r.PathValue("id"), store.LoadTree, "tree")
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	s.serveDoc(w, r, r.PathValue("id"), store.LoadKeyNodes, "rank")
}

func (s *Server) handleWordcloud(w http.ResponseWriter, r *http.Request) {
	s.serveDoc(w, r, r.PathValue("id"), store.LoadWordCloud, "wordcloud")
}

// handleTrend serves the stored per-day buckets; when no document was
// persisted it falls back to grouping the reposts on the fly, so a trend
// is available while a task is still running.
func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("id")
	raw, ok, err := store.LoadTendency(taskID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	if ok {
		writeRawDoc(w, raw)
		return
	}
	points, err := store.Tendency(taskID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// handleRankXlsx streams the key-node ranking as a workbook download.
func (s *Server) handleRankXlsx(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("id")
	raw, ok, err := store.LoadKeyNodes(taskID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "no ranking for task"})
		return
	}
	var doc task.NodeDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	f, err := store.KeyNodesWorkbook(taskID, doc.KeyNodes)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	defer f.Close()

	w.Header().Set("content-type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("content-disposition", `attachment; filename="rank_`+taskID+`.xlsx"`)
	_ = f.Write(w)
}

// serveDoc answers from the response cache when it can; analysis documents
// only change when a task is re-run, so a TTL entry is safe.
func (s *Server) serveDoc(w http.ResponseWriter, r *http.Request, taskID string,
	load func(string) (json.RawMessage, bool, error), name string) {
	cacheKey := cache.DocKey(name, taskID)
	if s.cache != nil {
		if cached, ok, err := s.cache.Get(r.Context(), cacheKey); err == nil && ok {
			writeRawDoc(w, cached)
			return
		}
	}
	raw, ok, err := load(taskID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "no " + name + " for task"})
		return
	}
	if s.cache != nil {
		_ = s.cache.Set(r.Context(), cacheKey, raw, s.cacheTTL)
	}
	writeRawDoc(w, raw)
}

func writeRawDoc(w http.ResponseWriter, raw json.RawMessage) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"weibo-insight-go/internal/analysis"
	"weibo-insight-go/internal/logger"
	"weibo-insight-go/internal/store"
	"weibo-insight-go/internal/task"
	"weibo-insight-go/internal/weibo"
)

func seedReposts(t *testing.T, taskID string) {
	t.Helper()
	err := store.InsertReposts([]weibo.RepostRecord{
		{TaskID: taskID, CreatedAt: "2021-05-20 12:33"},
		{TaskID: taskID, CreatedAt: "2021-05-20 18:00"},
		{TaskID: taskID, CreatedAt: "2021-05-21 09:00"},
	})
	if err != nil {
		t.Fatalf("seed reposts: %v", err)
	}
}

func doRequest(t *testing.T, srv *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	return w
}

func waitTaskState(t *testing.T, mgr *task.Manager, taskID, state string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st, ok := mgr.Get(taskID); ok && st.State == state {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s never reached %s", taskID, state)
}

func TestServerTaskLifecycle(t *testing.T) {
	store.ResetMemory()

	mgr := task.NewManager(func(h *task.Handle, weiboID string) error {
		h.SetProgress(2, 5)
		return nil
	})
	srv := NewServer(mgr, nil)

	if w := doRequest(t, srv, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz code=%d", w.Code)
	}

	body, _ := json.Marshal(startTaskRequest{WeiboID: "K7okwxcKa"})
	w := doRequest(t, srv, http.MethodPost, "/api/tasks", body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("start code=%d body=%s", w.Code, w.Body.String())
	}
	var started task.Status
	if err := json.Unmarshal(w.Body.Bytes(), &started); err != nil {
		t.Fatalf("start response: %v", err)
	}
	if started.WeiboID != "K7okwxcKa" {
		t.Fatalf("start response: %+v", started)
	}
	waitTaskState(t, mgr, started.TaskID, task.StateSuccess)

	w = doRequest(t, srv, http.MethodGet, "/api/tasks/"+started.TaskID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get code=%d", w.Code)
	}
	var got task.Status
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.State != task.StateSuccess || got.Current != 2 || got.Total != 5 {
		t.Fatalf("get status: %+v", got)
	}

	w = doRequest(t, srv, http.MethodGet, "/api/tasks", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), started.TaskID) {
		t.Fatalf("list code=%d body=%s", w.Code, w.Body.String())
	}

	if w := doRequest(t, srv, http.MethodGet, "/api/tasks/unknown", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown task code=%d", w.Code)
	}
}

func TestServerStartValidation(t *testing.T) {
	store.ResetMemory()
	srv := NewServer(task.NewManager(func(h *task.Handle, weiboID string) error { return nil }), nil)

	if w := doRequest(t, srv, http.MethodPost, "/api/tasks", []byte(`{}`)); w.Code != http.StatusBadRequest {
		t.Fatalf("missing weibo_id code=%d", w.Code)
	}
	if w := doRequest(t, srv, http.MethodPost, "/api/tasks", []byte(`{"bogus":1}`)); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown field code=%d", w.Code)
	}
}

func TestServerStopTask(t *testing.T) {
	store.ResetMemory()

	started := make(chan struct{})
	mgr := task.NewManager(func(h *task.Handle, weiboID string) error {
		close(started)
		<-h.Context().Done()
		return h.Context().Err()
	})
	srv := NewServer(mgr, nil)

	body, _ := json.Marshal(startTaskRequest{WeiboID: "Kxyz"})
	w := doRequest(t, srv, http.MethodPost, "/api/tasks", body)
	var st task.Status
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	<-started

	w = doRequest(t, srv, http.MethodPost, "/api/tasks/"+st.TaskID+"/stop", nil)
	if w.Code != http.StatusAccepted || !strings.Contains(w.Body.String(), "true") {
		t.Fatalf("stop code=%d body=%s", w.Code, w.Body.String())
	}
	waitTaskState(t, mgr, st.TaskID, task.StateFailure)
}

func TestServerAnalysisDocs(t *testing.T) {
	store.ResetMemory()
	srv := NewServer(task.NewManager(func(h *task.Handle, weiboID string) error { return nil }), nil)

	if w := doRequest(t, srv, http.MethodGet, "/api/tasks/t1/tree", nil); w.Code != http.StatusNotFound {
		t.Fatalf("absent tree code=%d", w.Code)
	}

	if err := store.SaveTree("t1", map[string]any{"user_name": "root", "count": 3}); err != nil {
		t.Fatalf("SaveTree: %v", err)
	}
	w := doRequest(t, srv, http.MethodGet, "/api/tasks/t1/tree", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"root"`) {
		t.Fatalf("tree code=%d body=%s", w.Code, w.Body.String())
	}

	doc := task.NodeDoc{
		KeyNodes:   []analysis.KeyNode{{Name: "bob", Count: 2, Score: 0.4}},
		HotReposts: []analysis.HotComment{{Content: "转起来", UserName: "bob", LikeCount: 7}},
	}
	if err := store.SaveKeyNodes("t1", doc); err != nil {
		t.Fatalf("SaveKeyNodes: %v", err)
	}
	w = doRequest(t, srv, http.MethodGet, "/api/tasks/t1/rank", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"bob"`) {
		t.Fatalf("rank code=%d body=%s", w.Code, w.Body.String())
	}

	w = doRequest(t, srv, http.MethodGet, "/api/tasks/t1/rank.xlsx", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("rank.xlsx code=%d", w.Code)
	}
	if ct := w.Header().Get("content-type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("rank.xlsx content-type=%s", ct)
	}
	if w.Body.Len() == 0 {
		t.Fatal("rank.xlsx body empty")
	}
}

func TestServerTrendFallsBackToLiveGrouping(t *testing.T) {
	store.ResetMemory()
	srv := NewServer(task.NewManager(func(h *task.Handle, weiboID string) error { return nil }), nil)

	seedReposts(t, "t1")
	w := doRequest(t, srv, http.MethodGet, "/api/tasks/t1/trend", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("trend code=%d", w.Code)
	}
	var points []analysis.TrendPoint
	if err := json.Unmarshal(w.Body.Bytes(), &points); err != nil {
		t.Fatalf("trend body: %v", err)
	}
	if len(points) != 2 || points[0].Key != "2021-05-20" || points[0].DocCount != 2 {
		t.Fatalf("trend points: %+v", points)
	}

	// Once the document is persisted it wins over the live grouping.
	if err := store.SaveTendency("t1", []analysis.TrendPoint{{Key: "2021-05-20", DocCount: 99}}); err != nil {
		t.Fatalf("SaveTendency: %v", err)
	}
	w = doRequest(t, srv, http.MethodGet, "/api/tasks/t1/trend", nil)
	if !strings.Contains(w.Body.String(), "99") {
		t.Fatalf("stored trend not served: %s", w.Body.String())
	}
}

func TestServerLogsAndFragments(t *testing.T) {
	store.ResetMemory()
	srv := NewServer(task.NewManager(func(h *task.Handle, weiboID string) error { return nil }), nil)

	if w := doRequest(t, srv, http.MethodGet, "/logs?limit=10", nil); w.Code != http.StatusOK {
		t.Fatalf("logs code=%d", w.Code)
	}
	if w := doRequest(t, srv, http.MethodGet, "/api/fragments", nil); w.Code != http.StatusOK {
		t.Fatalf("fragments code=%d", w.Code)
	}

	// A task_id query narrows both endpoints to one task's entries.
	logger.KeepFragment(logger.Fragment{TaskID: "17_aaa", Reason: "bad markup", Raw: "<td/>"})
	logger.KeepFragment(logger.Fragment{TaskID: "18_bbb", Reason: "bad markup", Raw: "<tr/>"})
	w := doRequest(t, srv, http.MethodGet, "/api/fragments?task_id=17_aaa", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("scoped fragments code=%d", w.Code)
	}
	var body struct {
		Fragments []logger.Fragment `json:"fragments"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Fragments) == 0 {
		t.Fatal("scoped fragments empty")
	}
	for _, f := range body.Fragments {
		if f.TaskID != "17_aaa" {
			t.Fatalf("fragment from another task leaked: %+v", f)
		}
	}
}

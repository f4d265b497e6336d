package task

import (
	"strings"
	"testing"
	"time"

	"weibo-insight-go/internal/store"
)

func waitForState(t *testing.T, m *Manager, taskID, state string) Status {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st, ok := m.Get(taskID); ok && st.State == state {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	st, _ := m.Get(taskID)
	t.Fatalf("task %s never reached %s, last: %+v", taskID, state, st)
	return Status{}
}

func TestManagerLifecycle(t *testing.T) {
	store.ResetMemory()

	m := NewManager(func(h *Handle, weiboID string) error {
		h.SetStep("collect_reposts")
		h.SetProgress(3, 37)
		return nil
	})

	taskID, err := m.Start("K7okwxcKa", "topic-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !strings.HasSuffix(taskID, "_K7okwxcKa") {
		t.Fatalf("task id format: %s", taskID)
	}

	st := waitForState(t, m, taskID, StateSuccess)
	if st.Step != "collect_reposts" || st.Current != 3 || st.Total != 37 {
		t.Fatalf("progress lost: %+v", st)
	}
	if st.TopicTaskID != "topic-1" {
		t.Fatalf("topic task id lost: %+v", st)
	}

	// The final state is mirrored into the store.
	doc, ok, err := store.GetTask(taskID)
	if err != nil || !ok {
		t.Fatalf("persisted doc missing: ok=%v err=%v", ok, err)
	}
	if doc.State != StateSuccess || doc.Current != 3 {
		t.Fatalf("persisted doc stale: %+v", doc)
	}
}

func TestManagerFailure(t *testing.T) {
	store.ResetMemory()

	m := NewManager(func(h *Handle, weiboID string) error {
		return errTest
	})
	taskID, err := m.Start("Kxxxxxxxx", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	st := waitForState(t, m, taskID, StateFailure)
	if st.LastError == "" {
		t.Fatalf("error not recorded: %+v", st)
	}
}

var errTest = &testError{}

type testError struct{}

func (*testError) Error() string { return "boom" }

func TestManagerStop(t *testing.T) {
	store.ResetMemory()

	started := make(chan struct{})
	m := NewManager(func(h *Handle, weiboID string) error {
		close(started)
		<-h.Context().Done()
		return h.Context().Err()
	})
	taskID, err := m.Start("K7okwxcKa", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-started

	if !m.Stop(taskID) {
		t.Fatal("Stop should hit the running task")
	}
	st := waitForState(t, m, taskID, StateFailure)
	if st.Reason != "canceled" {
		t.Fatalf("reason = %q, want canceled", st.Reason)
	}

	if m.Stop(taskID) {
		t.Fatal("second Stop should be a no-op")
	}
	if m.Stop("unknown") {
		t.Fatal("Stop on unknown task should be false")
	}
}

func TestManagerList(t *testing.T) {
	store.ResetMemory()

	m := NewManager(func(h *Handle, weiboID string) error { return nil })
	a, _ := m.Start("aaa", "")
	b, _ := m.Start("bbb", "")
	waitForState(t, m, a, StateSuccess)
	waitForState(t, m, b, StateSuccess)

	all := m.List()
	if len(all) != 2 || all[0].TaskID != a || all[1].TaskID != b {
		t.Fatalf("list order wrong: %+v", all)
	}
}

func TestManagerStaleness(t *testing.T) {
	m := NewManager(func(h *Handle, weiboID string) error { return nil })

	old := Status{State: StatePending, UpdatedAt: time.Now().Add(-2 * time.Hour).Unix()}
	if got := m.withStaleness(old); got.State != StateExpired {
		t.Fatalf("stale pending should read EXPIRED, got %s", got.State)
	}

	fresh := Status{State: StatePending, UpdatedAt: time.Now().Unix()}
	if got := m.withStaleness(fresh); got.State != StatePending {
		t.Fatalf("fresh pending flipped to %s", got.State)
	}

	// Finished tasks never expire, however old.
	done := Status{State: StateSuccess, UpdatedAt: time.Now().Add(-48 * time.Hour).Unix()}
	if got := m.withStaleness(done); got.State != StateSuccess {
		t.Fatalf("finished task flipped to %s", got.State)
	}
}

func TestManagerGetFallsBackToStore(t *testing.T) {
	store.ResetMemory()

	doc := store.TaskDoc{
		TaskID:    "1600000000_Kold",
		WeiboID:   "Kold",
		State:     StateSuccess,
		Current:   12,
		Total:     12,
		CreatedAt: 1600000000,
		UpdatedAt: 1600000100,
	}
	if err := store.UpsertTask(doc); err != nil {
		t.Fatalf("UpsertTask: %v", err)
	}

	m := NewManager(func(h *Handle, weiboID string) error { return nil })
	st, ok := m.Get("1600000000_Kold")
	if !ok {
		t.Fatal("task from a previous run should be visible")
	}
	if st.State != StateSuccess || st.Current != 12 {
		t.Fatalf("store fallback lost fields: %+v", st)
	}
	if _, ok := m.Get("never-existed"); ok {
		t.Fatal("unknown task should not resolve")
	}
}

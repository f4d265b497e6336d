package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"weibo-insight-go/internal/config"
	"weibo-insight-go/internal/logger"
	"weibo-insight-go/internal/store"
)

// Task states. EXPIRED is never stored: a task that sat in PENDING longer
// than the staleness window is reported as expired on read, matching how
// abandoned queue entries used to time out.
const (
	StatePending  = "PENDING"
	StateProgress = "PROGRESS"
	StateSuccess  = "SUCCESS"
	StateFailure  = "FAILURE"
	StateExpired  = "EXPIRED"
)

// Status is the externally visible snapshot of one task.
type Status struct {
	TaskID      string `json:"tag_comment_task_id"`
	TopicTaskID string `json:"tag_task_id,omitempty"`
	WeiboID     string `json:"weibo_id"`
	State       string `json:"state"`
	Step        string `json:"step,omitempty"`
	Current     int    `json:"current"`
	Total       int    `json:"total"`
	Reason      string `json:"reason,omitempty"`
	LastError   string `json:"last_error,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// Handle is what a running pipeline uses to report progress. All methods
// are safe for concurrent use.
type Handle struct {
	taskID string
	m      *Manager
	ctx    context.Context
}

func (h *Handle) TaskID() string           { return h.taskID }
func (h *Handle) Context() context.Context { return h.ctx }

// TopicTaskID names the topic crawl that spawned this task, if any.
func (h *Handle) TopicTaskID() string {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	if e, ok := h.m.tasks[h.taskID]; ok {
		return e.status.TopicTaskID
	}
	return ""
}

// SetStep labels the phase the pipeline is in.
func (h *Handle) SetStep(step string) {
	h.m.update(h.taskID, func(s *Status) {
		s.Step = step
	})
}

// SetReason records why the task is about to end the way it does, e.g.
// which termination rule stopped the crawl. Cancellation overwrites it.
func (h *Handle) SetReason(reason string) {
	h.m.update(h.taskID, func(s *Status) {
		s.Reason = reason
	})
}

// SetProgress reports pages walked so far; total stays 0 until known.
func (h *Handle) SetProgress(current, total int) {
	h.m.update(h.taskID, func(s *Status) {
		s.Current = current
		if total > 0 {
			s.Total = total
		}
	})
}

// RunFunc executes one task. The returned error marks the task FAILURE.
type RunFunc func(h *Handle, weiboID string) error

type taskEntry struct {
	status Status
	cancel context.CancelFunc
}

// Manager owns the lifecycle of repost-collection tasks: one goroutine per
// task, cancelable, with state mirrored into the store so it survives
// restarts.
type Manager struct {
	mu        sync.Mutex
	tasks     map[string]*taskEntry
	order     []string
	runFn     RunFunc
	staleness time.Duration
}

func NewManager(runFn RunFunc) *Manager {
	staleSec := config.AppConfig.TaskStalenessSec
	if staleSec <= 0 {
		staleSec = 3600
	}
	return &Manager{
		tasks:     make(map[string]*taskEntry),
		runFn:     runFn,
		staleness: time.Duration(staleSec) * time.Second,
	}
}

// NewTaskID builds the task identifier from the start time and the post id.
func NewTaskID(weiboID string) string {
	return fmt.Sprintf("%d_%s", time.Now().Unix(), weiboID)
}

// Start registers a task for the given post and launches its pipeline.
func (m *Manager) Start(weiboID, topicTaskID string) (string, error) {
	weiboID = strings.TrimSpace(weiboID)
	if weiboID == "" {
		return "", errors.New("weibo id is empty")
	}
	if m.runFn == nil {
		return "", errors.New("manager has no runner")
	}
	taskID := NewTaskID(weiboID)
	now := time.Now().Unix()
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.tasks[taskID] = &taskEntry{
		status: Status{
			TaskID:      taskID,
			TopicTaskID: topicTaskID,
			WeiboID:     weiboID,
			State:       StatePending,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		cancel: cancel,
	}
	m.order = append(m.order, taskID)
	m.mu.Unlock()
	m.persist(taskID)

	go m.run(ctx, taskID, weiboID)
	return taskID, nil
}

func (m *Manager) run(ctx context.Context, taskID, weiboID string) {
	m.update(taskID, func(s *Status) { s.State = StateProgress })

	h := &Handle{taskID: taskID, m: m, ctx: ctx}
	err := m.runFn(h, weiboID)

	m.update(taskID, func(s *Status) {
		if err != nil {
			s.State = StateFailure
			s.LastError = err.Error()
			if errors.Is(err, context.Canceled) {
				s.Reason = "canceled"
			}
		} else {
			s.State = StateSuccess
			s.LastError = ""
		}
	})
	log := logger.Task(taskID)
	if err != nil {
		log.Error("task failed", "err", err)
	} else {
		log.Info("task finished")
	}

	m.mu.Lock()
	if e, ok := m.tasks[taskID]; ok {
		e.cancel = nil
	}
	m.mu.Unlock()
}

// Stop cancels a running task. Stopping an unknown or finished task is a
// no-op returning false.
func (m *Manager) Stop(taskID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.tasks[taskID]
	if !ok || e.cancel == nil {
		return false
	}
	e.cancel()
	return true
}

// Get returns the task snapshot; falls back to the store for tasks started
// before the last restart.
func (m *Manager) Get(taskID string) (Status, bool) {
	m.mu.Lock()
	e, ok := m.tasks[taskID]
	var st Status
	if ok {
		st = e.status
	}
	m.mu.Unlock()
	if !ok {
		doc, found, err := store.GetTask(taskID)
		if err != nil || !found {
			return Status{}, false
		}
		st = statusFromDoc(doc)
	}
	return m.withStaleness(st), true
}

// List returns all known tasks, oldest first.
func (m *Manager) List() []Status {
	m.mu.Lock()
	out := make([]Status, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.tasks[id].status)
	}
	m.mu.Unlock()
	for i := range out {
		out[i] = m.withStaleness(out[i])
	}
	return out
}

// withStaleness overlays the synthetic EXPIRED state on tasks stuck in
// PENDING past the staleness window.
func (m *Manager) withStaleness(s Status) Status {
	if s.State == StatePending && time.Since(time.Unix(s.UpdatedAt, 0)) > m.staleness {
		s.State = StateExpired
	}
	return s
}

func (m *Manager) update(taskID string, fn func(*Status)) {
	m.mu.Lock()
	e, ok := m.tasks[taskID]
	if ok {
		fn(&e.status)
		e.status.UpdatedAt = time.Now().Unix()
	}
	m.mu.Unlock()
	if ok {
		m.persist(taskID)
	}
}

func (m *Manager) persist(taskID string) {
	m.mu.Lock()
	e, ok := m.tasks[taskID]
	var st Status
	if ok {
		st = e.status
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	if err := store.UpsertTask(docFromStatus(st)); err != nil {
		logger.Warn("persist task state failed", "task_id", taskID, "err", err)
	}
}

func docFromStatus(s Status) store.TaskDoc {
	return store.TaskDoc{
		TaskID:      s.TaskID,
		TopicTaskID: s.TopicTaskID,
		WeiboID:     s.WeiboID,
		State:       s.State,
		Step:        s.Step,
		Current:     s.Current,
		Total:       s.Total,
		Reason:      s.Reason,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func statusFromDoc(d store.TaskDoc) Status {
	return Status{
		TaskID:      d.TaskID,
		TopicTaskID: d.TopicTaskID,
		WeiboID:     d.WeiboID,
		State:       d.State,
		Step:        d.Step,
		Current:     d.Current,
		Total:       d.Total,
		Reason:      d.Reason,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

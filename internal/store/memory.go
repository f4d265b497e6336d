package store

import (
	"encoding/json"
	"sync"

	"weibo-insight-go/internal/analysis"
	"weibo-insight-go/internal/weibo"
)

// memoryStore is the default backend. It keeps everything in process memory,
// which is enough for single-run crawls and for tests.
type memoryStore struct {
	mu        sync.RWMutex
	posts     map[string]weibo.Post
	postOrder []string
	reposts   map[string][]weibo.RepostRecord
	tasks     map[string]TaskDoc
	taskOrder []string
	docs      map[docKind]map[string][]byte
}

var mem = newMemoryStore()

func newMemoryStore() *memoryStore {
	s := &memoryStore{
		posts:   make(map[string]weibo.Post),
		reposts: make(map[string][]weibo.RepostRecord),
		tasks:   make(map[string]TaskDoc),
		docs:    make(map[docKind]map[string][]byte),
	}
	for _, k := range analysisDocKinds {
		s.docs[k] = make(map[string][]byte)
	}
	return s
}

// ResetMemory drops all in-memory state. Tests use it between cases.
func ResetMemory() {
	newStore := newMemoryStore()
	mem.mu.Lock()
	mem.posts = newStore.posts
	mem.postOrder = nil
	mem.reposts = newStore.reposts
	mem.tasks = newStore.tasks
	mem.taskOrder = nil
	mem.docs = newStore.docs
	mem.mu.Unlock()
}

func (s *memoryStore) saveBlogPosts(posts []weibo.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range posts {
		if p.ID == "" {
			continue
		}
		if _, seen := s.posts[p.ID]; !seen {
			s.postOrder = append(s.postOrder, p.ID)
		}
		s.posts[p.ID] = p
	}
	return nil
}

func (s *memoryStore) insertReposts(records []weibo.RepostRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.reposts[r.TaskID] = append(s.reposts[r.TaskID], r)
	}
	return nil
}

func (s *memoryStore) findReposts(taskID string) ([]weibo.RepostRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.reposts[taskID]
	out := make([]weibo.RepostRecord, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *memoryStore) upsertTask(doc TaskDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.tasks[doc.TaskID]; !seen {
		s.taskOrder = append(s.taskOrder, doc.TaskID)
	}
	s.tasks[doc.TaskID] = doc
	return nil
}

func (s *memoryStore) getTask(taskID string) (TaskDoc, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.tasks[taskID]
	return doc, ok, nil
}

func (s *memoryStore) listTasks() ([]TaskDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TaskDoc, 0, len(s.taskOrder))
	for _, id := range s.taskOrder {
		out = append(out, s.tasks[id])
	}
	return out, nil
}

func (s *memoryStore) saveDoc(kind docKind, taskID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := make([]byte, len(data))
	copy(c, data)
	s.docs[kind][taskID] = c
	return nil
}

func (s *memoryStore) loadDoc(kind docKind, taskID string) (json.RawMessage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[kind][taskID]
	if !ok {
		return nil, false, nil
	}
	c := make([]byte, len(data))
	copy(c, data)
	return c, true, nil
}

func (s *memoryStore) tendency(taskID string) ([]analysis.TrendPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return analysis.SpreadTendency(s.reposts[taskID]), nil
}

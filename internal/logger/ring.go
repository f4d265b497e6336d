package logger

import "sync"

// ring is a fixed-capacity sliding window over the newest entries. The
// log stream and the rejected-fragment stream each sit on one so the API
// can replay recent history to a client that just connected.
type ring[T any] struct {
	mu  sync.Mutex
	cap int
	buf []T
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ring[T]{cap: capacity}
}

func (r *ring[T]) add(v T) {
	r.mu.Lock()
	if len(r.buf) < r.cap {
		r.buf = append(r.buf, v)
	} else {
		copy(r.buf, r.buf[1:])
		r.buf[len(r.buf)-1] = v
	}
	r.mu.Unlock()
}

// recent returns up to limit of the newest entries, oldest first.
// limit <= 0 means everything retained.
func (r *ring[T]) recent(limit int) []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > len(r.buf) {
		limit = len(r.buf)
	}
	return append([]T(nil), r.buf[len(r.buf)-limit:]...)
}

// recentMatching is recent restricted to entries keep accepts; the limit
// applies after filtering so a busy neighbor task cannot drown out the
// one being inspected.
func (r *ring[T]) recentMatching(limit int, keep func(T) bool) []T {
	r.mu.Lock()
	matched := make([]T, 0, 64)
	for _, v := range r.buf {
		if keep(v) {
			matched = append(matched, v)
		}
	}
	r.mu.Unlock()
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched
}

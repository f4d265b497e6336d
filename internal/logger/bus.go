package logger

import "sync"

// feed fans records out to live websocket subscribers, optionally scoped
// to one task. Delivery is best-effort: a subscriber that cannot keep up
// drops records rather than stalling the crawl emitting them.
type feed struct {
	mu   sync.RWMutex
	subs map[*feedSub]struct{}
}

type feedSub struct {
	ch     chan Event
	taskID string
}

func newFeed() *feed {
	return &feed{subs: make(map[*feedSub]struct{})}
}

func (f *feed) attach(taskID string, buffer int) (*feedSub, func()) {
	if buffer < 1 {
		buffer = 1
	}
	sub := &feedSub{ch: make(chan Event, buffer), taskID: taskID}
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()
	return sub, func() { f.detach(sub) }
}

func (f *feed) detach(sub *feedSub) {
	f.mu.Lock()
	if _, ok := f.subs[sub]; ok {
		delete(f.subs, sub)
		close(sub.ch)
	}
	f.mu.Unlock()
}

func (f *feed) publish(evt Event) {
	f.mu.RLock()
	for sub := range f.subs {
		if sub.taskID != "" && sub.taskID != evt.TaskID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
	f.mu.RUnlock()
}

var defaultFeed = newFeed()

// Subscribe taps the full live log stream. The cancel func must be
// called or the subscriber leaks.
func Subscribe() (<-chan Event, func()) {
	sub, cancel := defaultFeed.attach("", 256)
	return sub.ch, cancel
}

// SubscribeTask taps the live stream filtered to one task's records.
// An empty task id subscribes to everything.
func SubscribeTask(taskID string) (<-chan Event, func()) {
	sub, cancel := defaultFeed.attach(taskID, 256)
	return sub.ch, cancel
}

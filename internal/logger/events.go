package logger

// Event is one log record as the API serves it. TaskID is promoted out
// of the attrs so the stream and the history endpoint can filter on it
// without decoding anything.
type Event struct {
	Time   string         `json:"time"`
	Level  string         `json:"level"`
	Msg    string         `json:"msg"`
	TaskID string         `json:"task_id,omitempty"`
	Attrs  map[string]any `json:"attrs,omitempty"`
}

var eventRing = newRing[Event](2000)

// record feeds one event into the retained history and the live stream.
func record(evt Event) {
	eventRing.add(evt)
	defaultFeed.publish(evt)
}

// Recent returns the newest retained records, oldest first.
func Recent(limit int) []Event {
	return eventRing.recent(limit)
}

// RecentForTask returns the newest retained records stamped with the
// given task id. An empty id returns everything.
func RecentForTask(taskID string, limit int) []Event {
	if taskID == "" {
		return Recent(limit)
	}
	return eventRing.recentMatching(limit, func(e Event) bool {
		return e.TaskID == taskID
	})
}

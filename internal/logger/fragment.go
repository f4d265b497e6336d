package logger

// Fragment records a raw page fragment that the parser could not handle,
// kept aside so the extraction templates can be fixed against real input.
type Fragment struct {
	TaskID   string `json:"task_id,omitempty"`
	SourceID string `json:"source_id,omitempty"`
	Page     int    `json:"page,omitempty"`
	Reason   string `json:"reason"`
	Raw      string `json:"raw"`
}

const fragmentRawLimit = 4096

var fragmentRing = newRing[Fragment](500)

func KeepFragment(f Fragment) {
	if len(f.Raw) > fragmentRawLimit {
		f.Raw = f.Raw[:fragmentRawLimit]
	}
	fragmentRing.add(f)
}

func RecentFragments(limit int) []Fragment {
	return fragmentRing.recent(limit)
}

// FragmentsForTask narrows the retained fragments to one task's pages.
func FragmentsForTask(taskID string, limit int) []Fragment {
	if taskID == "" {
		return RecentFragments(limit)
	}
	return fragmentRing.recentMatching(limit, func(f Fragment) bool {
		return f.TaskID == taskID
	})
}

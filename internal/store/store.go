package store

import (
	"encoding/json"

	"weibo-insight-go/internal/analysis"
	"weibo-insight-go/internal/weibo"
)

// TaskDoc is the persisted view of a repost-collection task. The in-memory
// task manager owns the live state; this document is what survives restarts
// and what the HTTP API reads back.
type TaskDoc struct {
	TaskID      string `json:"tag_comment_task_id" bson:"tag_comment_task_id"`
	TopicTaskID string `json:"tag_task_id,omitempty" bson:"tag_task_id,omitempty"`
	WeiboID     string `json:"weibo_id" bson:"weibo_id"`
	State       string `json:"state" bson:"state"`
	Step        string `json:"step,omitempty" bson:"step,omitempty"`
	Current     int    `json:"current" bson:"current"`
	Total       int    `json:"total" bson:"total"`
	Reason      string `json:"reason,omitempty" bson:"reason,omitempty"`
	CreatedAt   int64  `json:"created_at" bson:"created_at"`
	UpdatedAt   int64  `json:"updated_at" bson:"updated_at"`
}

// docKind names one of the per-task analysis collections. The same names are
// used as mongo collection names and as SQL table names.
type docKind string

const (
	docTree     docKind = "comment_tree"
	docNode     docKind = "comment_node"
	docTendency docKind = "comment_tendency"
	docCloud    docKind = "comment_cloud"
)

var analysisDocKinds = []docKind{docTree, docNode, docTendency, docCloud}

// SaveBlogPosts upserts topic posts keyed by weibo_id.
func SaveBlogPosts(posts []weibo.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return opSaveBlogPosts(posts)
}

// InsertReposts appends repost records for a task. Inserts are unordered;
// a failed row does not block the rest of the batch.
func InsertReposts(records []weibo.RepostRecord) error {
	if len(records) == 0 {
		return nil
	}
	return opInsertReposts(records)
}

// FindReposts returns every stored repost record for a task, in insert order.
func FindReposts(taskID string) ([]weibo.RepostRecord, error) {
	return opFindReposts(taskID)
}

// UpsertTask writes the task document keyed by its task id.
func UpsertTask(doc TaskDoc) error {
	return opUpsertTask(doc)
}

// GetTask loads one task document. The second return is false when the task
// id is unknown.
func GetTask(taskID string) (TaskDoc, bool, error) {
	return opGetTask(taskID)
}

// ListTasks returns all task documents, oldest first.
func ListTasks() ([]TaskDoc, error) {
	return opListTasks()
}

// SaveTree stores the serialized propagation tree for a task.
func SaveTree(taskID string, tree any) error {
	return saveAnalysisDoc(docTree, taskID, tree)
}

// SaveKeyNodes stores the ranked key-node list for a task.
func SaveKeyNodes(taskID string, nodes any) error {
	return saveAnalysisDoc(docNode, taskID, nodes)
}

// SaveTendency stores the per-day repost buckets for a task.
func SaveTendency(taskID string, points any) error {
	return saveAnalysisDoc(docTendency, taskID, points)
}

// SaveWordCloud stores the word-frequency list for a task.
func SaveWordCloud(taskID string, words any) error {
	return saveAnalysisDoc(docCloud, taskID, words)
}

func LoadTree(taskID string) (json.RawMessage, bool, error) {
	return loadAnalysisDoc(docTree, taskID)
}

func LoadKeyNodes(taskID string) (json.RawMessage, bool, error) {
	return loadAnalysisDoc(docNode, taskID)
}

func LoadTendency(taskID string) (json.RawMessage, bool, error) {
	return loadAnalysisDoc(docTendency, taskID)
}

func LoadWordCloud(taskID string) (json.RawMessage, bool, error) {
	return loadAnalysisDoc(docCloud, taskID)
}

// Tendency groups a task's stored reposts by calendar day. Records whose
// created_at could not be normalized are skipped.
func Tendency(taskID string) ([]analysis.TrendPoint, error) {
	return opTendency(taskID)
}

func saveAnalysisDoc(kind docKind, taskID string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return opSaveDoc(kind, taskID, b)
}

func loadAnalysisDoc(kind docKind, taskID string) (json.RawMessage, bool, error) {
	return opLoadDoc(kind, taskID)
}

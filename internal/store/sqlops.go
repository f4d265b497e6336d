package store

import (
	"encoding/json"

	"weibo-insight-go/internal/analysis"
	"weibo-insight-go/internal/weibo"
)

func opSaveBlogPosts(posts []weibo.Post) error {
	switch backendKind() {
	case backendSQLite, backendMySQL, backendPostgres:
		return sqlSaveBlogPosts(posts)
	case backendMongoDB:
		return mongoSaveBlogPosts(posts)
	default:
		return mem.saveBlogPosts(posts)
	}
}

func opInsertReposts(records []weibo.RepostRecord) error {
	switch backendKind() {
	case backendSQLite, backendMySQL, backendPostgres:
		return sqlInsertReposts(records)
	case backendMongoDB:
		return mongoInsertReposts(records)
	default:
		return mem.insertReposts(records)
	}
}

func opFindReposts(taskID string) ([]weibo.RepostRecord, error) {
	switch backendKind() {
	case backendSQLite, backendMySQL, backendPostgres:
		return sqlFindReposts(taskID)
	case backendMongoDB:
		return mongoFindReposts(taskID)
	default:
		return mem.findReposts(taskID)
	}
}

func opUpsertTask(doc TaskDoc) error {
	switch backendKind() {
	case backendSQLite, backendMySQL, backendPostgres:
		return sqlUpsertTask(doc)
	case backendMongoDB:
		return mongoUpsertTask(doc)
	default:
		return mem.upsertTask(doc)
	}
}

func opGetTask(taskID string) (TaskDoc, bool, error) {
	switch backendKind() {
	case backendSQLite, backendMySQL, backendPostgres:
		return sqlGetTask(taskID)
	case backendMongoDB:
		return mongoGetTask(taskID)
	default:
		return mem.getTask(taskID)
	}
}

func opListTasks() ([]TaskDoc, error) {
	switch backendKind() {
	case backendSQLite, backendMySQL, backendPostgres:
		return sqlListTasks()
	case backendMongoDB:
		return mongoListTasks()
	default:
		return mem.listTasks()
	}
}

func opSaveDoc(kind docKind, taskID string, data []byte) error {
	switch backendKind() {
	case backendSQLite, backendMySQL, backendPostgres:
		return sqlSaveDoc(kind, taskID, data)
	case backendMongoDB:
		return mongoSaveDoc(kind, taskID, data)
	default:
		return mem.saveDoc(kind, taskID, data)
	}
}

func opLoadDoc(kind docKind, taskID string) (json.RawMessage, bool, error) {
	switch backendKind() {
	case backendSQLite, backendMySQL, backendPostgres:
		return sqlLoadDoc(kind, taskID)
	case backendMongoDB:
		return mongoLoadDoc(kind, taskID)
	default:
		return mem.loadDoc(kind, taskID)
	}
}

func opTendency(taskID string) ([]analysis.TrendPoint, error) {
	switch backendKind() {
	case backendSQLite, backendMySQL, backendPostgres:
		return sqlTendency(taskID)
	case backendMongoDB:
		return mongoTendency(taskID)
	default:
		return mem.tendency(taskID)
	}
}

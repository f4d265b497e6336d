package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"weibo-insight-go/internal/analysis"
	"weibo-insight-go/internal/weibo"
)

// The SQL backends share one DML layer. Only the schema bootstrap and the
// upsert clause differ between drivers; both are resolved through the kind
// returned by sqlDB.

func upsertClause(k storeBackendKind, conflictCol string, setCols ...string) string {
	if k == backendMySQL {
		out := " ON DUPLICATE KEY UPDATE "
		for i, c := range setCols {
			if i > 0 {
				out += ", "
			}
			out += fmt.Sprintf("%s = VALUES(%s)", c, c)
		}
		return out
	}
	out := fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET ", conflictCol)
	for i, c := range setCols {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s = excluded.%s", c, c)
	}
	return out
}

func sqlSaveBlogPosts(posts []weibo.Post) error {
	db, k, err := sqlDB()
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	stmt := fmt.Sprintf(
		`INSERT INTO blog (weibo_id, tag_task_id, data_json, updated_at) VALUES (%s)`,
		placeholders(k, 1, 4),
	) + upsertClause(k, "weibo_id", "tag_task_id", "data_json", "updated_at")
	for _, p := range posts {
		if p.ID == "" {
			continue
		}
		b, err := json.Marshal(p)
		if err != nil {
			return err
		}
		if _, err := db.Exec(stmt, p.ID, p.TaskID, string(b), now); err != nil {
			return fmt.Errorf("upsert blog %s: %w", p.ID, err)
		}
	}
	return nil
}

func sqlInsertReposts(records []weibo.RepostRecord) error {
	db, k, err := sqlDB()
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf(`INSERT INTO comment_reposts
		(tag_comment_task_id, tag_task_id, weibo_id, page, node_seq, chain_index,
		 crawl_time, user_name, user_id, content, pre_content, page_url, created_at, like_counts)
		VALUES (%s)`, placeholders(k, 1, 14))
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	for _, r := range records {
		_, err := tx.Exec(stmt,
			r.TaskID, r.TopicTaskID, r.SourcePostID, r.PageNumber, r.NodeSeq, r.ChainIndex,
			r.ScrapeTime, r.AuthorName, r.AuthorID, r.Content, r.RawPrefixChain, r.PageURL,
			r.CreatedAt, r.LikeCount)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert repost page %d: %w", r.PageNumber, err)
		}
	}
	return tx.Commit()
}

func sqlFindReposts(taskID string) ([]weibo.RepostRecord, error) {
	db, k, err := sqlDB()
	if err != nil {
		return nil, err
	}
	stmt := fmt.Sprintf(`SELECT tag_comment_task_id, tag_task_id, weibo_id, page, node_seq,
		chain_index, crawl_time, user_name, user_id, content, pre_content, page_url,
		created_at, like_counts
		FROM comment_reposts WHERE tag_comment_task_id = %s ORDER BY id`, placeholder(k, 1))
	rows, err := db.Query(stmt, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []weibo.RepostRecord
	for rows.Next() {
		var r weibo.RepostRecord
		err := rows.Scan(&r.TaskID, &r.TopicTaskID, &r.SourcePostID, &r.PageNumber, &r.NodeSeq,
			&r.ChainIndex, &r.ScrapeTime, &r.AuthorName, &r.AuthorID, &r.Content,
			&r.RawPrefixChain, &r.PageURL, &r.CreatedAt, &r.LikeCount)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func sqlUpsertTask(doc TaskDoc) error {
	db, k, err := sqlDB()
	if err != nil {
		return err
	}
	if doc.TaskID == "" {
		return errors.New("task id is empty")
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf(
		`INSERT INTO comment_task (tag_comment_task_id, data_json, updated_at) VALUES (%s)`,
		placeholders(k, 1, 3),
	) + upsertClause(k, "tag_comment_task_id", "data_json", "updated_at")
	_, err = db.Exec(stmt, doc.TaskID, string(b), time.Now().Unix())
	return err
}

func sqlGetTask(taskID string) (TaskDoc, bool, error) {
	db, k, err := sqlDB()
	if err != nil {
		return TaskDoc{}, false, err
	}
	stmt := fmt.Sprintf(
		`SELECT data_json FROM comment_task WHERE tag_comment_task_id = %s`, placeholder(k, 1))
	var raw string
	err = db.QueryRow(stmt, taskID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return TaskDoc{}, false, nil
	}
	if err != nil {
		return TaskDoc{}, false, err
	}
	var doc TaskDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return TaskDoc{}, false, err
	}
	return doc, true, nil
}

func sqlListTasks() ([]TaskDoc, error) {
	db, _, err := sqlDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(`SELECT data_json FROM comment_task ORDER BY updated_at, tag_comment_task_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TaskDoc
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var doc TaskDoc
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func sqlSaveDoc(kind docKind, taskID string, data []byte) error {
	db, k, err := sqlDB()
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf(
		`INSERT INTO %s (tag_comment_task_id, data_json, updated_at) VALUES (%s)`,
		kind, placeholders(k, 1, 3),
	) + upsertClause(k, "tag_comment_task_id", "data_json", "updated_at")
	_, err = db.Exec(stmt, taskID, string(data), time.Now().Unix())
	return err
}

func sqlLoadDoc(kind docKind, taskID string) (json.RawMessage, bool, error) {
	db, k, err := sqlDB()
	if err != nil {
		return nil, false, err
	}
	stmt := fmt.Sprintf(
		`SELECT data_json FROM %s WHERE tag_comment_task_id = %s`, kind, placeholder(k, 1))
	var raw string
	err = db.QueryRow(stmt, taskID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return json.RawMessage(raw), true, nil
}

func sqlTendency(taskID string) ([]analysis.TrendPoint, error) {
	db, k, err := sqlDB()
	if err != nil {
		return nil, err
	}
	stmt := fmt.Sprintf(`SELECT substr(created_at, 1, 10) AS day, COUNT(*)
		FROM comment_reposts
		WHERE tag_comment_task_id = %s AND length(created_at) >= 10
		GROUP BY day ORDER BY day`, placeholder(k, 1))
	rows, err := db.Query(stmt, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []analysis.TrendPoint
	for rows.Next() {
		var p analysis.TrendPoint
		if err := rows.Scan(&p.Key, &p.DocCount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"weibo-insight-go/internal/config"
)

var (
	sqliteOnce sync.Once
	sqliteInst *sql.DB
	sqliteErr  error
)

func sqlitePath() string {
	p := strings.TrimSpace(config.AppConfig.SQLitePath)
	if p == "" {
		p = "data/weibo_insight.db"
	}
	return p
}

func sqliteDB() (*sql.DB, error) {
	if backendKind() != backendSQLite {
		return nil, errors.New("sqlite backend disabled")
	}
	sqliteOnce.Do(func() {
		p := sqlitePath()
		if dir := filepath.Dir(p); dir != "" && dir != "." {
			_ = os.MkdirAll(dir, 0755)
		}
		db, err := sql.Open("sqlite", p)
		if err != nil {
			sqliteErr = err
			return
		}
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)

		for _, pragma := range []string{
			`PRAGMA busy_timeout = 5000;`,
			`PRAGMA journal_mode = WAL;`,
		} {
			if _, err := db.Exec(pragma); err != nil {
				_ = db.Close()
				sqliteErr = err
				return
			}
		}
		if err := initSQLiteSchema(db); err != nil {
			_ = db.Close()
			sqliteErr = err
			return
		}
		sqliteInst = db
	})
	return sqliteInst, sqliteErr
}

func initSQLiteSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS blog (
			weibo_id TEXT NOT NULL PRIMARY KEY,
			tag_task_id TEXT NOT NULL,
			data_json TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS comment_task (
			tag_comment_task_id TEXT NOT NULL PRIMARY KEY,
			data_json TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS comment_reposts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tag_comment_task_id TEXT NOT NULL,
			tag_task_id TEXT NOT NULL,
			weibo_id TEXT NOT NULL,
			page INTEGER NOT NULL,
			node_seq INTEGER NOT NULL,
			chain_index INTEGER NOT NULL,
			crawl_time INTEGER NOT NULL,
			user_name TEXT NOT NULL,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			pre_content TEXT NOT NULL,
			page_url TEXT NOT NULL,
			created_at TEXT NOT NULL,
			like_counts INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reposts_task ON comment_reposts(tag_comment_task_id);`,
	}
	for _, kind := range analysisDocKinds {
		stmts = append(stmts, `CREATE TABLE IF NOT EXISTS `+string(kind)+` (
			tag_comment_task_id TEXT NOT NULL PRIMARY KEY,
			data_json TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`)
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

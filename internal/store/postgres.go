package store

import (
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"weibo-insight-go/internal/config"
)

var (
	pgOnce sync.Once
	pgInst *sql.DB
	pgErr  error
)

func postgresDB() (*sql.DB, error) {
	if backendKind() != backendPostgres {
		return nil, errors.New("postgres backend disabled")
	}
	pgOnce.Do(func() {
		dsn := strings.TrimSpace(config.AppConfig.PostgresDSN)
		if dsn == "" {
			pgErr = errors.New("POSTGRES_DSN is empty")
			return
		}
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			pgErr = err
			return
		}
		setDBPoolDefaults(db, 8)
		db.SetConnMaxIdleTime(2 * time.Minute)

		if err := initPostgresSchema(db); err != nil {
			_ = db.Close()
			pgErr = err
			return
		}
		pgInst = db
	})
	return pgInst, pgErr
}

func initPostgresSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS blog (
			weibo_id TEXT NOT NULL PRIMARY KEY,
			tag_task_id TEXT NOT NULL,
			data_json TEXT NOT NULL,
			updated_at BIGINT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS comment_task (
			tag_comment_task_id TEXT NOT NULL PRIMARY KEY,
			data_json TEXT NOT NULL,
			updated_at BIGINT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS comment_reposts (
			id BIGSERIAL PRIMARY KEY,
			tag_comment_task_id TEXT NOT NULL,
			tag_task_id TEXT NOT NULL,
			weibo_id TEXT NOT NULL,
			page INTEGER NOT NULL,
			node_seq INTEGER NOT NULL,
			chain_index INTEGER NOT NULL,
			crawl_time BIGINT NOT NULL,
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
			updated_at BIGINT NOT NULL
		);`)
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

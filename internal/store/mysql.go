package store

import (
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"weibo-insight-go/internal/config"
)

var (
	mysqlOnce sync.Once
	mysqlInst *sql.DB
	mysqlErr  error
)

func mysqlDB() (*sql.DB, error) {
	if backendKind() != backendMySQL {
		return nil, errors.New("mysql backend disabled")
	}
	mysqlOnce.Do(func() {
		dsn := strings.TrimSpace(config.AppConfig.MySQLDSN)
		if dsn == "" {
			mysqlErr = errors.New("MYSQL_DSN is empty")
			return
		}
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			mysqlErr = err
			return
		}
		setDBPoolDefaults(db, 8)
		db.SetConnMaxIdleTime(2 * time.Minute)

		if err := initMySQLSchema(db); err != nil {
			_ = db.Close()
			mysqlErr = err
			return
		}
		mysqlInst = db
	})
	return mysqlInst, mysqlErr
}

func initMySQLSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS blog (
			weibo_id VARCHAR(64) NOT NULL,
			tag_task_id VARCHAR(128) NOT NULL,
			data_json LONGTEXT NOT NULL,
			updated_at BIGINT NOT NULL,
			PRIMARY KEY (weibo_id)
		) CHARACTER SET utf8mb4;`,
		`CREATE TABLE IF NOT EXISTS comment_task (
			tag_comment_task_id VARCHAR(128) NOT NULL,
			data_json LONGTEXT NOT NULL,
			updated_at BIGINT NOT NULL,
			PRIMARY KEY (tag_comment_task_id)
		) CHARACTER SET utf8mb4;`,
		`CREATE TABLE IF NOT EXISTS comment_reposts (
			id BIGINT NOT NULL AUTO_INCREMENT,
			tag_comment_task_id VARCHAR(128) NOT NULL,
			tag_task_id VARCHAR(128) NOT NULL,
			weibo_id VARCHAR(64) NOT NULL,
			page INT NOT NULL,
			node_seq INT NOT NULL,
			chain_index INT NOT NULL,
			crawl_time BIGINT NOT NULL,
			user_name VARCHAR(191) NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			content TEXT NOT NULL,
			pre_content TEXT NOT NULL,
			page_url VARCHAR(512) NOT NULL,
			created_at VARCHAR(32) NOT NULL,
			like_counts INT NOT NULL,
			PRIMARY KEY (id),
			KEY idx_reposts_task (tag_comment_task_id)
		) CHARACTER SET utf8mb4;`,
	}
	for _, kind := range analysisDocKinds {
		stmts = append(stmts, `CREATE TABLE IF NOT EXISTS `+string(kind)+` (
			tag_comment_task_id VARCHAR(128) NOT NULL,
			data_json LONGTEXT NOT NULL,
			updated_at BIGINT NOT NULL,
			PRIMARY KEY (tag_comment_task_id)
		) CHARACTER SET utf8mb4;`)
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

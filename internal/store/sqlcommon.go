package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"weibo-insight-go/internal/config"
)

type storeBackendKind string

const (
	backendMemory   storeBackendKind = "memory"
	backendSQLite   storeBackendKind = "sqlite"
	backendMySQL    storeBackendKind = "mysql"
	backendPostgres storeBackendKind = "postgres"
	backendMongoDB  storeBackendKind = "mongodb"
)

func backendKind() storeBackendKind {
	v := strings.ToLower(strings.TrimSpace(config.AppConfig.StoreBackend))
	switch v {
	case "sqlite":
		return backendSQLite
	case "mysql":
		return backendMySQL
	case "postgres", "postgresql":
		return backendPostgres
	case "mongodb", "mongo":
		return backendMongoDB
	default:
		return backendMemory
	}
}

// sqlDB returns the active SQL handle for the configured backend.
func sqlDB() (*sql.DB, storeBackendKind, error) {
	switch k := backendKind(); k {
	case backendSQLite:
		db, err := sqliteDB()
		return db, k, err
	case backendMySQL:
		db, err := mysqlDB()
		return db, k, err
	case backendPostgres:
		db, err := postgresDB()
		return db, k, err
	default:
		return nil, k, errors.New("sql backend disabled")
	}
}

func placeholder(k storeBackendKind, idx int) string {
	if k == backendPostgres {
		return fmt.Sprintf("$%d", idx)
	}
	return "?"
}

func placeholders(k storeBackendKind, from, n int) string {
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, placeholder(k, from+i))
	}
	return strings.Join(parts, ", ")
}

func setDBPoolDefaults(db *sql.DB, maxOpen int) {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(30 * time.Minute)
}

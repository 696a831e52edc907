// package database opens the observer's state database: PostgreSQL when the
// URL says so, an embedded SQLite file otherwise.
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB wraps a GORM instance and, for PostgreSQL, the pgx pool behind health checks.
type DB struct {
	Pool   *pgxpool.Pool
	GORM   *gorm.DB
	Driver string
}

// New opens databaseURL. Accepted forms:
//
//	postgres://... or postgresql://...  PostgreSQL
//	sqlite://path/to/file.db            SQLite file (directory is created)
//	sqlite://:memory:                   SQLite in memory
//	anything else                       treated as a SQLite file path
func New(ctx context.Context, databaseURL string) (*DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	if isPostgres(databaseURL) {
		config, err := pgxpool.ParseConfig(databaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse database url: %w", err)
		}

		pool, err := pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("create connection pool: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}

		gormDB, err := gorm.Open(postgres.Open(databaseURL), gormCfg)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("open gorm: %w", err)
		}

		return &DB{Pool: pool, GORM: gormDB, Driver: DriverPostgres}, nil
	}

	path := SQLitePath(databaseURL)
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	gormDB, err := gorm.Open(sqlite.Open(path), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	return &DB{GORM: gormDB, Driver: DriverSQLite}, nil
}

// SQLitePath strips the sqlite:// scheme.
func SQLitePath(databaseURL string) string {
	path := strings.TrimPrefix(databaseURL, "sqlite://")
	if path == "" {
		return "observer.db"
	}
	return path
}

func isPostgres(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://")
}

// Close closes the connection pool and the underlying sql.DB.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if sqlDB, err := db.GORM.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Ping checks if the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if db.Pool != nil {
		return db.Pool.Ping(ctx)
	}
	sqlDB, err := db.GORM.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

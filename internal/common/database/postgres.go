package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/KeviinASD/audi-back/internal/common/config"

	_ "github.com/lib/pq"
)

const (
	pingTimeout     = 5 * time.Second
	connMaxLifetime = 30 * time.Minute
)

// NewPostgresDB opens a pooled lib/pq connection and verifies it with a ping.
func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database %s@%s:%d: %w", cfg.Database, cfg.Host, cfg.Port, err)
	}

	return db, nil
}

// Close closes db if it is not nil.
func Close(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}

package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/maikekai/surf-house-backend/internal/config"
)

// NewConnection opens the postgres pool and verifies it with a ping.
func NewConnection(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)
	// Idle timeout below max lifetime so pooled connections rotate
	db.SetConnMaxIdleTime(cfg.MaxLifetime / 2)

	return db, nil
}

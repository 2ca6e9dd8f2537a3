// Package postgres implements storage.Backend on PostgreSQL by wrapping the
// GORM backend.
package postgres

import (
	"fmt"
	"time"

	"github.com/hellogeo/geoanchor/internal/database"
	"github.com/hellogeo/geoanchor/internal/logging"
	gormstorage "github.com/hellogeo/geoanchor/internal/storage/gorm"
)

// Config holds configuration for the Postgres storage backend.
type Config struct {
	Connection    database.PostgresConfig
	FlushInterval time.Duration
}

// Backend wraps the GORM backend for Postgres.
type Backend struct {
	*gormstorage.Backend
}

// New connects to Postgres and creates the backend.
func New(cfg Config, logManager *logging.SlogManager) (*Backend, error) {
	db, err := database.GetPostgresDB(cfg.Connection)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:            db,
			LogManager:    logManager,
			FlushInterval: cfg.FlushInterval,
		}),
	}, nil
}

// Close applies queued writes and closes the connection pool.
func (b *Backend) Close() error {
	err := b.Backend.Close()
	if sqlDB, dbErr := b.DB().DB(); dbErr == nil {
		_ = sqlDB.Close()
	}
	return err
}

package main

import (
	"fmt"
	"log/slog"

	"github.com/hellogeo/geoanchor/internal/config"
	"github.com/hellogeo/geoanchor/internal/database"
	"github.com/hellogeo/geoanchor/internal/logging"
	"github.com/hellogeo/geoanchor/internal/storage"
	"github.com/hellogeo/geoanchor/internal/storage/memory"
	pgstorage "github.com/hellogeo/geoanchor/internal/storage/postgres"
	sqlitestorage "github.com/hellogeo/geoanchor/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

func initStorage(storageCfg config.StorageConfig, logManager *logging.SlogManager) (storage.Backend, error) {
	logger := logManager.Logger()
	logger.Debug("Initializing storage", "type", storageCfg.Type)

	backend, err := createStorageBackend(storageCfg, logManager, logger)
	if err != nil {
		logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		logger.Error("Failed to initialize storage backend", "error", err)
		_ = backend.Close()
		return nil, err
	}
	return backend, nil
}

func createStorageBackend(storageCfg config.StorageConfig, logManager *logging.SlogManager, logger *slog.Logger) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		backend, err := pgstorage.New(pgstorage.Config{
			Connection:    postgresConnection(storageCfg.Postgres),
			FlushInterval: storageCfg.FlushInterval,
		}, logManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres backend: %w", err)
		}
		logger.Info("Postgres storage backend initialized", "host", storageCfg.Postgres.Host)
		return backend, nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			Path:          storageCfg.SQLite.Path,
			FlushInterval: storageCfg.FlushInterval,
			DumpInterval:  storageCfg.SQLite.DumpInterval,
			DumpPath:      storageCfg.SQLite.DumpPath,
		}, logManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend initialized", "path", storageCfg.SQLite.Path)
		return backend, nil

	case "memory":
		logger.Info("Memory storage backend initialized")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

func postgresConnection(c config.PostgresConfig) database.PostgresConfig {
	return database.PostgresConfig{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		Database: c.Database,
	}
}

// migrate connects to the configured database and applies the schema.
func migrate(storageCfg config.StorageConfig, log zerolog.Logger) error {
	m := database.NewManager(log)
	defer m.Close()

	switch storageCfg.Type {
	case "postgres":
		if err := m.ConnectPostgres(postgresConnection(storageCfg.Postgres)); err != nil {
			return err
		}
	case "sqlite":
		if err := m.ConnectSqlite(storageCfg.SQLite.Path); err != nil {
			return err
		}
	default:
		return fmt.Errorf("storage type %q has no schema to migrate", storageCfg.Type)
	}
	return m.Setup()
}

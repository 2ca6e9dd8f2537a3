package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hellogeo/geoanchor/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "db.local",
		Port:     "5433",
		Username: "anchors",
		Password: "secret",
		Database: "geo",
	}

	assert.Equal(t, "host=db.local port=5433 user=anchors password=secret dbname=geo sslmode=disable", cfg.DSN())
}

func TestManager_ConnectSqliteAndSetup(t *testing.T) {
	m := NewManager(zerolog.Nop())
	path := filepath.Join(t.TempDir(), "anchors.db")

	require.NoError(t, m.ConnectSqlite(path))
	t.Cleanup(func() { _ = m.Close() })
	assert.True(t, m.IsValid)

	require.NoError(t, m.Setup())
	assert.True(t, m.DB.Migrator().HasTable(&model.Anchor{}))

	_, err := os.Stat(path)
	assert.NoError(t, err, "database file should exist")
}

func TestManager_SetupWithoutConnection(t *testing.T) {
	m := NewManager(zerolog.Nop())

	err := m.Setup()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestManager_CloseWithoutConnection(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.NoError(t, m.Close())
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := GetSqliteDB("")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.DatabaseModels...))
	require.NoError(t, db.Create(&model.Anchor{ID: "dump-1", Latitude: 1, Longitude: 2}).Error)

	out := filepath.Join(t.TempDir(), "dump.db")
	// a stale file is replaced
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0644))

	require.NoError(t, DumpMemoryDBToDisk(db, out))

	dumped, err := GetSqliteDB(out)
	require.NoError(t, err)
	var count int64
	require.NoError(t, dumped.Model(&model.Anchor{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	db, err := GetSqliteDB("")
	require.NoError(t, err)

	err = DumpMemoryDBToDisk(db, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path not set")
}

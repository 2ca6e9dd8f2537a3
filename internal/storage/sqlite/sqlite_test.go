package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hellogeo/geoanchor/internal/database"
	"github.com/hellogeo/geoanchor/internal/logging"
	"github.com/hellogeo/geoanchor/internal/storage"
	"github.com/hellogeo/geoanchor/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestFileBackend_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anchors.db")

	b, err := New(Config{Path: path}, logging.NewSlogManager())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.InsertAnchor(&core.AnchorRecord{ID: "a", Latitude: 1, Longitude: 2}))
	require.NoError(t, b.Close())

	reopened, err := New(Config{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, reopened.Init())
	t.Cleanup(func() { reopened.Close() })

	records, err := reopened.ListAnchors()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].ID)
}

func TestMemoryBackend_DumpOnClose(t *testing.T) {
	dumpPath := filepath.Join(t.TempDir(), "dump.db")

	b, err := New(Config{DumpPath: dumpPath, DumpInterval: time.Hour}, logging.NewSlogManager())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.InsertAnchor(&core.AnchorRecord{ID: "a"}))
	require.NoError(t, b.Close())

	_, err = os.Stat(dumpPath)
	require.NoError(t, err)

	db, err := database.GetSqliteDB(dumpPath)
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Table("anchors").Count(&count).Error)
	assert.Equal(t, int64(1), count)
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func TestDumps_OnlyInMemoryMode(t *testing.T) {
	assert.False(t, (&Backend{cfg: Config{Path: "x.db", DumpPath: "d.db", DumpInterval: time.Second}}).dumps())
	assert.False(t, (&Backend{cfg: Config{DumpPath: "d.db"}}).dumps())
	assert.True(t, (&Backend{cfg: Config{DumpPath: "d.db", DumpInterval: time.Second}}).dumps())
}

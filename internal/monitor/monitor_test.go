package monitor

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hellogeo/geoanchor/internal/database"
	"github.com/hellogeo/geoanchor/internal/logging"
	"github.com/hellogeo/geoanchor/internal/markers"
	"github.com/hellogeo/geoanchor/internal/render"
	"github.com/hellogeo/geoanchor/internal/session"
	"github.com/hellogeo/geoanchor/internal/storage"
	gormstorage "github.com/hellogeo/geoanchor/internal/storage/gorm"
	"github.com/hellogeo/geoanchor/internal/storage/memory"
	"github.com/hellogeo/geoanchor/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T, store storage.Backend) *session.Session {
	t.Helper()
	s, err := session.New(session.Dependencies{
		Storage: store,
		Render:  render.NewRegistry(),
		Markers: markers.NewMap(),
	}, session.DefaultOptions())
	require.NoError(t, err)
	return s
}

func fixedNow() time.Time {
	return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
}

func TestGetStatus_MemoryBackend(t *testing.T) {
	store := memory.New()
	sess := newSession(t, store)
	sess.PlaceAtCamera(core.CameraPose{Altitude: 2})
	sess.ToggleAction()

	svc := NewService(Dependencies{Session: sess, Storage: store, LogManager: logging.NewSlogManager(), Now: fixedNow})
	status := svc.GetStatus()

	assert.Equal(t, fixedNow(), status.Time)
	assert.Equal(t, session.Stats{Anchors: 1, ActionEnabled: true}, status.Session)
	assert.Zero(t, status.PendingWrites)
}

func TestGetStatus_QueuedBackend(t *testing.T) {
	db, err := database.GetSqliteDB(filepath.Join(t.TempDir(), "anchors.db"))
	require.NoError(t, err)
	store := gormstorage.New(gormstorage.Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, store.Init())
	t.Cleanup(func() { _ = store.Close() })

	sess := newSession(t, store)
	sess.PlaceAtCamera(core.CameraPose{})

	svc := NewService(Dependencies{Session: sess, Storage: store, LogManager: logging.NewSlogManager()})

	assert.Equal(t, 1, svc.GetStatus().PendingWrites)
}

func TestWriteStatus(t *testing.T) {
	store := memory.New()
	svc := NewService(Dependencies{Session: newSession(t, store), Storage: store, Now: fixedNow})

	var buf bytes.Buffer
	require.NoError(t, svc.WriteStatus(&buf))

	var got Status
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, fixedNow(), got.Time)
	assert.False(t, got.Session.Hydrated)
}

func TestStartStop_WritesStatusFile(t *testing.T) {
	store := memory.New()
	path := filepath.Join(t.TempDir(), "status.json")
	svc := NewService(Dependencies{
		Session:    newSession(t, store),
		Storage:    store,
		LogManager: logging.NewSlogManager(),
		StatusPath: path,
		Interval:   10 * time.Millisecond,
	})

	require.NoError(t, svc.Start())
	assert.True(t, svc.IsRunning())
	require.NoError(t, svc.Start())

	svc.Stop()
	assert.False(t, svc.IsRunning())
	svc.Stop()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Status
	require.NoError(t, json.Unmarshal(data, &got))
}

func TestStart_BadPath(t *testing.T) {
	store := memory.New()
	svc := NewService(Dependencies{
		Session:    newSession(t, store),
		Storage:    store,
		LogManager: logging.NewSlogManager(),
		StatusPath: filepath.Join(t.TempDir(), "missing", "status.json"),
	})

	assert.Error(t, svc.Start())
	assert.False(t, svc.IsRunning())
}

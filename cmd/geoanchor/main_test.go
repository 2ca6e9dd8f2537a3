package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hellogeo/geoanchor/internal/config"
	"github.com/hellogeo/geoanchor/internal/logging"
	"github.com/hellogeo/geoanchor/internal/storage/memory"
	"github.com/hellogeo/geoanchor/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	t.Cleanup(viper.Reset)
	config.SetDefaults()
	viper.Set("storage.type", "memory")
	viper.Set("logsDir", t.TempDir())

	a, err := newApp(true)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func decodeResults(t *testing.T, out *bytes.Buffer) []map[string]any {
	t.Helper()
	var results []map[string]any
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		var r map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		results = append(results, r)
	}
	return results
}

func TestReplay(t *testing.T) {
	a := newTestApp(t)
	in := strings.NewReader(`# walk past one anchor
{"command":"place","pose":{"latitude":52.0,"longitude":4.0,"altitude":1.5}}

{"command":"tick","pose":{"latitude":52.00001,"longitude":4.0,"heading":0}}
{"command":"teleport"}
`)
	var out bytes.Buffer

	require.NoError(t, a.replay(in, &out))

	results := decodeResults(t, &out)
	require.Len(t, results, 3)

	assert.Equal(t, "place", results[0]["command"])
	assert.EqualValues(t, 2, results[0]["line"])
	assert.NotContains(t, results[0], "error")

	assert.Equal(t, "tick", results[1]["command"])
	tick := results[1]["result"].(map[string]any)
	assert.EqualValues(t, 0, tick["nearestIndex"])

	assert.Equal(t, "teleport", results[2]["command"])
	assert.Contains(t, results[2]["error"], "unknown command")

	assert.Equal(t, 1, a.session.Len())
}

func TestReplay_InvalidJSONLine(t *testing.T) {
	a := newTestApp(t)
	var out bytes.Buffer

	require.NoError(t, a.replay(strings.NewReader("not json\n"), &out))

	results := decodeResults(t, &out)
	require.Len(t, results, 1)
	assert.NotEmpty(t, results[0]["error"])
}

func TestList(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.storage.InsertAnchor(&core.AnchorRecord{ID: "a", Latitude: 1, Longitude: 2}))
	var out bytes.Buffer

	require.NoError(t, a.list(&out))

	var records []core.AnchorRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].ID)
}

func TestPrintMarkers(t *testing.T) {
	a := newTestApp(t)
	for i, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, a.storage.InsertAnchor(&core.AnchorRecord{ID: id, Latitude: float64(i + 1), Longitude: 2}))
	}
	var out bytes.Buffer

	require.NoError(t, a.printMarkers(&out))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 3)
	assert.Equal(t, []float64{2, 2}, fc.Features[0].Geometry.Coordinates)

	assert.False(t, a.session.Hydrated())
	records, err := a.storage.ListAnchors()
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestCreateStorageBackend(t *testing.T) {
	logManager := logging.NewSlogManager()

	backend, err := createStorageBackend(config.StorageConfig{Type: "memory"}, logManager, logManager.Logger())
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, backend)

	_, err = createStorageBackend(config.StorageConfig{Type: "carrier-pigeon"}, logManager, logManager.Logger())
	assert.ErrorContains(t, err, "unknown storage type")
}

func TestMigrate_MemoryHasNoSchema(t *testing.T) {
	err := migrate(config.StorageConfig{Type: "memory"}, logging.NewZerolog("error", &bytes.Buffer{}))
	assert.ErrorContains(t, err, "no schema")
}

func TestRun_Version(t *testing.T) {
	t.Cleanup(viper.Reset)
	flags := newFlagSet()
	require.NoError(t, flags.Parse([]string{"-c", t.TempDir(), "version"}))
	var out bytes.Buffer

	require.NoError(t, run(flags, flags.Args(), strings.NewReader(""), &out))

	assert.Contains(t, out.String(), logging.AppName+" "+Version)
}

func TestNewApp_StartsMonitor(t *testing.T) {
	t.Cleanup(viper.Reset)
	config.SetDefaults()
	dir := t.TempDir()
	viper.Set("storage.type", "memory")
	viper.Set("logsDir", dir)
	viper.Set("monitor.statusPath", filepath.Join(dir, "status.json"))

	a, err := newApp(false)
	require.NoError(t, err)
	require.NotNil(t, a.monitor)
	assert.True(t, a.monitor.IsRunning())

	a.Close()
	assert.False(t, a.monitor.IsRunning())
	assert.FileExists(t, filepath.Join(dir, "status.json"))
}

func TestRun_UnknownCommand(t *testing.T) {
	t.Cleanup(viper.Reset)
	flags := newFlagSet()
	require.NoError(t, flags.Parse([]string{"-c", t.TempDir(), "teleport"}))

	err := run(flags, flags.Args(), strings.NewReader(""), &bytes.Buffer{})

	assert.ErrorContains(t, err, `unknown command "teleport"`)
}

package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCameraPose_Point(t *testing.T) {
	pose := CameraPose{Latitude: 52.1, Longitude: 4.3, Altitude: 12, Heading: 90}
	assert.Equal(t, GeoPoint{Latitude: 52.1, Longitude: 4.3}, pose.Point())
}

func TestAnchorRecord_Point(t *testing.T) {
	r := AnchorRecord{ID: "a", Latitude: -33.9, Longitude: 151.2}
	assert.Equal(t, GeoPoint{Latitude: -33.9, Longitude: 151.2}, r.Point())
}

func TestAnchorView_JSONUsesStateNames(t *testing.T) {
	data, err := json.Marshal(AnchorView{Index: 1, State: StateFacingActionable})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"facing_actionable"`)

	data, err = json.Marshal(map[string]Prompt{"prompt": PromptHelp})
	require.NoError(t, err)
	assert.JSONEq(t, `{"prompt":"help"}`, string(data))
}

func TestVisualState_UnknownIsNeutral(t *testing.T) {
	assert.Equal(t, "neutral", VisualState(42).String())
	assert.Equal(t, "none", Prompt(-1).String())
}

// pkg/core/selection.go
package core

import "time"

// VisualState selects how an anchor is drawn for a tick.
type VisualState int

const (
	// StateNeutral is used for every anchor that is not the nearest, and for
	// a nearest anchor that does not face the camera.
	StateNeutral VisualState = iota
	// StateFacingIdle is the nearest anchor, facing the camera, with the action toggle off.
	StateFacingIdle
	// StateFacingActionable is the nearest anchor, facing the camera, with the action toggle on.
	StateFacingActionable
)

func (s VisualState) String() string {
	switch s {
	case StateFacingIdle:
		return "facing_idle"
	case StateFacingActionable:
		return "facing_actionable"
	default:
		return "neutral"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s VisualState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Prompt is the overlay shown next to the camera view.
type Prompt int

const (
	// PromptNone leaves the overlay untouched.
	PromptNone Prompt = iota
	// PromptHelp shows the help text.
	PromptHelp
	// PromptAction shows the action button.
	PromptAction
)

func (p Prompt) String() string {
	switch p {
	case PromptHelp:
		return "help"
	case PromptAction:
		return "action"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Prompt) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// AnchorView is the per-tick selection result for one anchor.
type AnchorView struct {
	Index     int         `json:"index"`
	AnchorID  string      `json:"anchorId"`
	Distance  float64     `json:"distance"`
	IsNearest bool        `json:"isNearest"`
	IsFacing  bool        `json:"isFacing"`
	State     VisualState `json:"state"`
}

// TickSample summarises one non-empty tick for telemetry sinks.
type TickSample struct {
	Time            time.Time `json:"time"`
	Anchors         int       `json:"anchors"`
	NearestIndex    int       `json:"nearestIndex"`
	NearestDistance float64   `json:"nearestDistance"`
	Facing          bool      `json:"facing"`
	ActionEnabled   bool      `json:"actionEnabled"`
}

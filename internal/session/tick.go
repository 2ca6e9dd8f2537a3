package session

import (
	"context"
	"errors"
	"math"

	"github.com/hellogeo/geoanchor/internal/anchorset"
	"github.com/hellogeo/geoanchor/internal/visibility"
	"github.com/hellogeo/geoanchor/pkg/core"
)

// TickResult is the selection outcome for one camera pose.
type TickResult struct {
	Anchors         []core.AnchorView `json:"anchors"`
	NearestIndex    int               `json:"nearestIndex"`
	NearestDistance float64           `json:"nearestDistance"`
	Prompt          core.Prompt       `json:"prompt"`
	ActionEnabled   bool              `json:"actionEnabled"`
}

// Empty reports whether the tick had no anchors to select from.
func (r TickResult) Empty() bool {
	return len(r.Anchors) == 0
}

// Tick selects the nearest anchor for pose and classifies every anchor.
// Every anchor within TieEpsilon of the minimum distance counts as nearest.
func (s *Session) Tick(pose core.CameraPose) TickResult {
	result := TickResult{NearestIndex: -1, ActionEnabled: s.actionEnabled}
	camera := pose.Point()

	nearest, minDistance, err := s.set.NearestTo(camera)
	if err != nil {
		if errors.Is(err, anchorset.ErrEmptySet) {
			s.log.Debug("tick skipped", "reason", err)
		}
		return result
	}
	result.NearestIndex = nearest
	result.NearestDistance = minDistance

	nearestFacing := false
	views := make([]core.AnchorView, 0, s.set.Len())
	for i, e := range s.set.Entries() {
		d, err := s.set.DistanceTo(i, camera)
		if err != nil {
			continue
		}
		view := core.AnchorView{
			Index:    i,
			AnchorID: e.Anchor.ID,
			Distance: d,
			State:    core.StateNeutral,
		}
		if math.Abs(d-minDistance) < s.opts.TieEpsilon {
			heading := visibility.HeadingFromQuaternion(e.Anchor.Orientation)
			view.IsNearest = true
			view.IsFacing = visibility.IsFacingCamera(heading, pose.Heading, s.opts.ToleranceDegrees)
			view.State = stateFor(view.IsFacing, s.actionEnabled)
			if i == nearest {
				nearestFacing = view.IsFacing
			}
		}
		views = append(views, view)
	}
	result.Anchors = views

	if s.helpAcked {
		if nearestFacing {
			result.Prompt = core.PromptAction
		} else {
			result.Prompt = core.PromptHelp
		}
	}

	s.ins.nearestDistance.Record(context.Background(), minDistance)
	s.emit(core.TickSample{
		Time:            s.opts.Now(),
		Anchors:         len(views),
		NearestIndex:    nearest,
		NearestDistance: minDistance,
		Facing:          nearestFacing,
		ActionEnabled:   s.actionEnabled,
	})
	return result
}

func stateFor(facing, action bool) core.VisualState {
	switch {
	case !facing:
		return core.StateNeutral
	case action:
		return core.StateFacingActionable
	default:
		return core.StateFacingIdle
	}
}

func (s *Session) emit(sample core.TickSample) {
	if s.deps.Telemetry == nil {
		return
	}
	if err := s.deps.Telemetry.WriteSample(sample); err != nil {
		s.log.Debug("telemetry write failed", "error", err)
	}
}

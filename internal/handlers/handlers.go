package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/hellogeo/geoanchor/internal/dispatcher"
	"github.com/hellogeo/geoanchor/internal/geo"
	"github.com/hellogeo/geoanchor/internal/logging"
	"github.com/hellogeo/geoanchor/internal/markers"
	"github.com/hellogeo/geoanchor/internal/session"
	"github.com/hellogeo/geoanchor/internal/storage"
	"github.com/hellogeo/geoanchor/pkg/core"
)

// ErrNoPose is returned when a command needs a camera pose and none has been seen.
var ErrNoPose = errors.New("no camera pose received yet")

// PoseContext holds the last camera pose received from the host
type PoseContext struct {
	mu   sync.RWMutex
	pose core.CameraPose
	set  bool
}

// NewPoseContext creates an empty PoseContext
func NewPoseContext() *PoseContext {
	return &PoseContext{}
}

// Get returns the last pose and whether one was set
func (pc *PoseContext) Get() (core.CameraPose, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.pose, pc.set
}

// Set stores the latest pose
func (pc *PoseContext) Set(p core.CameraPose) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.pose = p
	pc.set = true
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Session    *session.Session
	Storage    storage.Backend
	Markers    *markers.Map
	LogManager *logging.SlogManager
	// AutoHydrate hydrates the session from the first pose any command carries.
	AutoHydrate bool
}

// Service turns host commands into session calls
type Service struct {
	deps         Dependencies
	ctx          *PoseContext
	writeLogFunc func(functionName, data, level string)
}

// NewService creates a new handler service
func NewService(deps Dependencies, ctx *PoseContext) *Service {
	s := &Service{
		deps: deps,
		ctx:  ctx,
	}
	// Default writeLog function uses the logging manager
	s.writeLogFunc = func(functionName, data, level string) {
		if deps.LogManager != nil {
			deps.LogManager.WriteLog(functionName, data, level)
		}
	}
	return s
}

// GetPoseContext returns the pose context
func (s *Service) GetPoseContext() *PoseContext {
	return s.ctx
}

func (s *Service) writeLog(functionName, data, level string) {
	s.writeLogFunc(functionName, data, level)
}

// RegisterHandlers registers every session command with the dispatcher.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register("hydrate", s.handleHydrate, dispatcher.Logged())
	d.Register("place", s.handlePlace, dispatcher.Logged())
	d.Register("place_at", s.handlePlaceAt, dispatcher.Logged())
	d.Register("toggle", s.handleToggle, dispatcher.Logged())
	d.Register("ack_help", s.handleAckHelp, dispatcher.Logged())
	d.Register("markers", s.handleMarkers, dispatcher.Logged())
	d.Register("ensure_markers", s.handleEnsureMarkers, dispatcher.Logged())
	d.Register("list", s.handleList, dispatcher.Logged())

	// ticks arrive every frame, keep them out of the debug log
	d.Register("tick", s.handleTick)
}

type poseCommand struct {
	Pose *core.CameraPose `json:"pose"`
}

type placeAtCommand struct {
	Pose *core.CameraPose `json:"pose"`
	// At is "lat,lon" text, as typed or tapped on the map.
	At    string         `json:"at"`
	Point *core.GeoPoint `json:"point"`
}

func decode[T any](e dispatcher.Event) (T, error) {
	var cmd T
	if len(e.Payload) == 0 {
		return cmd, nil
	}
	if err := json.Unmarshal(e.Payload, &cmd); err != nil {
		return cmd, fmt.Errorf("decoding %s payload: %w", e.Command, err)
	}
	return cmd, nil
}

// resolvePose stores p when given and otherwise falls back to the last pose.
// With AutoHydrate on, a given pose hydrates the session first.
func (s *Service) resolvePose(p *core.CameraPose) (core.CameraPose, error) {
	pose, err := s.lastPose(p)
	if err == nil && p != nil {
		s.ensureHydrated(pose)
	}
	return pose, err
}

func (s *Service) lastPose(p *core.CameraPose) (core.CameraPose, error) {
	if p != nil {
		s.ctx.Set(*p)
		return *p, nil
	}
	pose, ok := s.ctx.Get()
	if !ok {
		return core.CameraPose{}, ErrNoPose
	}
	return pose, nil
}

func (s *Service) ensureHydrated(pose core.CameraPose) {
	if !s.deps.AutoHydrate || s.deps.Session.Hydrated() {
		return
	}
	out, err := s.deps.Session.Hydrate(pose)
	if err != nil {
		s.writeLog("hydrate", fmt.Sprintf("Error hydrating session: %v", err), "ERROR")
		return
	}
	if err := out.Err(); err != nil {
		s.writeLog("hydrate", fmt.Sprintf("Hydrated with collaborator failures: %v", err), "WARN")
	}
}

func (s *Service) handleHydrate(e dispatcher.Event) (any, error) {
	cmd, err := decode[poseCommand](e)
	if err != nil {
		return nil, err
	}
	// hydrate here so the caller gets the outcome
	pose, err := s.lastPose(cmd.Pose)
	if err != nil {
		return nil, err
	}

	out, err := s.deps.Session.Hydrate(pose)
	if err != nil {
		s.writeLog("hydrate", fmt.Sprintf("Error hydrating session: %v", err), "ERROR")
		return nil, err
	}
	return out, out.Err()
}

func (s *Service) handlePlace(e dispatcher.Event) (any, error) {
	cmd, err := decode[poseCommand](e)
	if err != nil {
		return nil, err
	}
	pose, err := s.resolvePose(cmd.Pose)
	if err != nil {
		return nil, err
	}

	out := s.deps.Session.PlaceAtCamera(pose)
	return out, out.Err()
}

func (s *Service) handlePlaceAt(e dispatcher.Event) (any, error) {
	cmd, err := decode[placeAtCommand](e)
	if err != nil {
		return nil, err
	}
	pose, err := s.resolvePose(cmd.Pose)
	if err != nil {
		return nil, err
	}

	var point core.GeoPoint
	switch {
	case cmd.Point != nil:
		if !geo.Valid(*cmd.Point) {
			return nil, fmt.Errorf("place_at: %w", geo.ErrInvalidCoordinates)
		}
		point = *cmd.Point
	case cmd.At != "":
		point, _, err = geo.ParseGeoPoint(cmd.At)
		if err != nil {
			s.writeLog("place_at", fmt.Sprintf("Error parsing location %q: %v", cmd.At, err), "WARN")
			return nil, err
		}
	default:
		return nil, fmt.Errorf("place_at: %w: no location given", geo.ErrInvalidCoordinates)
	}

	out := s.deps.Session.PlaceAt(point, pose)
	return out, out.Err()
}

func (s *Service) handleToggle(e dispatcher.Event) (any, error) {
	return map[string]bool{"actionEnabled": s.deps.Session.ToggleAction()}, nil
}

func (s *Service) handleAckHelp(e dispatcher.Event) (any, error) {
	s.deps.Session.AcknowledgeHelp()
	return "ok", nil
}

func (s *Service) handleTick(e dispatcher.Event) (any, error) {
	cmd, err := decode[poseCommand](e)
	if err != nil {
		return nil, err
	}
	pose, err := s.resolvePose(cmd.Pose)
	if err != nil {
		return nil, err
	}
	return s.deps.Session.Tick(pose), nil
}

func (s *Service) handleMarkers(e dispatcher.Event) (any, error) {
	if s.deps.Markers == nil {
		return nil, errors.New("no marker map configured")
	}
	return s.deps.Markers.FeatureCollection(), nil
}

func (s *Service) handleEnsureMarkers(e dispatcher.Event) (any, error) {
	out := s.deps.Session.EnsureMarkers()
	return out, out.Err()
}

func (s *Service) handleList(e dispatcher.Event) (any, error) {
	records, err := s.deps.Storage.ListAnchors()
	if err != nil {
		s.writeLog("list", fmt.Sprintf("Error listing anchors: %v", err), "ERROR")
		return nil, err
	}
	return records, nil
}

// Package session owns the anchor set of one camera session and keeps the
// render handles, persisted records and map markers in step with it.
//
// A Session is single-owner: one goroutine drives Tick and the placement
// calls. Collaborator failures never roll back the in-memory set; they are
// returned as effects in an Outcome for the host to act on.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hellogeo/geoanchor/internal/anchorset"
	"github.com/hellogeo/geoanchor/internal/config"
	"github.com/hellogeo/geoanchor/internal/markers"
	"github.com/hellogeo/geoanchor/internal/render"
	"github.com/hellogeo/geoanchor/internal/storage"
	"github.com/hellogeo/geoanchor/internal/visibility"
	"github.com/hellogeo/geoanchor/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMissingDependency is returned by New when a required collaborator is nil.
var ErrMissingDependency = errors.New("missing session dependency")

// TelemetrySink receives one sample per non-empty tick.
type TelemetrySink interface {
	WriteSample(s core.TickSample) error
}

// Dependencies holds the collaborators a Session drives.
type Dependencies struct {
	Storage   storage.Backend
	Render    render.Anchorer
	Markers   markers.Layer
	Telemetry TelemetrySink // optional
	Logger    *slog.Logger  // optional, defaults to slog.Default()
}

// Options tunes selection and placement.
type Options struct {
	MaxAnchors       int
	ToleranceDegrees float64
	TieEpsilon       float64
	AltitudeOffset   float64
	Now              func() time.Time
}

// DefaultOptions returns the stock settings: 3 anchors, a 75 degree cone,
// a 1 mm tie window and anchors 1.3 m below the camera.
func DefaultOptions() Options {
	return Options{
		MaxAnchors:       anchorset.MaxAnchors,
		ToleranceDegrees: visibility.DefaultToleranceDegrees,
		TieEpsilon:       0.001,
		AltitudeOffset:   1.3,
		Now:              time.Now,
	}
}

// OptionsFromConfig maps the session config section onto Options.
func OptionsFromConfig(c config.SessionConfig) Options {
	o := DefaultOptions()
	if c.MaxAnchors > 0 {
		o.MaxAnchors = c.MaxAnchors
	}
	if c.ToleranceDegrees > 0 {
		o.ToleranceDegrees = c.ToleranceDegrees
	}
	if c.TieEpsilon > 0 {
		o.TieEpsilon = c.TieEpsilon
	}
	o.AltitudeOffset = c.AltitudeOffset
	return o
}

// Session is the anchor controller for one camera session.
type Session struct {
	deps Dependencies
	opts Options
	log  *slog.Logger
	ins  *instruments

	set           *anchorset.Set
	hydrated      bool
	actionEnabled bool
	helpAcked     bool

	// mirrored for log attributes read from other goroutines
	anchorCount  atomic.Int64
	actionFlag   atomic.Bool
	hydratedFlag atomic.Bool
}

// New creates a Session. Storage, Render and Markers are required.
func New(deps Dependencies, opts Options) (*Session, error) {
	if deps.Storage == nil || deps.Render == nil || deps.Markers == nil {
		return nil, fmt.Errorf("%w: storage, render and markers are required", ErrMissingDependency)
	}
	def := DefaultOptions()
	if opts.MaxAnchors < 1 {
		opts.MaxAnchors = def.MaxAnchors
	}
	if opts.ToleranceDegrees <= 0 {
		opts.ToleranceDegrees = def.ToleranceDegrees
	}
	if opts.TieEpsilon <= 0 {
		opts.TieEpsilon = def.TieEpsilon
	}
	// a negative offset places anchors above the camera
	if opts.AltitudeOffset == 0 {
		opts.AltitudeOffset = def.AltitudeOffset
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	ins, err := newInstruments()
	if err != nil {
		return nil, fmt.Errorf("creating session metrics: %w", err)
	}

	return &Session{
		deps: deps,
		opts: opts,
		log:  log.With("component", "session"),
		ins:  ins,
		set:  anchorset.New(opts.MaxAnchors),
	}, nil
}

// Anchors returns the current anchors, oldest first.
func (s *Session) Anchors() []core.Anchor {
	return s.set.Anchors()
}

// Coordinates returns the current coordinates, index-aligned with Anchors.
func (s *Session) Coordinates() []core.GeoPoint {
	return s.set.Coordinates()
}

// Len returns the number of anchors in the set.
func (s *Session) Len() int {
	return s.set.Len()
}

// Hydrated reports whether Hydrate has completed.
func (s *Session) Hydrated() bool {
	return s.hydrated
}

// ActionEnabled reports the action toggle.
func (s *Session) ActionEnabled() bool {
	return s.actionEnabled
}

// ToggleAction flips the action toggle and returns the new value.
func (s *Session) ToggleAction() bool {
	s.actionEnabled = !s.actionEnabled
	s.actionFlag.Store(s.actionEnabled)
	s.log.Debug("action toggled", "enabled", s.actionEnabled)
	return s.actionEnabled
}

// AcknowledgeHelp dismisses the help overlay so prompts are reported from
// the next tick on.
func (s *Session) AcknowledgeHelp() {
	s.helpAcked = true
}

// HelpAcknowledged reports whether AcknowledgeHelp was called.
func (s *Session) HelpAcknowledged() bool {
	return s.helpAcked
}

// Stats summarizes the session for status reporting.
type Stats struct {
	Anchors       int  `json:"anchors"`
	ActionEnabled bool `json:"actionEnabled"`
	Hydrated      bool `json:"hydrated"`
}

// Stats returns a summary of the session. Safe to call from any goroutine.
func (s *Session) Stats() Stats {
	return Stats{
		Anchors:       int(s.anchorCount.Load()),
		ActionEnabled: s.actionFlag.Load(),
		Hydrated:      s.hydratedFlag.Load(),
	}
}

// LogAttrs returns attributes describing the session for log records.
// Safe to call from any goroutine.
func (s *Session) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Int64("anchors", s.anchorCount.Load()),
		slog.Bool("action", s.actionFlag.Load()),
	}
}

// Hydrate loads persisted anchors once. Each kept record gets a fresh render
// handle at the camera altitude minus the altitude offset. Records beyond the
// newest MaxAnchors are deleted from storage. Markers are created when the
// layer is empty, otherwise reconciled with EnsureMarkers.
//
// A listing error leaves the session unhydrated so the call can be retried.
// Later calls are no-ops.
func (s *Session) Hydrate(pose core.CameraPose) (Outcome, error) {
	var out Outcome
	if s.hydrated {
		return out, nil
	}

	records, err := s.deps.Storage.ListAnchors()
	if err != nil {
		return out, fmt.Errorf("listing anchors: %w", err)
	}
	s.hydrated = true
	s.hydratedFlag.Store(true)

	if surplus := len(records) - s.set.Cap(); surplus > 0 {
		for i, r := range records[:surplus] {
			r := r
			err := s.deps.Storage.DeleteAnchor(&r)
			out.record(OpDeleteRecord, i, r.ID, err)
		}
		records = records[surplus:]
	}

	alt := pose.Altitude - s.opts.AltitudeOffset
	entries := make([]anchorset.Entry, 0, len(records))
	for _, r := range records {
		orientation := visibility.Normalize(r.Orientation)
		h, err := s.deps.Render.CreateAnchor(r.Latitude, r.Longitude, alt, orientation)
		out.record(OpCreateRender, len(entries), r.ID, err)
		if err != nil {
			continue
		}
		entries = append(entries, anchorset.Entry{
			Anchor: core.Anchor{
				ID:          r.ID,
				Handle:      h,
				Position:    r.Point(),
				Altitude:    alt,
				Orientation: orientation,
			},
			Coordinate: r.Point(),
		})
	}
	s.set.Hydrate(entries)
	s.syncMirror()

	if s.deps.Markers.Len() == 0 {
		for i, e := range s.set.Entries() {
			s.addMarker(&out, i, e)
		}
	} else {
		s.reconcileMarkers(&out)
	}

	s.countFailures(out)
	s.log.Info("session hydrated", "records", len(records), "anchors", s.set.Len(), "failures", len(out.Failures()))
	return out, nil
}

// PlaceAtCamera places an anchor at the camera position.
func (s *Session) PlaceAtCamera(pose core.CameraPose) Outcome {
	return s.place(pose.Point(), pose)
}

// PlaceAt places an anchor at point, using the camera altitude.
func (s *Session) PlaceAt(point core.GeoPoint, pose core.CameraPose) Outcome {
	return s.place(point, pose)
}

// place evicts the oldest anchor when the set is full, then creates the
// render handle, appends the anchor, persists it and adds its marker.
// When the render handle cannot be created nothing is appended.
func (s *Session) place(point core.GeoPoint, pose core.CameraPose) Outcome {
	var out Outcome
	ctx := context.Background()

	if s.set.Full() {
		if evicted := s.set.RemoveFirst(); evicted != nil {
			s.evict(&out, *evicted)
			s.ins.evicted.Add(ctx, 1)
		}
	}

	alt := pose.Altitude - s.opts.AltitudeOffset
	q := core.IdentityQuaternion
	id := uuid.NewString()
	index := s.set.Len()

	h, err := s.deps.Render.CreateAnchor(point.Latitude, point.Longitude, alt, q)
	out.record(OpCreateRender, index, id, err)
	if err != nil {
		s.syncMirror()
		s.countFailures(out)
		s.log.Error("failed to create render anchor", "error", err)
		return out
	}

	anchor := core.Anchor{
		ID:          id,
		Handle:      h,
		Position:    point,
		Altitude:    alt,
		Orientation: q,
	}
	s.set.Insert(anchor, point)
	out.Placed = &anchor
	s.syncMirror()
	s.ins.placed.Add(ctx, 1)

	record := core.AnchorRecord{
		ID:          id,
		Latitude:    point.Latitude,
		Longitude:   point.Longitude,
		Altitude:    alt,
		Heading:     visibility.HeadingFromQuaternion(q),
		Orientation: q,
		CreatedAt:   s.opts.Now(),
	}
	out.record(OpInsertRecord, index, id, s.deps.Storage.InsertAnchor(&record))

	s.addMarker(&out, index, anchorset.Entry{Anchor: anchor, Coordinate: point})

	s.countFailures(out)
	if err := out.Err(); err != nil {
		s.log.Warn("anchor placed with collaborator failures", "anchor", id, "error", err)
	} else {
		s.log.Debug("anchor placed", "anchor", id, "index", index)
	}
	return out
}

// evict runs the removal side effects for the entry that was at index 0:
// detach the render handle, delete the record, then hide and remove the marker.
func (s *Session) evict(out *Outcome, e anchorset.Entry) {
	a := e.Anchor
	out.Evicted = &a

	out.record(OpDetachRender, 0, a.ID, s.deps.Render.Detach(a.Handle))

	record := core.AnchorRecord{
		ID:          a.ID,
		Latitude:    e.Coordinate.Latitude,
		Longitude:   e.Coordinate.Longitude,
		Altitude:    a.Altitude,
		Orientation: a.Orientation,
	}
	out.record(OpDeleteRecord, 0, a.ID, s.deps.Storage.DeleteAnchor(&record))

	out.record(OpHideMarker, 0, a.ID, s.deps.Markers.SetVisible(0, false))
	out.record(OpRemoveMarker, 0, a.ID, s.deps.Markers.RemoveMarker(0))
}

func (s *Session) addMarker(out *Outcome, index int, e anchorset.Entry) {
	i := s.deps.Markers.AddMarker()
	out.record(OpAddMarker, i, e.Anchor.ID, nil)
	out.record(OpPositionMarker, i, e.Anchor.ID, s.deps.Markers.SetPosition(i, e.Coordinate))
	out.record(OpShowMarker, i, e.Anchor.ID, s.deps.Markers.SetVisible(i, true))
	if i != index {
		s.log.Warn("marker index out of step with anchor set", "marker", i, "anchor", index)
	}
}

// EnsureMarkers re-creates markers missing from the layer, drops extra ones
// and moves every kept marker back onto its anchor, so marker i mirrors
// anchor i again.
func (s *Session) EnsureMarkers() Outcome {
	var out Outcome
	s.reconcileMarkers(&out)
	s.countFailures(out)
	return out
}

func (s *Session) reconcileMarkers(out *Outcome) {
	entries := s.set.Entries()

	for n := s.deps.Markers.Len(); n > len(entries); n-- {
		out.record(OpRemoveMarker, n-1, "", s.deps.Markers.RemoveMarker(n-1))
	}
	kept := s.deps.Markers.Len()
	for i := 0; i < kept; i++ {
		e := entries[i]
		out.record(OpPositionMarker, i, e.Anchor.ID, s.deps.Markers.SetPosition(i, e.Coordinate))
		out.record(OpShowMarker, i, e.Anchor.ID, s.deps.Markers.SetVisible(i, true))
	}
	for i := kept; i < len(entries); i++ {
		s.addMarker(out, i, entries[i])
	}
}

func (s *Session) syncMirror() {
	s.anchorCount.Store(int64(s.set.Len()))
}

func (s *Session) countFailures(out Outcome) {
	ctx := context.Background()
	for _, e := range out.Failures() {
		s.ins.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", string(e.Op))))
	}
}

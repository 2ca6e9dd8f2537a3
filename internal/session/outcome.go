package session

import (
	"errors"
	"fmt"

	"github.com/hellogeo/geoanchor/pkg/core"
)

// Op names one collaborator call made by the session.
type Op string

const (
	OpCreateRender   Op = "render.create"
	OpDetachRender   Op = "render.detach"
	OpInsertRecord   Op = "storage.insert"
	OpDeleteRecord   Op = "storage.delete"
	OpAddMarker      Op = "marker.add"
	OpPositionMarker Op = "marker.position"
	OpShowMarker     Op = "marker.show"
	OpHideMarker     Op = "marker.hide"
	OpRemoveMarker   Op = "marker.remove"
)

// Effect is one side effect performed against a collaborator, in call order.
type Effect struct {
	Op       Op     `json:"op"`
	Index    int    `json:"index"`
	AnchorID string `json:"anchorId"`
	Err      error  `json:"-"`
}

// Failed reports whether the collaborator call returned an error.
func (e Effect) Failed() bool {
	return e.Err != nil
}

// CollaboratorError wraps a failed collaborator call.
// The in-memory set is not rolled back when one occurs.
type CollaboratorError struct {
	Op       Op
	Index    int
	AnchorID string
	Err      error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s (index %d, anchor %s): %v", e.Op, e.Index, e.AnchorID, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Outcome reports what a mutating session call did.
type Outcome struct {
	// Placed is the appended anchor, nil when nothing was appended.
	Placed *core.Anchor `json:"placed,omitempty"`
	// Evicted is the anchor removed to make room, nil when none was.
	Evicted *core.Anchor `json:"evicted,omitempty"`
	Effects []Effect     `json:"effects"`
}

func (o *Outcome) record(op Op, index int, anchorID string, err error) {
	o.Effects = append(o.Effects, Effect{Op: op, Index: index, AnchorID: anchorID, Err: err})
}

// Failures returns the failed effects.
func (o Outcome) Failures() []Effect {
	var failed []Effect
	for _, e := range o.Effects {
		if e.Failed() {
			failed = append(failed, e)
		}
	}
	return failed
}

// Err joins every failed effect as a *CollaboratorError, or returns nil.
func (o Outcome) Err() error {
	var errs []error
	for _, e := range o.Failures() {
		errs = append(errs, &CollaboratorError{Op: e.Op, Index: e.Index, AnchorID: e.AnchorID, Err: e.Err})
	}
	return errors.Join(errs...)
}

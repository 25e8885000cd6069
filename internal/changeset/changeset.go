// Package changeset implements the Change Codec (spec.md §4.6): the
// canonical wire shape for a single model change, and the functions that
// build one from a Model Store element or apply one back onto a store.
package changeset

import (
	"encoding/json"

	"github.com/jongik-sv/kirosync/internal/model"
)

// Kind identifies what a ChangeEvent does.
type Kind string

const (
	KindCreate     Kind = "create"
	KindProperty   Kind = "property"
	KindPosition   Kind = "position"
	KindRemove     Kind = "remove"
	KindConnection Kind = "connection"
)

// Origin distinguishes a change produced by the local editor from one
// applied because it arrived over the wire from a remote participant.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// ChangeEvent is the canonical wire shape for one model change. Optional
// fields are pointers so encoding/json omits them when absent instead of
// emitting zero values that would be ambiguous with a real zero (e.g. x=0).
type ChangeEvent struct {
	Kind       Kind           `json:"kind"`
	DiagramID  string         `json:"diagramId"`
	ElementID  string         `json:"elementId"`
	Origin     Origin         `json:"origin"`
	Version    int            `json:"version,omitempty"`
	ElementType string        `json:"elementType,omitempty"`

	// create / connection
	SourceID  string  `json:"sourceId,omitempty"`
	TargetID  string  `json:"targetId,omitempty"`
	Waypoints []Point `json:"waypoints,omitempty"`

	// position
	X      *int `json:"x,omitempty"`
	Y      *int `json:"y,omitempty"`
	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`

	// property
	Business map[string]any `json:"business,omitempty"`

	// remove: the cascade set computed at the sender (REDESIGN FLAGS:
	// cascade moved from receiver to sender), elementID plus every id
	// incident to it.
	RemovedIDs []string `json:"removedIds,omitempty"`
}

// Point mirrors model.Point in the wire shape so this package doesn't leak
// model's internal representation verbatim into JSON (keeps the codec the
// single seam where wire shape and in-memory shape can diverge).
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func toWirePoints(pts []model.Point) []Point {
	if pts == nil {
		return nil
	}
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{X: p.X, Y: p.Y}
	}
	return out
}

func fromWirePoints(pts []Point) []model.Point {
	if pts == nil {
		return nil
	}
	out := make([]model.Point, len(pts))
	for i, p := range pts {
		out[i] = model.Point{X: p.X, Y: p.Y}
	}
	return out
}

func intPtr(v int) *int { return &v }

// requiredBusinessProperties are the only business-object fields the wire
// format carries on a create event — copied from the element's business map
// only when present, so internal bookkeeping keys (parent, flowElements)
// never leak onto the wire.
var requiredBusinessProperties = []string{
	"name", "documentation", "assignee", "candidateUsers", "candidateGroups", "formKey", "priority", "dueDate",
}

// extractBusinessProperties copies the required-extraction subset of b onto
// a fresh map, omitting any key not present in b.
func extractBusinessProperties(b model.Business) map[string]any {
	out := make(map[string]any, len(requiredBusinessProperties))
	for _, key := range requiredBusinessProperties {
		if v, ok := b[key]; ok {
			out[key] = v
		}
	}
	return out
}

// EncodeCreate builds a create ChangeEvent from a freshly inserted element.
func EncodeCreate(diagramID string, e *model.Element, origin Origin) ChangeEvent {
	ev := ChangeEvent{
		Kind:        KindCreate,
		DiagramID:   diagramID,
		ElementID:   e.ID,
		ElementType: e.Type,
		Origin:      origin,
		Business:    extractBusinessProperties(e.Business),
	}
	if e.IsConnection() {
		ev.Kind = KindConnection
		ev.SourceID = e.SourceID
		ev.TargetID = e.TargetID
		ev.Waypoints = toWirePoints(e.Waypoints)
	} else {
		ev.X = intPtr(e.X)
		ev.Y = intPtr(e.Y)
		ev.Width = intPtr(e.Width)
		ev.Height = intPtr(e.Height)
	}
	return ev
}

// EncodeProperty builds a property ChangeEvent carrying only the patch
// applied, not the full business object (the patch is what callers
// typically already have on hand, and it's what the receiver needs to
// reapply via Store.SetBusiness).
func EncodeProperty(diagramID, elementID string, patch map[string]any, origin Origin) ChangeEvent {
	return ChangeEvent{
		Kind:      KindProperty,
		DiagramID: diagramID,
		ElementID: elementID,
		Origin:    origin,
		Business:  patch,
	}
}

// EncodePosition builds a position ChangeEvent for a shape move/resize.
func EncodePosition(diagramID string, e *model.Element, origin Origin) ChangeEvent {
	return ChangeEvent{
		Kind:      KindPosition,
		DiagramID: diagramID,
		ElementID: e.ID,
		Origin:    origin,
		X:         intPtr(e.X),
		Y:         intPtr(e.Y),
		Width:     intPtr(e.Width),
		Height:    intPtr(e.Height),
	}
}

// EncodeRemove builds a remove ChangeEvent carrying the full cascade set
// (elementID is removedIDs[len-1] by Store.RemoveByID's ordering convention).
func EncodeRemove(diagramID string, removedIDs []string, origin Origin) ChangeEvent {
	elementID := ""
	if n := len(removedIDs); n > 0 {
		elementID = removedIDs[n-1]
	}
	return ChangeEvent{
		Kind:       KindRemove,
		DiagramID:  diagramID,
		ElementID:  elementID,
		Origin:     origin,
		RemovedIDs: removedIDs,
	}
}

// Encode marshals ev to its wire JSON form.
func Encode(ev ChangeEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// Decode unmarshals wire JSON into a ChangeEvent.
func Decode(data []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ChangeEvent{}, err
	}
	return ev, nil
}

// ModelWaypoints converts the event's wire waypoints back to model.Point.
func (ev ChangeEvent) ModelWaypoints() []model.Point {
	return fromWirePoints(ev.Waypoints)
}

// Geometry extracts (x, y, width, height) from a position or create event,
// falling back to 0 for any field not present on the wire.
func (ev ChangeEvent) Geometry() (x, y, width, height int) {
	deref := func(p *int) int {
		if p == nil {
			return 0
		}
		return *p
	}
	return deref(ev.X), deref(ev.Y), deref(ev.Width), deref(ev.Height)
}

package changeset

import (
	"testing"

	"github.com/jongik-sv/kirosync/internal/model"
)

func TestEncodeDecodeCreateRoundTrip(t *testing.T) {
	s := model.New()
	e := s.InsertShape("a", "bpmn:Task", 1, 2, 3, 4, model.Business{"name": "Review"})

	ev := EncodeCreate("diagram1", e, OriginLocal)
	data, err := Encode(ev)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Kind != KindCreate || decoded.ElementID != "a" || decoded.ElementType != "bpmn:Task" {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}
	x, y, w, h := decoded.Geometry()
	if x != 1 || y != 2 || w != 3 || h != 4 {
		t.Fatalf("unexpected geometry: %d %d %d %d", x, y, w, h)
	}
	if decoded.Business["name"] != "Review" {
		t.Fatalf("business not round-tripped: %+v", decoded.Business)
	}
}

func TestEncodeCreateExtractsOnlyRequiredBusinessProperties(t *testing.T) {
	s := model.New()
	business := model.Business{
		"name":       "Approve Invoice",
		"assignee":   "alice",
		"priority":   "high",
		"parent":     "process1",
		"flowElements": []string{"a"},
	}
	e := s.InsertShape("a", "bpmn:Task", 0, 0, 100, 80, business)

	ev := EncodeCreate("diagram1", e, OriginLocal)
	if ev.Business["name"] != "Approve Invoice" || ev.Business["assignee"] != "alice" || ev.Business["priority"] != "high" {
		t.Fatalf("expected named properties to survive extraction, got %+v", ev.Business)
	}
	if _, ok := ev.Business["parent"]; ok {
		t.Fatalf("parent is internal bookkeeping and must not leak onto the wire: %+v", ev.Business)
	}
	if _, ok := ev.Business["flowElements"]; ok {
		t.Fatalf("flowElements is internal bookkeeping and must not leak onto the wire: %+v", ev.Business)
	}
}

func TestEncodeCreateConnectionUsesConnectionKind(t *testing.T) {
	s := model.New()
	s.InsertShape("a", "bpmn:Task", 0, 0, 10, 10, nil)
	s.InsertShape("b", "bpmn:Task", 100, 0, 10, 10, nil)
	c, err := s.InsertConnection("c1", "bpmn:SequenceFlow", "a", "b", []model.Point{{X: 0, Y: 0}, {X: 100, Y: 0}}, nil)
	if err != nil {
		t.Fatalf("InsertConnection: %v", err)
	}

	ev := EncodeCreate("diagram1", c, OriginLocal)
	if ev.Kind != KindConnection {
		t.Fatalf("expected connection kind, got %q", ev.Kind)
	}
	if ev.SourceID != "a" || ev.TargetID != "b" {
		t.Fatalf("unexpected endpoints: %+v", ev)
	}
	if len(ev.ModelWaypoints()) != 2 {
		t.Fatalf("expected 2 waypoints, got %v", ev.ModelWaypoints())
	}
}

func TestEncodeRemoveCarriesCascadeSet(t *testing.T) {
	ev := EncodeRemove("diagram1", []string{"c1", "a"}, OriginLocal)
	if ev.Kind != KindRemove || ev.ElementID != "a" {
		t.Fatalf("unexpected remove event: %+v", ev)
	}
	if len(ev.RemovedIDs) != 2 {
		t.Fatalf("expected cascade ids preserved, got %v", ev.RemovedIDs)
	}
}

func TestEncodePropertyCarriesPatchOnly(t *testing.T) {
	ev := EncodeProperty("diagram1", "a", map[string]any{"name": "Renamed"}, OriginRemote)
	if ev.Kind != KindProperty || ev.Origin != OriginRemote {
		t.Fatalf("unexpected property event: %+v", ev)
	}
	if ev.Business["name"] != "Renamed" {
		t.Fatalf("patch not preserved: %+v", ev.Business)
	}
}

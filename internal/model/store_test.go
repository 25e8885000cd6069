package model

import (
	"testing"

	"github.com/jongik-sv/kirosync/internal/errors"
)

func TestInsertShapeAndGet(t *testing.T) {
	s := New()
	s.InsertShape("shape1", "bpmn:Task", 10, 20, 100, 80, nil)

	e, err := s.Get("shape1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e.Type != "bpmn:Task" || e.X != 10 || e.Y != 20 {
		t.Fatalf("unexpected element: %+v", e)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := New()
	if _, err := s.Get("missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIncidenceConsistency(t *testing.T) {
	s := New()
	s.InsertShape("a", "bpmn:Task", 0, 0, 10, 10, nil)
	s.InsertShape("b", "bpmn:Task", 100, 0, 10, 10, nil)

	if _, err := s.InsertConnection("c1", "bpmn:SequenceFlow", "a", "b", nil, nil); err != nil {
		t.Fatalf("InsertConnection: %v", err)
	}

	a, _ := s.Get("a")
	b, _ := s.Get("b")
	if _, ok := a.Outgoing["c1"]; !ok {
		t.Fatalf("source shape missing outgoing incidence")
	}
	if _, ok := b.Incoming["c1"]; !ok {
		t.Fatalf("target shape missing incoming incidence")
	}
}

func TestInsertConnectionMissingEndpoint(t *testing.T) {
	s := New()
	s.InsertShape("a", "bpmn:Task", 0, 0, 10, 10, nil)
	if _, err := s.InsertConnection("c1", "bpmn:SequenceFlow", "a", "missing", nil, nil); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCascadeRemove(t *testing.T) {
	s := New()
	s.InsertShape("a", "bpmn:Task", 0, 0, 10, 10, nil)
	s.InsertShape("b", "bpmn:Task", 100, 0, 10, 10, nil)
	s.InsertConnection("c1", "bpmn:SequenceFlow", "a", "b", nil, nil)

	removed, err := s.RemoveByID("a")
	if err != nil {
		t.Fatalf("RemoveByID: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("expected cascade to remove 2 elements, got %v", removed)
	}
	if s.Has("a") || s.Has("c1") {
		t.Fatalf("cascade left elements behind")
	}
	// b survives, with the incidence entry cleaned up.
	b, err := s.Get("b")
	if err != nil {
		t.Fatalf("Get b: %v", err)
	}
	if _, ok := b.Incoming["c1"]; ok {
		t.Fatalf("dangling incidence on surviving shape")
	}
}

func TestRemoveConnectionDetachesIncidenceOnly(t *testing.T) {
	s := New()
	s.InsertShape("a", "bpmn:Task", 0, 0, 10, 10, nil)
	s.InsertShape("b", "bpmn:Task", 100, 0, 10, 10, nil)
	s.InsertConnection("c1", "bpmn:SequenceFlow", "a", "b", nil, nil)

	removed, err := s.RemoveByID("c1")
	if err != nil {
		t.Fatalf("RemoveByID: %v", err)
	}
	if len(removed) != 1 || removed[0] != "c1" {
		t.Fatalf("expected only c1 removed, got %v", removed)
	}
	if !s.Has("a") || !s.Has("b") {
		t.Fatalf("removing connection must not remove its shapes")
	}
}

func TestSetBusinessDottedPath(t *testing.T) {
	s := New()
	s.InsertShape("a", "bpmn:Task", 0, 0, 10, 10, nil)

	if _, err := s.SetBusiness("a", map[string]any{"name": "Review", "documentation.text": "hello"}); err != nil {
		t.Fatalf("SetBusiness: %v", err)
	}
	e, _ := s.Get("a")
	if e.Business.Name() != "Review" {
		t.Fatalf("name not set: %+v", e.Business)
	}
	doc, ok := e.Business["documentation"].(map[string]any)
	if !ok || doc["text"] != "hello" {
		t.Fatalf("dotted path not applied: %+v", e.Business)
	}
}

func TestMoveByAccumulates(t *testing.T) {
	s := New()
	s.InsertShape("a", "bpmn:Task", 0, 0, 10, 10, nil)
	if _, err := s.MoveBy("a", 5, -3); err != nil {
		t.Fatalf("MoveBy: %v", err)
	}
	if _, err := s.MoveBy("a", 5, -3); err != nil {
		t.Fatalf("MoveBy: %v", err)
	}
	e, _ := s.Get("a")
	if e.X != 10 || e.Y != -6 {
		t.Fatalf("unexpected position after MoveBy: %+v", e)
	}
}

func TestReparentAppendsFlowElementsOnce(t *testing.T) {
	s := New()
	s.InsertShape("parent", "bpmn:SubProcess", 0, 0, 200, 200, Business{"flowElements": []string{}})
	s.InsertShape("child", "bpmn:Task", 10, 10, 50, 50, nil)

	if _, err := s.Reparent("child", "parent"); err != nil {
		t.Fatalf("Reparent: %v", err)
	}
	if _, err := s.Reparent("child", "parent"); err != nil {
		t.Fatalf("Reparent (idempotent): %v", err)
	}

	parent, _ := s.Get("parent")
	elems, _ := parent.Business.FlowElements()
	if len(elems) != 1 || elems[0] != "child" {
		t.Fatalf("expected flowElements to contain child exactly once, got %v", elems)
	}

	child, _ := s.Get("child")
	if child.Business.Parent() != "parent" {
		t.Fatalf("child parent not set: %+v", child.Business)
	}
}

func TestCountByType(t *testing.T) {
	s := New()
	s.InsertShape("a", "bpmn:Task", 0, 0, 10, 10, nil)
	s.InsertShape("b", "bpmn:Task", 0, 0, 10, 10, nil)
	s.InsertShape("c", "bpmn:Gateway", 0, 0, 10, 10, nil)

	counts := s.CountByType()
	if counts["bpmn:Task"] != 2 {
		t.Fatalf("expected 2 tasks, got %d", counts["bpmn:Task"])
	}
	if counts["bpmn:Gateway"] != 1 {
		t.Fatalf("expected 1 gateway, got %d", counts["bpmn:Gateway"])
	}
	if len(counts) != 2 {
		t.Fatalf("expected exactly 2 distinct types, got %+v", counts)
	}
}

func TestOverwriteInsertPreservesIncidence(t *testing.T) {
	s := New()
	s.InsertShape("a", "bpmn:Task", 0, 0, 10, 10, nil)
	s.InsertShape("b", "bpmn:Task", 100, 0, 10, 10, nil)
	s.InsertConnection("c1", "bpmn:SequenceFlow", "a", "b", nil, nil)

	// Re-insert "a" at a new position; its outgoing incidence to c1 must
	// survive the overwrite (spec.md §9: inbound create on an existing id
	// overwrites, it doesn't reset adjacency bookkeeping for the id).
	s.InsertShape("a", "bpmn:Task", 50, 50, 10, 10, nil)
	a, _ := s.Get("a")
	if _, ok := a.Outgoing["c1"]; !ok {
		t.Fatalf("overwrite dropped incidence: %+v", a)
	}
}

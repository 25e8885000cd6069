// Package model implements the Model Store: the in-memory graph of shapes
// and connections that every other package in this repository reads or
// mutates. It owns the incidence invariant (a connection's source/target
// shapes always list it in Outgoing/Incoming) and cascade-delete semantics
// (removing a shape removes every connection incident to it).
package model

import (
	"sync"

	"github.com/jongik-sv/kirosync/internal/errors"
)

// Store is the id-keyed graph of elements for a single diagram. Safe for
// concurrent use; every exported method takes the lock itself.
type Store struct {
	mu       sync.RWMutex
	elements map[string]*Element
}

// New returns an empty store.
func New() *Store {
	return &Store{elements: make(map[string]*Element)}
}

// Get returns a deep copy of the element with id, or ErrNotFound.
func (s *Store) Get(id string) (*Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.elements[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "element %q", id)
	}
	return e.clone(), nil
}

// Has reports whether id is present, without cloning.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.elements[id]
	return ok
}

// InsertShape inserts or overwrites (per spec.md §9: inbound create on an
// existing id overwrites) a shape. business may be nil, in which case an
// empty Business is stored.
func (s *Store) InsertShape(id, elementType string, x, y, width, height int, business Business) *Element {
	if business == nil {
		business = NewBusiness()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Preserve existing incidence sets on overwrite so cascade/adjacency
	// isn't silently dropped by a re-registration of the same id.
	var incoming, outgoing map[string]struct{}
	if existing, ok := s.elements[id]; ok && existing.IsShape() {
		incoming, outgoing = existing.Incoming, existing.Outgoing
	}
	if incoming == nil {
		incoming = make(map[string]struct{})
	}
	if outgoing == nil {
		outgoing = make(map[string]struct{})
	}

	e := &Element{
		ID:       id,
		Kind:     KindShape,
		Type:     elementType,
		Business: business.Clone(),
		X:        x,
		Y:        y,
		Width:    width,
		Height:   height,
		Incoming: incoming,
		Outgoing: outgoing,
	}
	s.elements[id] = e
	return e.clone()
}

// InsertConnection inserts or overwrites a connection and updates the
// incidence sets of its source and target shapes. Returns ErrNotFound if
// either endpoint does not exist as a shape.
func (s *Store) InsertConnection(id, elementType, sourceID, targetID string, waypoints []Point, business Business) (*Element, error) {
	if business == nil {
		business = NewBusiness()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	source, ok := s.elements[sourceID]
	if !ok || !source.IsShape() {
		return nil, errors.Wrapf(errors.ErrNotFound, "connection %q source %q", id, sourceID)
	}
	target, ok := s.elements[targetID]
	if !ok || !target.IsShape() {
		return nil, errors.Wrapf(errors.ErrNotFound, "connection %q target %q", id, targetID)
	}

	// Overwrite: detach the old incidence first if this id already exists.
	if existing, ok := s.elements[id]; ok && existing.IsConnection() {
		s.detachConnectionLocked(existing)
	}

	e := &Element{
		ID:        id,
		Kind:      KindConnection,
		Type:      elementType,
		Business:  business.Clone(),
		SourceID:  sourceID,
		TargetID:  targetID,
		Waypoints: append([]Point(nil), waypoints...),
	}
	s.elements[id] = e
	source.Outgoing[id] = struct{}{}
	target.Incoming[id] = struct{}{}
	return e.clone(), nil
}

func (s *Store) detachConnectionLocked(c *Element) {
	if source, ok := s.elements[c.SourceID]; ok {
		delete(source.Outgoing, c.ID)
	}
	if target, ok := s.elements[c.TargetID]; ok {
		delete(target.Incoming, c.ID)
	}
}

// RemoveByID removes the element with id. Removing a shape cascades: every
// connection incident to it (incoming or outgoing) is removed too. Returns
// the ids actually removed (the requested id plus any cascaded connection
// ids), in removal order, or ErrNotFound if id does not exist.
func (s *Store) RemoveByID(id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.elements[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "element %q", id)
	}

	if e.IsConnection() {
		s.detachConnectionLocked(e)
		delete(s.elements, id)
		return []string{id}, nil
	}

	// Shape: cascade to every incident connection first, then the shape.
	var removed []string
	incident := make([]string, 0, len(e.Incoming)+len(e.Outgoing))
	for cid := range e.Incoming {
		incident = append(incident, cid)
	}
	for cid := range e.Outgoing {
		incident = append(incident, cid)
	}
	for _, cid := range incident {
		if c, ok := s.elements[cid]; ok {
			s.detachConnectionLocked(c)
			delete(s.elements, cid)
			removed = append(removed, cid)
		}
	}
	delete(s.elements, id)
	removed = append(removed, id)
	return removed, nil
}

// SetBusiness shallow-merges patch into the element's business object (see
// Business.Merge for dotted-path handling).
func (s *Store) SetBusiness(id string, patch map[string]any) (*Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.elements[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "element %q", id)
	}
	e.Business.Merge(patch)
	return e.clone(), nil
}

// SetGeometry sets a shape's absolute position and size. Returns an error
// if id is not a shape.
func (s *Store) SetGeometry(id string, x, y, width, height int) (*Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.elements[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "element %q", id)
	}
	if !e.IsShape() {
		return nil, errors.Newf("element %q is not a shape", id)
	}
	e.X, e.Y, e.Width, e.Height = x, y, width, height
	return e.clone(), nil
}

// MoveBy translates a shape's position by (dx, dy).
func (s *Store) MoveBy(id string, dx, dy int) (*Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.elements[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "element %q", id)
	}
	if !e.IsShape() {
		return nil, errors.Newf("element %q is not a shape", id)
	}
	e.X += dx
	e.Y += dy
	return e.clone(), nil
}

// Reparent sets childID's business-object parent to parentID and appends
// childID to parentID's flowElements list, if it has one. Mirrors the
// source's setBusinessObjectParent/reparent behavior (spec.md §9).
func (s *Store) Reparent(childID, parentID string) (*Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	child, ok := s.elements[childID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "element %q", childID)
	}
	if parentID != "" {
		if _, ok := s.elements[parentID]; !ok {
			return nil, errors.Wrapf(errors.ErrNotFound, "parent %q", parentID)
		}
	}
	child.Business.SetParent(parentID)
	if parent, ok := s.elements[parentID]; ok {
		parent.Business.AppendFlowElement(childID)
	}
	return child.clone(), nil
}

// CountByType tallies every element currently in the store by its type.
func (s *Store) CountByType() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, e := range s.elements {
		counts[e.Type]++
	}
	return counts
}

// All returns a snapshot of every element in the store. Used by the
// mutation layer's batch path and by diagram serialization.
func (s *Store) All() []*Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Element, 0, len(s.elements))
	for _, e := range s.elements {
		out = append(out, e.clone())
	}
	return out
}

// Len returns the number of elements currently in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.elements)
}

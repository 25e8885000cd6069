// Package hostedit realizes the Design Notes' "low-level editor" capability:
// the narrow trait that the Silent Mutation Layer and Render Gate depend on
// instead of a concrete renderer, so the core never imports a rendering
// library (SPEC_FULL.md §4.8). This repo has no GPU/DOM canvas to drive, so
// Registry stands in as the one production-shaped implementation: it tracks
// which element ids are dirty and need a graphics refresh, and delegates
// suspend/resume to internal/rendergate.
package hostedit

import (
	"sync"

	"github.com/jongik-sv/kirosync/internal/model"
	"github.com/jongik-sv/kirosync/internal/rendergate"
)

// LowLevelEditor is the capability interface the mutation layer programs
// against. A real host (browser canvas, native GPU surface) would implement
// it directly; Registry implements it over the Model Store plus a dirty-id
// bookkeeping set.
type LowLevelEditor interface {
	AddElementRaw(e *model.Element)
	RemoveElementRaw(id string)
	SuspendRender()
	ResumeRender()
	RefreshGraphics(id string)
	RegisterGraphics(id string, gfx any)
}

// Registry is the in-process LowLevelEditor implementation. It does not
// itself own the model graph — the mutation layer writes there separately —
// it only tracks graphics registration and dirtiness, and gates rendering.
type Registry struct {
	gate *rendergate.Gate

	mu       sync.Mutex
	graphics map[string]any
	dirty    map[string]struct{}
}

// NewRegistry returns a Registry backed by gate. Passing a shared gate lets
// multiple Registries (e.g. one per diagram) cooperate with a single
// suspend/resume scope if ever needed; normally each diagram gets its own.
func NewRegistry(gate *rendergate.Gate) *Registry {
	return &Registry{
		gate:     gate,
		graphics: make(map[string]any),
		dirty:    make(map[string]struct{}),
	}
}

// AddElementRaw marks id dirty so a later RefreshGraphics call (or a drain
// of DirtyIDs) picks it up. The mutation layer is responsible for the
// model-store side of "add"; this only tracks the render-side bookkeeping.
func (r *Registry) AddElementRaw(e *model.Element) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirty[e.ID] = struct{}{}
}

// RemoveElementRaw drops any registered graphics and dirty marker for id.
func (r *Registry) RemoveElementRaw(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.graphics, id)
	delete(r.dirty, id)
}

// SuspendRender opens the render gate (idempotent).
func (r *Registry) SuspendRender() { r.gate.Suspend() }

// ResumeRender closes the render gate (idempotent).
func (r *Registry) ResumeRender() { r.gate.Resume() }

// RefreshGraphics marks id dirty. While the gate is suspended this only
// records intent; a real host would skip the actual redraw and rely on
// DirtyIDs once the gate releases.
func (r *Registry) RefreshGraphics(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirty[id] = struct{}{}
}

// RegisterGraphics associates an opaque graphics handle with id.
func (r *Registry) RegisterGraphics(id string, gfx any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graphics[id] = gfx
}

// Graphics returns the handle registered for id, if any.
func (r *Registry) Graphics(id string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	gfx, ok := r.graphics[id]
	return gfx, ok
}

// DirtyIDs drains and returns the set of ids marked dirty since the last
// drain, in no particular order. Called once the render gate releases.
func (r *Registry) DirtyIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.dirty))
	for id := range r.dirty {
		ids = append(ids, id)
	}
	r.dirty = make(map[string]struct{})
	return ids
}

var _ LowLevelEditor = (*Registry)(nil)

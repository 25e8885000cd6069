package transport

import (
	"sync"

	"github.com/jongik-sv/kirosync/internal/command"
	"github.com/jongik-sv/kirosync/internal/hostedit"
	"github.com/jongik-sv/kirosync/internal/mediator"
	"github.com/jongik-sv/kirosync/internal/model"
	"github.com/jongik-sv/kirosync/internal/rendergate"
)

// engine bundles one diagram's collaborative-editing core: the Model Store
// and its low-level editor capability, the silent command stack, and the
// mediator that sits in front of all three. One engine exists per diagram
// with at least one active session.
type engine struct {
	store    *model.Store
	gate     *rendergate.Gate
	editor   *hostedit.Registry
	commands *command.Stack
	mediator *mediator.Mediator
}

func newEngine(diagramID string, broadcast mediator.BroadcastFunc) *engine {
	gate := rendergate.New()
	editor := hostedit.NewRegistry(gate)
	store := model.New()
	commands := command.New(nil)
	return &engine{
		store:    store,
		gate:     gate,
		editor:   editor,
		commands: commands,
		mediator: mediator.New(diagramID, store, editor, commands, broadcast),
	}
}

// engineRegistry lazily creates and caches one engine per diagram.
type engineRegistry struct {
	mu        sync.Mutex
	engines   map[string]*engine
	broadcast mediator.BroadcastFunc
}

func newEngineRegistry(broadcast mediator.BroadcastFunc) *engineRegistry {
	return &engineRegistry{
		engines:   make(map[string]*engine),
		broadcast: broadcast,
	}
}

func (r *engineRegistry) get(diagramID string) *engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.engines[diagramID]
	if !ok {
		e = newEngine(diagramID, r.broadcast)
		r.engines[diagramID] = e
	}
	return e
}

func (r *engineRegistry) sweepAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.engines {
		e.mediator.Sweep()
	}
}

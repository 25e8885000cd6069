// Package command implements the Silent Command Stack (spec.md §4.2): a
// command-handler registry with a reentrant silent-mode flag. While silent
// mode is active, executed commands still run their handler but suppress
// the "changed" notification that would otherwise reach the Event Mediator
// — this is what lets the mutation layer apply a batch of raw edits without
// generating a storm of local-change events for its own writes.
package command

import (
	"context"
	"sync"

	"github.com/jongik-sv/kirosync/internal/errors"
)

// Handler executes a named command against its payload.
type Handler func(ctx context.Context, payload any) error

// ChangedFunc is invoked after a non-silent command executes successfully.
type ChangedFunc func(commandName string, payload any)

// Stack is a command-handler registry with a silent-mode guard. Safe for
// concurrent use.
type Stack struct {
	mu        sync.Mutex
	silent    bool
	handlers  map[string]Handler
	onChanged ChangedFunc
}

// New returns a Stack that invokes onChanged after every non-silent
// successful command execution. onChanged may be nil.
func New(onChanged ChangedFunc) *Stack {
	return &Stack{
		handlers:  make(map[string]Handler),
		onChanged: onChanged,
	}
}

// RegisterHandler registers h under name, replacing any existing handler for
// that name.
func (s *Stack) RegisterHandler(name string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = h
}

// IsSilent reports whether the stack is currently in silent mode.
func (s *Stack) IsSilent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.silent
}

// setSilentMode sets the silent flag and returns its previous value, so
// callers can restore it exactly (nesting silent scopes composes correctly:
// restoring the previous value rather than unconditionally clearing it).
func (s *Stack) setSilentMode(v bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.silent
	s.silent = v
	return prev
}

// SetSilentMode is the public toggle for silent mode, exposed alongside
// ExecuteSilently/ExecuteBatchSilently for callers that need to hold the
// stack silent across a span those helpers don't fit (e.g. a caller driving
// several independent Execute calls under one suppressed scope). Returns the
// previous value.
func (s *Stack) SetSilentMode(v bool) bool {
	return s.setSilentMode(v)
}

// Execute looks up the handler for name and runs it with payload. If the
// handler succeeds and the stack is not currently silent, onChanged is
// invoked with (name, payload).
func (s *Stack) Execute(ctx context.Context, name string, payload any) error {
	s.mu.Lock()
	h, ok := s.handlers[name]
	silent := s.silent
	onChanged := s.onChanged
	s.mu.Unlock()

	if !ok {
		return errors.Newf("command: no handler registered for %q", name)
	}
	if err := h(ctx, payload); err != nil {
		return errors.Wrapf(err, "command %q", name)
	}
	if !silent && onChanged != nil {
		onChanged(name, payload)
	}
	return nil
}

// ExecuteSilently runs fn with silent mode forced on, guaranteeing the
// previous silent-mode value is restored when fn returns, panics, or errors
// — the restore happens in a defer so every exit path is covered.
func (s *Stack) ExecuteSilently(fn func() error) error {
	prev := s.setSilentMode(true)
	defer s.setSilentMode(prev)
	return fn()
}

// ExecuteBatchSilently runs each fn in order under a single silent-mode
// scope, stopping at the first error. The silent-mode restore is
// unconditional regardless of where the batch stops.
func (s *Stack) ExecuteBatchSilently(fns ...func() error) error {
	prev := s.setSilentMode(true)
	defer s.setSilentMode(prev)
	for _, fn := range fns {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

package model

import "strings"

// Business is the open, dynamically-typed business object attached to every
// element. It carries a known set of typed properties (name, documentation,
// assignee, candidateUsers, candidateGroups, formKey, priority, dueDate,
// parent) plus arbitrary unknown keys — all stored in the same map, since the
// known fields have no fixed shape in the wire form either (e.g.
// "documentation" may arrive as a plain string or as a nested
// {text: "..."} object).
type Business map[string]any

// NewBusiness constructs an empty business object.
func NewBusiness() Business {
	return Business{}
}

// Clone returns a deep-enough copy for safe handoff across a batch boundary.
// Nested maps are copied recursively; slices and scalars are shared (the
// store never mutates them in place after assignment).
func (b Business) Clone() Business {
	if b == nil {
		return nil
	}
	return cloneMap(b)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Business:
		return cloneMap(t)
	default:
		return v
	}
}

func cloneMap[M ~map[string]any](m M) M {
	out := make(M, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge shallow-merges patch into b, except that any key containing a "."
// is treated as a dotted path and routed through SetPath so that
// intermediate maps are created lazily rather than overwriting a sibling.
func (b Business) Merge(patch map[string]any) {
	for k, v := range patch {
		if strings.Contains(k, ".") {
			b.SetPath(k, v)
			continue
		}
		b[k] = v
	}
}

// SetPath assigns value at a dotted path, creating intermediate
// map[string]any levels as needed. A path with no dot is a plain top-level
// assignment.
func (b Business) SetPath(path string, value any) {
	segments := strings.Split(path, ".")
	cur := map[string]any(b)
	for i, seg := range segments {
		if i == len(segments)-1 {
			cur[seg] = value
			return
		}
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
}

// Get returns the value at a dotted path, or nil, false if any segment is
// absent or not traversable.
func (b Business) Get(path string) (any, bool) {
	segments := strings.Split(path, ".")
	cur := map[string]any(b)
	for i, seg := range segments {
		v, ok := cur[seg]
		if !ok {
			return nil, false
		}
		if i == len(segments)-1 {
			return v, true
		}
		next, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// string-typed convenience accessors for the known fields enumerated in
// spec.md §6 (also used by the Change Codec's property extraction).

func (b Business) str(key string) string {
	v, _ := b[key].(string)
	return v
}

func (b Business) Name() string          { return b.str("name") }
func (b Business) Assignee() string      { return b.str("assignee") }
func (b Business) FormKey() string       { return b.str("formKey") }
func (b Business) Priority() string      { return b.str("priority") }
func (b Business) DueDate() string       { return b.str("dueDate") }
func (b Business) Parent() string        { return b.str("parent") }
func (b Business) SetParent(id string)   { b["parent"] = id }

// FlowElements returns the business object's flowElements list (child ids),
// if present, as a string slice. Used by reparent/setBusinessObjectParent.
func (b Business) FlowElements() ([]string, bool) {
	raw, ok := b["flowElements"]
	if !ok {
		return nil, false
	}
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// AppendFlowElement appends childID to flowElements iff not already present.
// No-op if the business object has no flowElements list at all.
func (b Business) AppendFlowElement(childID string) {
	elems, ok := b.FlowElements()
	if !ok {
		return
	}
	for _, id := range elems {
		if id == childID {
			return
		}
	}
	b["flowElements"] = append(elems, childID)
}

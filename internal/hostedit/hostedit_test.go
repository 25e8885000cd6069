package hostedit

import (
	"testing"

	"github.com/jongik-sv/kirosync/internal/model"
	"github.com/jongik-sv/kirosync/internal/rendergate"
)

func TestRegistryTracksDirtyIDs(t *testing.T) {
	r := NewRegistry(rendergate.New())
	r.AddElementRaw(&model.Element{ID: "a"})
	r.RefreshGraphics("b")

	ids := r.DirtyIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 dirty ids, got %v", ids)
	}
	if len(r.DirtyIDs()) != 0 {
		t.Fatalf("DirtyIDs should drain the set")
	}
}

func TestRegistryRemoveClearsGraphicsAndDirty(t *testing.T) {
	r := NewRegistry(rendergate.New())
	r.RegisterGraphics("a", "handle")
	r.RefreshGraphics("a")

	r.RemoveElementRaw("a")

	if _, ok := r.Graphics("a"); ok {
		t.Fatalf("expected graphics removed")
	}
	if len(r.DirtyIDs()) != 0 {
		t.Fatalf("expected dirty marker removed")
	}
}

func TestSuspendResumeDelegatesToGate(t *testing.T) {
	gate := rendergate.New()
	r := NewRegistry(gate)

	r.SuspendRender()
	if !gate.IsSuspended() {
		t.Fatalf("expected gate suspended")
	}
	r.ResumeRender()
	if gate.IsSuspended() {
		t.Fatalf("expected gate released")
	}
}

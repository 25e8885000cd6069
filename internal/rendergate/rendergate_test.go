package rendergate

import "testing"

func TestSuspendResumeIdempotent(t *testing.T) {
	g := New()
	if g.IsSuspended() {
		t.Fatalf("new gate must start released")
	}
	g.Suspend()
	g.Suspend()
	if !g.IsSuspended() {
		t.Fatalf("expected suspended after Suspend")
	}
	g.Resume()
	g.Resume()
	if g.IsSuspended() {
		t.Fatalf("expected released after Resume")
	}
}

func TestResumeWithoutSuspendIsNoop(t *testing.T) {
	g := New()
	g.Resume()
	if g.IsSuspended() {
		t.Fatalf("gate must stay released")
	}
}

package presence

import (
	"testing"
	"time"
)

func TestBindAndLookupBothDirections(t *testing.T) {
	c := New(time.Hour)
	c.Bind("user-1", "socket-1")

	if socket, ok := c.SocketFor("user-1"); !ok || socket != "socket-1" {
		t.Fatalf("expected socket-1, got %q ok=%v", socket, ok)
	}
	if user, ok := c.UserFor("socket-1"); !ok || user != "user-1" {
		t.Fatalf("expected user-1, got %q ok=%v", user, ok)
	}
}

func TestBindReplacesPriorSocketForUser(t *testing.T) {
	c := New(time.Hour)
	c.Bind("user-1", "socket-1")
	c.Bind("user-1", "socket-2")

	if _, ok := c.UserFor("socket-1"); ok {
		t.Fatalf("expected socket-1 binding displaced")
	}
	if socket, ok := c.SocketFor("user-1"); !ok || socket != "socket-2" {
		t.Fatalf("expected user-1 bound to socket-2, got %q", socket)
	}
}

func TestUnbindRemovesBothDirections(t *testing.T) {
	c := New(time.Hour)
	c.Bind("user-1", "socket-1")
	c.Unbind("socket-1")

	if _, ok := c.SocketFor("user-1"); ok {
		t.Fatalf("expected user-1 binding removed")
	}
	if _, ok := c.UserFor("socket-1"); ok {
		t.Fatalf("expected socket-1 binding removed")
	}
}

func TestSweepRemovesExpiredBindings(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.Bind("user-1", "socket-1")
	time.Sleep(20 * time.Millisecond)

	removed := c.Sweep()
	if removed != 1 {
		t.Fatalf("expected 1 expired binding swept, got %d", removed)
	}
	if c.Len() != 0 {
		t.Fatalf("expected cache empty after sweep")
	}
}

func TestTouchExtendsTTL(t *testing.T) {
	c := New(30 * time.Millisecond)
	c.Bind("user-1", "socket-1")

	time.Sleep(20 * time.Millisecond)
	c.Touch("socket-1")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.SocketFor("user-1"); !ok {
		t.Fatalf("expected binding to survive past original TTL due to Touch refresh")
	}
}

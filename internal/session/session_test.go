package session

import (
	"testing"
	"time"
)

func TestFanOutExcludesSender(t *testing.T) {
	c := New()
	c.AddParticipant("d1", "sess-A", "user-1", "alice")
	c.AddParticipant("d1", "sess-B", "user-2", "bob")
	c.AddParticipant("d1", "sess-C", "user-3", "carol")

	recipients := c.Recipients("d1", "user-1")
	if len(recipients) != 2 {
		t.Fatalf("expected 2 recipients excluding sender, got %v", recipients)
	}
	for _, r := range recipients {
		if r == "sess-A" {
			t.Fatalf("sender must not appear in its own fan-out set")
		}
	}
}

func TestFanOutExcludesEveryParticipantSessionOfTheSameUser(t *testing.T) {
	c := New()
	c.AddParticipant("d1", "sess-A1", "user-1", "alice")
	c.AddParticipant("d1", "sess-A2", "user-1", "alice")
	c.AddParticipant("d1", "sess-B", "user-2", "bob")

	recipients := c.Recipients("d1", "user-1")
	if len(recipients) != 1 || recipients[0] != "sess-B" {
		t.Fatalf("expected only bob's session to receive a change alice made from either of her sessions, got %v", recipients)
	}
}

func TestRemoveFromAllSessions(t *testing.T) {
	c := New()
	c.AddParticipant("d1", "sess-A", "user-1", "alice")
	c.AddParticipant("d2", "sess-A", "user-1", "alice")
	c.AddParticipant("d1", "sess-B", "user-2", "bob")

	removedFrom := c.RemoveFromAllSessions("sess-A")
	if len(removedFrom) != 2 {
		t.Fatalf("expected sess-A removed from 2 diagrams, got %v", removedFrom)
	}
	if len(c.GetParticipants("d1")) != 1 {
		t.Fatalf("expected sess-B to remain in d1")
	}
	if len(c.GetParticipants("d2")) != 0 {
		t.Fatalf("expected d2 roster emptied")
	}
}

func TestUpdateCursorRequiresExistingParticipant(t *testing.T) {
	c := New()
	if err := c.UpdateCursor("d1", "sess-A", 10, 20); err == nil {
		t.Fatalf("expected error updating cursor for unknown participant")
	}

	c.AddParticipant("d1", "sess-A", "user-1", "alice")
	if err := c.UpdateCursor("d1", "sess-A", 10, 20); err != nil {
		t.Fatalf("UpdateCursor: %v", err)
	}
	participants := c.GetParticipants("d1")
	if len(participants) != 1 || participants[0].CursorX != 10 || participants[0].CursorY != 20 {
		t.Fatalf("unexpected participant state: %+v", participants)
	}
}

func TestPurgeInactive(t *testing.T) {
	c := New()
	c.AddParticipant("d1", "sess-A", "user-1", "alice")
	c.AddParticipant("d1", "sess-B", "user-2", "bob")

	// Force sess-A to look stale by rewinding its activity timestamp.
	c.mu.Lock()
	c.diagrams["d1"]["sess-A"].LastActivity = time.Now().Add(-25 * time.Hour)
	c.mu.Unlock()

	removed := c.PurgeInactive(24 * time.Hour)
	if removed != 1 {
		t.Fatalf("expected 1 stale participant purged, got %d", removed)
	}
	if len(c.GetParticipants("d1")) != 1 {
		t.Fatalf("expected sess-B to survive the purge")
	}
}

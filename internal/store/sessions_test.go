package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jongik-sv/kirosync/internal/errors"
	"github.com/jongik-sv/kirosync/internal/store"
	"github.com/jongik-sv/kirosync/internal/storetest"
)

func TestSessionStore_UpsertGetDeactivate(t *testing.T) {
	ctx := context.Background()
	db := storetest.NewDB(t)
	users := store.NewUserStore(db)
	diagrams := store.NewDiagramStore(db)
	sessions := store.NewSessionStore(db)

	owner, _ := users.Create(ctx, "alice", "alice@example.com", "hashed")
	d, _ := diagrams.Create(ctx, "Order Process", "", owner.ID)

	cs, err := sessions.Upsert(ctx, d.ID, owner.ID)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !cs.Active {
		t.Fatalf("expected new session active")
	}

	if err := sessions.Deactivate(ctx, cs.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	got, err := sessions.Get(ctx, cs.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Active {
		t.Fatalf("expected session inactive after Deactivate")
	}
}

func TestSessionStore_GetNotFound(t *testing.T) {
	ctx := context.Background()
	sessions := store.NewSessionStore(storetest.NewDB(t))

	if _, err := sessions.Get(ctx, "missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionStore_PurgeInactive(t *testing.T) {
	ctx := context.Background()
	db := storetest.NewDB(t)
	users := store.NewUserStore(db)
	diagrams := store.NewDiagramStore(db)
	sessions := store.NewSessionStore(db)

	owner, _ := users.Create(ctx, "alice", "alice@example.com", "hashed")
	d, _ := diagrams.Create(ctx, "Order Process", "", owner.ID)
	cs, _ := sessions.Upsert(ctx, d.ID, owner.ID)
	sessions.Deactivate(ctx, cs.ID)

	// Backdate last_active_at so the session looks stale.
	if _, err := db.ExecContext(ctx, "UPDATE collaboration_sessions SET last_active_at = ? WHERE id = ?",
		time.Now().Add(-25*time.Hour), cs.ID); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	removed, err := sessions.PurgeInactive(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeInactive: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 session purged, got %d", removed)
	}
}

package store_test

import (
	"context"
	"testing"

	"github.com/jongik-sv/kirosync/internal/errors"
	"github.com/jongik-sv/kirosync/internal/store"
	"github.com/jongik-sv/kirosync/internal/storetest"
)

func TestUserStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	users := store.NewUserStore(storetest.NewDB(t))

	u, err := users.Create(ctx, "alice", "Alice@Example.com", "hashed")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("expected email lowercased, got %q", u.Email)
	}

	byID, err := users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID.Username != "alice" {
		t.Fatalf("unexpected username: %+v", byID)
	}

	byEmail, err := users.GetByEmail(ctx, "ALICE@EXAMPLE.COM")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail.ID != u.ID {
		t.Fatalf("expected case-insensitive email lookup to find the same user")
	}
}

func TestUserStore_DuplicateUsernameRejected(t *testing.T) {
	ctx := context.Background()
	users := store.NewUserStore(storetest.NewDB(t))

	if _, err := users.Create(ctx, "alice", "alice@example.com", "hashed"); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := users.Create(ctx, "alice", "alice2@example.com", "hashed"); !errors.Is(err, errors.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestUserStore_UsernameLengthValidation(t *testing.T) {
	ctx := context.Background()
	users := store.NewUserStore(storetest.NewDB(t))

	if _, err := users.Create(ctx, "ab", "short@example.com", "hashed"); err == nil {
		t.Fatalf("expected error for username shorter than 3 characters")
	}
}

func TestUserStore_GetByIDNotFound(t *testing.T) {
	ctx := context.Background()
	users := store.NewUserStore(storetest.NewDB(t))

	if _, err := users.GetByID(ctx, "missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserStore_SetOnlineAndTouch(t *testing.T) {
	ctx := context.Background()
	users := store.NewUserStore(storetest.NewDB(t))

	u, _ := users.Create(ctx, "alice", "alice@example.com", "hashed")
	if err := users.SetOnline(ctx, u.ID, true); err != nil {
		t.Fatalf("SetOnline: %v", err)
	}
	if err := users.Touch(ctx, u.ID); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	got, _ := users.GetByID(ctx, u.ID)
	if !got.Online {
		t.Fatalf("expected online flag set")
	}
}

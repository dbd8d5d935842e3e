package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-agent-bridge/internal/domain"
)

func seedClient(t *testing.T, db *gorm.DB, code, name, status string) *domain.Client {
	t.Helper()
	c := &domain.Client{ClientCode: code, Name: name, Status: status, CreatedAt: time.Now().UTC()}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c
}

func TestGetUserByClientCode_JoinsOnClient(t *testing.T) {
	db := newFullDB(t)
	ctx := context.Background()

	c1 := seedClient(t, db, "acme", "Acme", domain.StatusActive)
	c2 := seedClient(t, db, "globex", "Globex", domain.StatusActive)

	if err := CreateUser(ctx, db, &domain.User{Username: "alice", ClientID: c1.ID}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	// Same username under another tenant must not match the acme lookup.
	if err := CreateUser(ctx, db, &domain.User{Username: "alice", ClientID: c2.ID}); err != nil {
		t.Fatalf("create twin user: %v", err)
	}

	u, err := GetUserByClientCode(ctx, db, "alice", "acme")
	if err != nil {
		t.Fatalf("GetUserByClientCode: %v", err)
	}
	if u.ClientID != c1.ID {
		t.Fatalf("joined to wrong client: got %d want %d", u.ClientID, c1.ID)
	}

	if _, err := GetUserByClientCode(ctx, db, "alice", "hooli"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound for unknown code, got %v", err)
	}
}

func TestGetActiveClientByCode_SkipsInactive(t *testing.T) {
	db := newFullDB(t)
	ctx := context.Background()

	seedClient(t, db, "frozen", "Frozen Corp", "Inactivo")
	if _, err := GetActiveClientByCode(ctx, db, "frozen"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound for inactive client, got %v", err)
	}

	seedClient(t, db, "warm", "Warm Corp", domain.StatusActive)
	c, err := GetActiveClientByCode(ctx, db, "warm")
	if err != nil {
		t.Fatalf("GetActiveClientByCode: %v", err)
	}
	if c.ClientCode != "warm" {
		t.Fatalf("unexpected client: %+v", c)
	}
}

func TestUsernameUnique_PerClientNotGlobal(t *testing.T) {
	db := newFullDB(t)
	ctx := context.Background()

	c1 := seedClient(t, db, "acme", "Acme", domain.StatusActive)
	c2 := seedClient(t, db, "globex", "Globex", domain.StatusActive)

	if err := CreateUser(ctx, db, &domain.User{Username: "bob", ClientID: c1.ID}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := CreateUser(ctx, db, &domain.User{Username: "bob", ClientID: c2.ID}); err != nil {
		t.Fatalf("same username under another client must be allowed: %v", err)
	}
	if err := CreateUser(ctx, db, &domain.User{Username: "bob", ClientID: c1.ID}); err == nil {
		t.Fatal("duplicate (client, username) pair must be rejected")
	}
}

func TestAssignSession_SetsTokenAndReportsMissing(t *testing.T) {
	db := newFullDB(t)
	ctx := context.Background()

	c := seedClient(t, db, "acme", "Acme", domain.StatusActive)
	u := &domain.User{Username: "carol", ClientID: c.ID}
	if err := CreateUser(ctx, db, u); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := AssignSession(ctx, db, u.ID, "tok-1"); err != nil {
		t.Fatalf("AssignSession: %v", err)
	}
	got, err := GetUserBySession(ctx, db, "tok-1")
	if err != nil {
		t.Fatalf("GetUserBySession: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("session resolved to wrong user: %d", got.ID)
	}

	if err := AssignSession(ctx, db, 9999, "tok-2"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound for missing user, got %v", err)
	}
}

func TestCreateUser_DefaultsStatusAndCreatedAt(t *testing.T) {
	db := newFullDB(t)
	ctx := context.Background()

	c := seedClient(t, db, "acme", "Acme", domain.StatusActive)
	u := &domain.User{Username: "dave", ClientID: c.ID}
	if err := CreateUser(ctx, db, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Status != domain.StatusActive {
		t.Fatalf("status not defaulted: %q", u.Status)
	}
	if u.CreatedAt.IsZero() {
		t.Fatal("created_at not set")
	}
}

func TestListUsersByClient_PreloadsClient(t *testing.T) {
	db := newFullDB(t)
	ctx := context.Background()

	c := seedClient(t, db, "acme", "Acme", domain.StatusActive)
	other := seedClient(t, db, "globex", "Globex", domain.StatusActive)
	for _, name := range []string{"u1", "u2"} {
		if err := CreateUser(ctx, db, &domain.User{Username: name, ClientID: c.ID}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := CreateUser(ctx, db, &domain.User{Username: "u3", ClientID: other.ID}); err != nil {
		t.Fatalf("create: %v", err)
	}

	users, err := ListUsersByClient(ctx, db, c.ID)
	if err != nil {
		t.Fatalf("ListUsersByClient: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	for _, u := range users {
		if u.Client.ClientCode != "acme" {
			t.Fatalf("client not preloaded: %+v", u)
		}
	}
}

func TestDeleteUser_NotFound(t *testing.T) {
	db := newFullDB(t)
	if err := DeleteUser(context.Background(), db, 42); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

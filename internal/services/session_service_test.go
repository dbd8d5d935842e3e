package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-agent-bridge/internal/domain"
	"github.com/tbourn/go-agent-bridge/internal/repo"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedActiveClient(t *testing.T, db *gorm.DB, code string) *domain.Client {
	t.Helper()
	c := &domain.Client{ClientCode: code, Name: "Client " + code, Status: domain.StatusActive, CreatedAt: time.Now().UTC()}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c
}

func TestResolve_CreatesUserWithToken(t *testing.T) {
	db := newServiceDB(t)
	svc := NewSessionService(db)
	seedActiveClient(t, db, "acme")

	user, client, err := svc.Resolve(context.Background(), "acme", "alice")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if client.ClientCode != "acme" {
		t.Fatalf("wrong client: %+v", client)
	}
	if user.ID == 0 {
		t.Fatal("user not persisted")
	}
	if user.SessionID == nil || *user.SessionID == "" {
		t.Fatal("new user must carry a session token")
	}

	// No reader may ever see a committed user without a token.
	var stored domain.User
	if err := db.First(&stored, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.SessionID == nil || *stored.SessionID != *user.SessionID {
		t.Fatalf("token not persisted: %+v", stored)
	}
}

func TestResolve_IsIdempotent(t *testing.T) {
	db := newServiceDB(t)
	svc := NewSessionService(db)
	seedActiveClient(t, db, "acme")
	ctx := context.Background()

	first, _, err := svc.Resolve(ctx, "acme", "alice")
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	second, _, err := svc.Resolve(ctx, "acme", "alice")
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("user recreated: %d then %d", first.ID, second.ID)
	}
	if *first.SessionID != *second.SessionID {
		t.Fatalf("token rotated on repeat resolve: %q then %q", *first.SessionID, *second.SessionID)
	}

	var n int64
	if err := db.Model(&domain.User{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected a single user row, got %d", n)
	}
}

func TestResolve_UnknownClient(t *testing.T) {
	db := newServiceDB(t)
	svc := NewSessionService(db)

	_, _, err := svc.Resolve(context.Background(), "ghost", "alice")
	if !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}

	// No user row may be written for an unknown client.
	var n int64
	if err := db.Model(&domain.User{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no user rows, got %d", n)
	}
}

func TestResolve_InactiveClientRejected(t *testing.T) {
	db := newServiceDB(t)
	svc := NewSessionService(db)

	c := &domain.Client{ClientCode: "frozen", Name: "Frozen", Status: "Inactivo", CreatedAt: time.Now().UTC()}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, _, err := svc.Resolve(context.Background(), "frozen", "alice"); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound for inactive client, got %v", err)
	}
}

func TestResolve_ExistingUserUnderInactiveClientStillResolves(t *testing.T) {
	db := newServiceDB(t)
	svc := NewSessionService(db)
	ctx := context.Background()

	c := seedActiveClient(t, db, "acme")
	if _, _, err := svc.Resolve(ctx, "acme", "alice"); err != nil {
		t.Fatalf("initial resolve: %v", err)
	}

	// Deactivation blocks new users, not existing sessions.
	if err := db.Model(c).Update("status", "Inactivo").Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, _, err := svc.Resolve(ctx, "acme", "alice"); err != nil {
		t.Fatalf("existing user must keep resolving: %v", err)
	}
	if _, _, err := svc.Resolve(ctx, "acme", "bob"); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("new user under inactive client must be rejected, got %v", err)
	}
}

func TestResolve_AssignsTokenToLegacyUser(t *testing.T) {
	db := newServiceDB(t)
	svc := NewSessionService(db)
	c := seedActiveClient(t, db, "acme")

	// Legacy row without a session token.
	legacy := &domain.User{Username: "old", ClientID: c.ID, Status: domain.StatusActive, CreatedAt: time.Now().UTC()}
	if err := db.Create(legacy).Error; err != nil {
		t.Fatalf("seed legacy user: %v", err)
	}

	user, _, err := svc.Resolve(context.Background(), "acme", "old")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if user.ID != legacy.ID {
		t.Fatalf("resolved to wrong user: %d", user.ID)
	}
	if user.SessionID == nil || *user.SessionID == "" {
		t.Fatal("legacy user must get a token lazily")
	}
}

func TestResolveSession_MapsTokenToUserAndClient(t *testing.T) {
	db := newServiceDB(t)
	svc := NewSessionService(db)
	seedActiveClient(t, db, "acme")
	ctx := context.Background()

	created, _, err := svc.Resolve(ctx, "acme", "alice")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	user, client, err := svc.ResolveSession(ctx, *created.SessionID)
	if err != nil {
		t.Fatalf("ResolveSession: %v", err)
	}
	if user.ID != created.ID || client.ClientCode != "acme" {
		t.Fatalf("wrong resolution: user=%+v client=%+v", user, client)
	}

	if _, _, err := svc.ResolveSession(ctx, "no-such-token"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

package repo

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/tbourn/go-agent-bridge/internal/domain"
)

func TestCreateCommunication_BackfillsCreatedAt(t *testing.T) {
	db := newFullDB(t)
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Minute)
	comm, err := CreateCommunication(ctx, db, "sess-1", json.RawMessage(`{"text":"hola"}`))
	if err != nil {
		t.Fatalf("CreateCommunication: %v", err)
	}
	if comm.CreatedAt.Before(before) {
		t.Fatalf("created_at not backfilled: %v", comm.CreatedAt)
	}

	var got domain.Communication
	if err := db.First(&got, "id = ?", comm.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("persisted row has zero created_at")
	}
}

func TestCreateCommunication_RoundTripsJSON(t *testing.T) {
	db := newFullDB(t)
	ctx := context.Background()

	payload := json.RawMessage(`{"text":"¿precio?","meta":{"lang":"es","n":3}}`)
	comm, err := CreateCommunication(ctx, db, "sess-1", payload)
	if err != nil {
		t.Fatalf("CreateCommunication: %v", err)
	}

	var got domain.Communication
	if err := db.First(&got, "id = ?", comm.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	var decoded struct {
		Text string `json:"text"`
		Meta struct {
			Lang string `json:"lang"`
			N    int    `json:"n"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(got.Message, &decoded); err != nil {
		t.Fatalf("unmarshal stored message: %v", err)
	}
	if decoded.Text != "¿precio?" || decoded.Meta.Lang != "es" || decoded.Meta.N != 3 {
		t.Fatalf("payload mangled: %+v", decoded)
	}
}

func TestLatestCommunication_HighestIDWins(t *testing.T) {
	db := newFullDB(t)
	ctx := context.Background()

	// Insert out of chronological order: the latest row is the one with the
	// highest id, not the newest created_at.
	old := &domain.Communication{SessionID: "sess-1", Message: json.RawMessage(`"first"`), CreatedAt: time.Now().UTC()}
	if err := db.Create(old).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	newer := &domain.Communication{SessionID: "sess-1", Message: json.RawMessage(`"second"`), CreatedAt: time.Now().UTC().Add(-time.Hour)}
	if err := db.Create(newer).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := LatestCommunication(ctx, db, "sess-1")
	if err != nil {
		t.Fatalf("LatestCommunication: %v", err)
	}
	if got == nil || got.ID != newer.ID {
		t.Fatalf("wrong latest: %+v", got)
	}
}

func TestLatestCommunication_NoneIsNilNotError(t *testing.T) {
	db := newFullDB(t)
	got, err := LatestCommunication(context.Background(), db, "empty-sess")
	if err != nil {
		t.Fatalf("expected nil error for empty session, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil communication, got %+v", got)
	}
}

func TestListCommunications_AscendingOrderAndIsolation(t *testing.T) {
	db := newFullDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := CreateCommunication(ctx, db, "sess-a", json.RawMessage(`{}`)); err != nil {
			t.Fatalf("seed a: %v", err)
		}
	}
	if _, err := CreateCommunication(ctx, db, "sess-b", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("seed b: %v", err)
	}

	comms, err := ListCommunications(ctx, db, "sess-a")
	if err != nil {
		t.Fatalf("ListCommunications: %v", err)
	}
	if len(comms) != 3 {
		t.Fatalf("got %d rows, want 3", len(comms))
	}
	for i := 1; i < len(comms); i++ {
		if comms[i].ID <= comms[i-1].ID {
			t.Fatalf("not ascending at %d: %v then %v", i, comms[i-1].ID, comms[i].ID)
		}
	}
}

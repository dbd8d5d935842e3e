package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-agent-bridge/internal/config"
	"github.com/tbourn/go-agent-bridge/internal/domain"
	"github.com/tbourn/go-agent-bridge/internal/repo"
)

func bridgeCfg() config.BridgeConfig {
	return config.BridgeConfig{
		QuestionPath: "/question",
		AnswerPath:   "/answer",
		ClientPath:   "/client",
		RulesPath:    "/rules",
		ProductsPath: "/products",
		WSPath:       "/ws",
		PublicPort:   "8001",
	}
}

func seedSetting(t *testing.T, db *gorm.DB, key, value string) {
	t.Helper()
	s := &domain.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("seed setting: %v", err)
	}
}

func sessionUser(token string, clientID uint) *domain.User {
	return &domain.User{ID: 1, Username: "alice", ClientID: clientID, SessionID: &token}
}

func TestDispatch_PostsPayloadWithCallbacks(t *testing.T) {
	db := newServiceDB(t)

	received := make(chan WebhookPayload, 1)
	var contentType string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		var p WebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		received <- p
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	seedSetting(t, db, repo.SettingKeyAgentURL, upstream.URL)
	seedSetting(t, db, repo.SettingKeyAnswerHost, "http://bridge.example.com")

	client := seedActiveClient(t, db, "acme")
	svc := NewWebhookService(db, bridgeCfg(), 5*time.Second)
	svc.Dispatch(context.Background(), sessionUser("tok-1", client.ID), client, "¿cuánto cuesta?")

	select {
	case p := <-received:
		if p.SessionID != "tok-1" || p.Prompt != "¿cuánto cuesta?" {
			t.Fatalf("unexpected payload: %+v", p)
		}
		if p.AnswerEP != "http://bridge.example.com:8001/answer" {
			t.Fatalf("answer_ep wrong: %q", p.AnswerEP)
		}
		if p.ClientEP != "http://bridge.example.com:8001/client" ||
			p.RuleEP != "http://bridge.example.com:8001/rules" ||
			p.ProductEP != "http://bridge.example.com:8001/products" {
			t.Fatalf("satellite endpoints wrong: %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook never called")
	}
	if contentType != "application/json" {
		t.Fatalf("content type: %q", contentType)
	}
}

func TestDispatch_NoAgentURLIsSilentNoop(t *testing.T) {
	db := newServiceDB(t)
	client := seedActiveClient(t, db, "acme")

	// No URL_AGENT setting seeded: Dispatch must return without panicking
	// or erroring.
	svc := NewWebhookService(db, bridgeCfg(), time.Second)
	svc.Dispatch(context.Background(), sessionUser("tok-1", client.ID), client, "hi")
}

func TestDispatch_EmptyHostYieldsEmptyCallbacks(t *testing.T) {
	db := newServiceDB(t)

	received := make(chan WebhookPayload, 1)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p WebhookPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		received <- p
	}))
	defer upstream.Close()

	seedSetting(t, db, repo.SettingKeyAgentURL, upstream.URL)
	// URL_ANSWER_HOST deliberately absent.

	client := seedActiveClient(t, db, "acme")
	svc := NewWebhookService(db, bridgeCfg(), 5*time.Second)
	svc.Dispatch(context.Background(), sessionUser("tok-1", client.ID), client, "hi")

	select {
	case p := <-received:
		if p.AnswerEP != "" {
			t.Fatalf("expected empty answer_ep without host setting, got %q", p.AnswerEP)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook never called")
	}
}

func TestDispatch_SwallowsUpstreamFailure(t *testing.T) {
	db := newServiceDB(t)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer upstream.Close()

	seedSetting(t, db, repo.SettingKeyAgentURL, upstream.URL)
	client := seedActiveClient(t, db, "acme")

	// Non-2xx and transport errors must never propagate.
	svc := NewWebhookService(db, bridgeCfg(), time.Second)
	svc.Dispatch(context.Background(), sessionUser("tok-1", client.ID), client, "hi")

	upstream.Close()
	svc.Dispatch(context.Background(), sessionUser("tok-1", client.ID), client, "hi again")
}

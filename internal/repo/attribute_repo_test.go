package repo

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/go-agent-bridge/internal/domain"
)

func seedTemplate(t *testing.T, db *gorm.DB, key, desc string) *domain.Template {
	t.Helper()
	tpl := &domain.Template{Key: key, Description: desc, DataType: "text", Status: domain.StatusActive}
	if err := db.Create(tpl).Error; err != nil {
		t.Fatalf("seed template: %v", err)
	}
	return tpl
}

func TestListClientAttributeValues_JoinAndOrder(t *testing.T) {
	db := newFullDB(t)
	ctx := context.Background()

	c := seedClient(t, db, "acme", "Acme", domain.StatusActive)
	other := seedClient(t, db, "globex", "Globex", domain.StatusActive)
	tone := seedTemplate(t, db, "tone", "Response tone")
	lang := seedTemplate(t, db, "lang", "Language")

	for _, a := range []*domain.Attribute{
		{ClientID: c.ID, TemplateID: tone.ID, Value: "formal"},
		{ClientID: c.ID, TemplateID: lang.ID, Value: "es"},
		{ClientID: other.ID, TemplateID: tone.ID, Value: "casual"},
	} {
		if err := CreateAttribute(ctx, db, a); err != nil {
			t.Fatalf("seed attribute: %v", err)
		}
	}

	rows, err := ListClientAttributeValues(ctx, db, c.ID)
	if err != nil {
		t.Fatalf("ListClientAttributeValues: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].TemplateKey != "tone" || rows[0].Value != "formal" || rows[0].TemplateDescription != "Response tone" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].TemplateKey != "lang" || rows[1].Value != "es" {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
}

func TestListClientAttributeValues_EmptyClient(t *testing.T) {
	db := newFullDB(t)
	c := seedClient(t, db, "bare", "Bare", domain.StatusActive)

	rows, err := ListClientAttributeValues(context.Background(), db, c.ID)
	if err != nil {
		t.Fatalf("expected no error for empty client, got %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected zero rows, got %d", len(rows))
	}
}

func TestAttributePair_Unique(t *testing.T) {
	db := newFullDB(t)
	ctx := context.Background()

	c := seedClient(t, db, "acme", "Acme", domain.StatusActive)
	tpl := seedTemplate(t, db, "tone", "Response tone")

	if err := CreateAttribute(ctx, db, &domain.Attribute{ClientID: c.ID, TemplateID: tpl.ID, Value: "v1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := CreateAttribute(ctx, db, &domain.Attribute{ClientID: c.ID, TemplateID: tpl.ID, Value: "v2"}); err == nil {
		t.Fatal("duplicate (client, template) pair must be rejected")
	}
}

func TestGetTemplatesByKeys_MapsByKey(t *testing.T) {
	db := newFullDB(t)
	ctx := context.Background()

	seedTemplate(t, db, "tone", "Response tone")
	seedTemplate(t, db, "lang", "Language")

	got, err := GetTemplatesByKeys(ctx, db, []string{"tone", "missing"})
	if err != nil {
		t.Fatalf("GetTemplatesByKeys: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d templates, want 1", len(got))
	}
	if _, found := got["tone"]; !found {
		t.Fatalf("tone missing from map: %v", got)
	}
}

func TestUpdateAttributeValue_NotFound(t *testing.T) {
	db := newFullDB(t)
	if err := UpdateAttributeValue(context.Background(), db, 99, "x"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Attribute
// model, including the attribute-template join used by the resolvers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-agent-bridge/internal/domain"
)

// AttributeValue is one row of the attribute-template join: the template's
// key and description together with the client's concrete value.
type AttributeValue struct {
	TemplateKey         string `json:"template_key"`
	TemplateDescription string `json:"template_description"`
	Value               string `json:"value"`
}

// ListClientAttributeValues inner-joins attributes to templates for one
// client and projects (key, description, value) rows. Returns an empty slice
// when the client has no configured attributes.
func ListClientAttributeValues(ctx context.Context, db *gorm.DB, clientID uint) ([]AttributeValue, error) {
	var out []AttributeValue
	err := db.WithContext(ctx).
		Model(&domain.Attribute{}).
		Select("templates.key AS template_key, templates.description AS template_description, attributes.value AS value").
		Joins("JOIN templates ON templates.id = attributes.template_id").
		Where("attributes.client_id = ?", clientID).
		Order("attributes.id asc").
		Scan(&out).Error
	return out, err
}

// GetAttributeByID fetches an attribute by primary key with its client and
// template preloaded.
func GetAttributeByID(ctx context.Context, db *gorm.DB, id uint) (*domain.Attribute, error) {
	var a domain.Attribute
	err := db.WithContext(ctx).
		Preload("Client").
		Preload("Template").
		First(&a, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAttributeByPair fetches the unique attribute for (clientID, templateID).
func GetAttributeByPair(ctx context.Context, db *gorm.DB, clientID, templateID uint) (*domain.Attribute, error) {
	var a domain.Attribute
	err := db.WithContext(ctx).
		Where("client_id = ? AND template_id = ?", clientID, templateID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAttributes returns all attributes with client and template preloaded.
func ListAttributes(ctx context.Context, db *gorm.DB) ([]domain.Attribute, error) {
	var out []domain.Attribute
	err := db.WithContext(ctx).
		Preload("Client").
		Preload("Template").
		Order("id asc").
		Find(&out).Error
	return out, err
}

// ListAttributesByClient returns all attributes for one client with client
// and template preloaded.
func ListAttributesByClient(ctx context.Context, db *gorm.DB, clientID uint) ([]domain.Attribute, error) {
	var out []domain.Attribute
	err := db.WithContext(ctx).
		Preload("Client").
		Preload("Template").
		Where("client_id = ?", clientID).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// CreateAttribute inserts a new attribute row.
func CreateAttribute(ctx context.Context, db *gorm.DB, a *domain.Attribute) error {
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(a).Error
}

// UpdateAttributeValue updates the value of an attribute. Only the value is
// mutable; the (client, template) pairing is fixed at creation.
func UpdateAttributeValue(ctx context.Context, db *gorm.DB, id uint, value string) error {
	res := db.WithContext(ctx).
		Model(&domain.Attribute{}).
		Where("id = ?", id).
		Updates(map[string]any{"value": value, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteAttribute removes an attribute by id. Returns ErrNotFound when absent.
func DeleteAttribute(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.Attribute{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

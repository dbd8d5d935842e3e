// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Template
// model (attribute schema definitions).
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-agent-bridge/internal/domain"
)

// GetTemplateByID fetches a template by primary key.
func GetTemplateByID(ctx context.Context, db *gorm.DB, id uint) (*domain.Template, error) {
	var t domain.Template
	if err := db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTemplatesByKeys returns the templates whose keys are in keys, mapped by
// key. Missing keys are simply absent from the result.
func GetTemplatesByKeys(ctx context.Context, db *gorm.DB, keys []string) (map[string]domain.Template, error) {
	out := make(map[string]domain.Template, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	var rows []domain.Template
	if err := db.WithContext(ctx).Where("key IN ?", keys).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, t := range rows {
		out[t.Key] = t
	}
	return out, nil
}

// TemplateExists reports whether a template with the key already exists.
func TemplateExists(ctx context.Context, db *gorm.DB, key string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Template{}).Where("key = ?", key).Count(&n).Error
	return n > 0, err
}

// ListTemplates returns all templates ordered by id.
func ListTemplates(ctx context.Context, db *gorm.DB) ([]domain.Template, error) {
	var out []domain.Template
	err := db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

// CreateTemplate inserts a new template row.
func CreateTemplate(ctx context.Context, db *gorm.DB, t *domain.Template) error {
	if t.Status == "" {
		t.Status = domain.StatusActive
	}
	if t.DataType == "" {
		t.DataType = "text"
	}
	return db.WithContext(ctx).Create(t).Error
}

// SaveTemplate persists all fields of an existing template row.
func SaveTemplate(ctx context.Context, db *gorm.DB, t *domain.Template) error {
	return db.WithContext(ctx).Save(t).Error
}

// DeleteTemplate removes a template by id. Returns ErrNotFound when absent;
// attributes still referencing the template surface as a driver FK error.
func DeleteTemplate(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.Template{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
